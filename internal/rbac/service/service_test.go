package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/mock/gomock"

	"warrant/internal/audit"
	"warrant/internal/rbac/cache"
	"warrant/internal/rbac/metrics"
	"warrant/internal/rbac/models"
	"warrant/internal/rbac/tracer"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

func (s *ServiceSuite) TestGrantOnVerifiedPresentation() {
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.AgentID, request models.RoleCredentialRequest) (models.RoleCredentialResponse, error) {
			s.Equal(id.Role("admin"), request.RequiredRole)
			s.Equal(testNonce, request.Nonce)
			s.GreaterOrEqual(len(request.Nonce), 16)
			return s.presentationResponse(request.Nonce), nil
		})
	s.mockVerifier.EXPECT().
		VerifyPresentation(gomock.Any(), gomock.Any(), id.Role("admin"), testNonce).
		Return(s.validResult("admin"))

	authCtx, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")

	s.Require().NoError(err)
	s.Equal(testAgent, authCtx.AgentID)
	s.Equal([]id.Role{"admin"}, authCtx.VerifiedRoles)
	s.True(authCtx.HasRole("admin"))

	entry, err := s.cacheStore.Get(context.Background(), testAgent, "admin")
	s.Require().NoError(err)
	s.Equal("deadbeef", entry.CredentialHash)
}

func (s *ServiceSuite) TestSecondAttemptServedFromCache() {
	// First attempt performs the round trip, second must not.
	s.expectBaseAuth()
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.AgentID, request models.RoleCredentialRequest) (models.RoleCredentialResponse, error) {
			return s.presentationResponse(request.Nonce), nil
		}).
		Times(1)
	s.mockVerifier.EXPECT().
		VerifyPresentation(gomock.Any(), gomock.Any(), id.Role("admin"), testNonce).
		Return(s.validResult("admin")).
		Times(1)

	_, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")
	s.Require().NoError(err)

	authCtx, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")
	s.Require().NoError(err)
	s.Equal([]id.Role{"admin"}, authCtx.VerifiedRoles)
}

func (s *ServiceSuite) TestCachedRoleSkipsRemoteCall() {
	// Pre-populated cache entry valid for another hour: zero transport calls.
	expires := testTime.Add(time.Hour)
	s.Require().NoError(s.cacheStore.Put(context.Background(), models.CachedRoleEntry{
		AgentID:        testAgent,
		Role:           "manager",
		CredentialHash: "cafef00d",
		IssuerDID:      "did:example:issuer",
		VerifiedAt:     testTime.Add(-time.Minute),
		ExpiresAt:      expires,
	}))
	s.expectBaseAuth()

	authCtx, err := s.service.AuthenticateWithRole(context.Background(), testToken, "manager")

	s.Require().NoError(err)
	s.Equal([]id.Role{"manager"}, authCtx.VerifiedRoles)
}

func (s *ServiceSuite) TestExpiredCacheEntryTriggersRoundTrip() {
	s.Require().NoError(s.cacheStore.Put(context.Background(), models.CachedRoleEntry{
		AgentID:   testAgent,
		Role:      "admin",
		ExpiresAt: testTime.Add(-time.Second),
	}))
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.AgentID, request models.RoleCredentialRequest) (models.RoleCredentialResponse, error) {
			return s.presentationResponse(request.Nonce), nil
		})
	s.mockVerifier.EXPECT().
		VerifyPresentation(gomock.Any(), gomock.Any(), id.Role("admin"), testNonce).
		Return(s.validResult("admin"))

	_, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestBaseAuthFailureDeniesImmediately() {
	s.mockTokens.EXPECT().
		VerifyToken(gomock.Any(), testToken).
		Return(id.AgentID(""), nil, errors.New("token expired"))

	authCtx, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")

	s.Nil(authCtx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestUpstreamErrorDenies() {
	upstream := "Role 'admin' not available"
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		Return(models.RoleCredentialResponse{Nonce: testNonce, Error: upstream}, nil)

	authCtx, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")

	s.Nil(authCtx)
	s.Require().Error(err)
	s.Equal(upstream, err.Error(), "upstream error text surfaces verbatim")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.cacheStore.Get(context.Background(), testAgent, "admin")
	s.Error(err, "cache must not be written on denial")
}

func (s *ServiceSuite) TestMissingPresentationDenies() {
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		Return(models.RoleCredentialResponse{Nonce: testNonce}, nil)

	_, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")

	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestNonceMismatchIsProtocolViolation() {
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		Return(s.presentationResponse("some-other-nonce"), nil)

	authCtx, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")

	s.Nil(authCtx)
	s.True(dErrors.HasCode(err, dErrors.CodeProtocolViolation))
}

func (s *ServiceSuite) TestTransportTimeoutDenies() {
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		Return(models.RoleCredentialResponse{}, context.DeadlineExceeded)

	_, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")

	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *ServiceSuite) TestVerifierFailureDenies() {
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.AgentID, request models.RoleCredentialRequest) (models.RoleCredentialResponse, error) {
			return s.presentationResponse(request.Nonce), nil
		})
	s.mockVerifier.EXPECT().
		VerifyPresentation(gomock.Any(), gomock.Any(), id.Role("admin"), testNonce).
		Return(models.Invalid(`credential does not grant role "admin"`))

	_, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")

	s.Require().Error(err)
	s.Contains(err.Error(), "admin")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, cacheErr := s.cacheStore.Get(context.Background(), testAgent, "admin")
	s.Error(cacheErr, "cache must not be written on verification failure")
}

func (s *ServiceSuite) TestVerifierPanicDenies() {
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.AgentID, request models.RoleCredentialRequest) (models.RoleCredentialResponse, error) {
			return s.presentationResponse(request.Nonce), nil
		})
	s.mockVerifier.EXPECT().
		VerifyPresentation(gomock.Any(), gomock.Any(), id.Role("admin"), testNonce).
		DoAndReturn(func(context.Context, *models.VerifiablePresentation, id.Role, string) models.RoleVerificationResult {
			panic("verifier bug")
		})

	authCtx, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")

	s.Nil(authCtx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestEmptyRoleRejected() {
	_, err := s.service.AuthenticateWithRole(context.Background(), testToken, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestConcurrentAttemptsShareOneRoundTrip() {
	const attempts = 8
	s.mockTokens.EXPECT().
		VerifyToken(gomock.Any(), testToken).
		Return(testAgent, nil, nil).
		Times(attempts)
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.AgentID, request models.RoleCredentialRequest) (models.RoleCredentialResponse, error) {
			time.Sleep(20 * time.Millisecond)
			return s.presentationResponse(request.Nonce), nil
		}).
		Times(1)
	s.mockVerifier.EXPECT().
		VerifyPresentation(gomock.Any(), gomock.Any(), id.Role("admin"), testNonce).
		Return(s.validResult("admin")).
		Times(1)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.AuthenticateWithRole(context.Background(), testToken, "admin")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}
}

func (s *ServiceSuite) TestDenialIsAudited() {
	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		Return(models.RoleCredentialResponse{Nonce: testNonce, Error: "no credential"}, nil)

	_, err := s.service.AuthenticateWithRole(context.Background(), testToken, "admin")
	s.Require().Error(err)

	events := s.auditSink.List()
	s.Require().NotEmpty(events)
	s.Equal(audit.EventAuthorizationDenied, events[len(events)-1].Type)
	s.Equal(testAgent, events[len(events)-1].AgentID)
}

// recordingTracer captures spans so tests can assert on the trace shape.
type recordingTracer struct {
	mu    sync.Mutex
	spans []*recordedSpan
}

type recordedSpan struct {
	name  string
	attrs []tracer.Attribute
	err   error
}

func (t *recordingTracer) Start(ctx context.Context, name string, attrs ...tracer.Attribute) (context.Context, tracer.Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	span := &recordedSpan{name: name, attrs: attrs}
	t.spans = append(t.spans, span)
	return ctx, span
}

func (t *recordingTracer) span(name string) *recordedSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, span := range t.spans {
		if span.name == name {
			return span
		}
	}
	return nil
}

func (s *recordedSpan) End(err error) { s.err = err }

func (s *recordedSpan) SetAttributes(attrs ...tracer.Attribute) {
	s.attrs = append(s.attrs, attrs...)
}

func (s *recordedSpan) AddEvent(string, ...tracer.Attribute) {}

func (s *recordedSpan) attr(key string) (any, bool) {
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return nil, false
}

func (s *ServiceSuite) TestAuthorizationIsTraced() {
	recorder := &recordingTracer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roleCache := cache.New(s.cacheStore, cache.WithLogger(logger))
	svc := New(s.mockTokens, s.mockTransport, s.mockVerifier, roleCache,
		WithLogger(logger),
		WithTracer(recorder),
		WithNonceFunc(func() (string, error) { return testNonce, nil }),
	)

	s.expectBaseAuth()
	s.mockTransport.EXPECT().
		RequestCredential(gomock.Any(), testAgent, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.AgentID, request models.RoleCredentialRequest) (models.RoleCredentialResponse, error) {
			response := s.presentationResponse(request.Nonce)
			response.Presentation.VerifiableCredential = []models.RoleCredential{
				{Type: []string{models.TypeVerifiableCredential, models.TypeRoleCredential}},
			}
			return response, nil
		})
	s.mockVerifier.EXPECT().
		VerifyPresentation(gomock.Any(), gomock.Any(), id.Role("admin"), testNonce).
		Return(s.validResult("admin"))

	_, err := svc.AuthenticateWithRole(context.Background(), testToken, "admin")
	s.Require().NoError(err)

	verify := recorder.span(tracer.SpanVerify)
	s.Require().NotNil(verify, "round trip must emit a verify span")
	count, ok := verify.attr("credential_count")
	s.True(ok)
	s.Equal(int64(1), count)
	s.NoError(verify.err)

	authorize := recorder.span(tracer.SpanAuthorize)
	s.Require().NotNil(authorize)
	outcome, ok := authorize.attr(tracer.AttrOutcome)
	s.True(ok)
	s.Equal(metrics.OutcomeGranted, outcome)
	_, ok = authorize.attr("duration")
	s.True(ok)
}
