package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks TokenVerifier,CredentialTransport,PresentationVerifier

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"warrant/internal/audit"
	"warrant/internal/rbac/cache"
	"warrant/internal/rbac/models"
	"warrant/internal/rbac/service/mocks"
	id "warrant/pkg/domain"
)

const (
	testToken = "bearer-token"
	testNonce = "nonce0123456789abcdefghijklmnopq"
)

var (
	testAgent = id.AgentID("agent-1")
	testTime  = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
)

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockTokens    *mocks.MockTokenVerifier
	mockTransport *mocks.MockCredentialTransport
	mockVerifier  *mocks.MockPresentationVerifier
	cacheStore    *cache.InMemoryStore
	auditSink     *audit.MemorySink
	service       *Service
	now           time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockTokens = mocks.NewMockTokenVerifier(s.ctrl)
	s.mockTransport = mocks.NewMockCredentialTransport(s.ctrl)
	s.mockVerifier = mocks.NewMockPresentationVerifier(s.ctrl)
	s.cacheStore = cache.NewInMemoryStore()
	s.auditSink = audit.NewMemorySink(64)
	s.now = testTime

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roleCache := cache.New(s.cacheStore,
		cache.WithLogger(logger),
		cache.WithClock(func() time.Time { return s.now }),
	)
	s.service = New(s.mockTokens, s.mockTransport, s.mockVerifier, roleCache,
		WithLogger(logger),
		WithAudit(audit.NewPublisher(s.auditSink, audit.WithLogger(logger))),
		WithRequestTimeout(time.Second),
		WithNonceFunc(func() (string, error) { return testNonce, nil }),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// Shared fixture builders.

func (s *ServiceSuite) expectBaseAuth() {
	s.mockTokens.EXPECT().
		VerifyToken(gomock.Any(), testToken).
		Return(testAgent, map[string]any{"agent_id": testAgent.String()}, nil)
}

func (s *ServiceSuite) presentationResponse(nonce string) models.RoleCredentialResponse {
	return models.RoleCredentialResponse{
		Nonce: nonce,
		Presentation: &models.VerifiablePresentation{
			Type:   []string{"VerifiablePresentation"},
			Holder: "did:example:holder",
		},
	}
}

func (s *ServiceSuite) validResult(role id.Role) models.RoleVerificationResult {
	expires := testTime.Add(time.Hour)
	return models.RoleVerificationResult{
		Valid:          true,
		Role:           role,
		IssuerDID:      "did:example:issuer",
		ExpiresAt:      &expires,
		CredentialHash: "deadbeef",
	}
}
