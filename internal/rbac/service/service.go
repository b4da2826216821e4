// Package service implements the role authentication orchestrator: the state
// machine that turns a bearer token and a required role into a grant or a
// denial.
//
// Per attempt the flow is cache check, then at most one remote credential
// round trip, then verification, then a cache write. Concurrent attempts for
// the same (agent, role) key share a single round trip. No failure on this
// path escapes as a panic or raw transport error; everything is converted
// into a coded denial.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"warrant/internal/audit"
	"warrant/internal/rbac/cache"
	"warrant/internal/rbac/metrics"
	"warrant/internal/rbac/tracer"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
	"warrant/pkg/secrets"

	"warrant/internal/rbac/models"
)

// DefaultRequestTimeout bounds the remote credential round trip.
const DefaultRequestTimeout = 10 * time.Second

// AuthContext is the successful outcome of an authorization attempt.
type AuthContext struct {
	AgentID       id.AgentID
	Claims        map[string]any
	VerifiedRoles []id.Role
}

// HasRole reports whether the context carries a verified role.
func (c *AuthContext) HasRole(role id.Role) bool {
	for _, r := range c.VerifiedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Option configures the orchestrator.
type Option func(*Service)

// Service drives role authorization attempts.
type Service struct {
	tokens    TokenVerifier
	transport CredentialTransport
	verifier  PresentationVerifier
	cache     *cache.RoleCache

	logger         *slog.Logger
	tracer         tracer.Tracer
	metrics        *metrics.Metrics
	audit          *audit.Publisher
	requestTimeout time.Duration
	newNonce       func() (string, error)

	// Deduplicates concurrent round trips per (agent, role) key.
	group singleflight.Group
}

// New constructs the orchestrator.
func New(tokens TokenVerifier, transport CredentialTransport, verifier PresentationVerifier, roleCache *cache.RoleCache, opts ...Option) *Service {
	s := &Service{
		tokens:         tokens,
		transport:      transport,
		verifier:       verifier,
		cache:          roleCache,
		requestTimeout: DefaultRequestTimeout,
		newNonce:       secrets.Nonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s
}

// WithLogger configures a logger for the orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTracer configures a tracer for the authorization path.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithMetrics configures the Prometheus metrics the orchestrator records.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit configures an audit publisher for grant and denial events.
func WithAudit(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithRequestTimeout overrides the remote credential round trip deadline.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.requestTimeout = timeout }
}

// WithNonceFunc overrides nonce generation, for tests.
func WithNonceFunc(fn func() (string, error)) Option {
	return func(s *Service) { s.newNonce = fn }
}

// AuthenticateWithRole authorizes the caller identified by token for the
// required role. On success the returned context carries the verified role;
// every failure comes back as a coded error, never a panic.
func (s *Service) AuthenticateWithRole(ctx context.Context, token string, requiredRole id.Role) (authCtx *AuthContext, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanAuthorize,
		tracer.String(tracer.AttrRole, requiredRole.String()))
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "authorization panicked",
				"role", requiredRole.String(), "panic", r)
			authCtx = nil
			err = dErrors.New(dErrors.CodeInternal, fmt.Sprintf("authorization failed unexpectedly: %v", r))
		}
		s.observe(started, err)
		span.SetAttributes(
			tracer.String(tracer.AttrOutcome, outcomeOf(err)),
			tracer.Duration("duration", time.Since(started)))
		span.End(err)
	}()

	if requiredRole == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "required role must not be empty")
	}

	agentID, claims, err := s.tokens.VerifyToken(ctx, token)
	if err != nil {
		s.emit(ctx, audit.EventAuthorizationDenied, agentID, requiredRole, "token verification failed")
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token verification failed")
	}
	span.SetAttributes(tracer.String(tracer.AttrAgentID, agentID.String()))

	if entry := s.cache.GetCachedRole(ctx, agentID, requiredRole); entry != nil {
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
		s.logger.DebugContext(ctx, "role granted from cache",
			"agent_id", agentID.String(), "role", requiredRole.String())
		return s.granted(ctx, agentID, claims, requiredRole), nil
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}

	key := agentID.String() + "\x00" + requiredRole.String()
	_, err, _ = s.group.Do(key, func() (any, error) {
		// A concurrent attempt may have filled the cache while this call
		// waited on the flight group.
		if entry := s.cache.GetCachedRole(ctx, agentID, requiredRole); entry != nil {
			return nil, nil
		}
		return nil, s.requestAndVerify(ctx, agentID, requiredRole)
	})
	if err != nil {
		s.emit(ctx, audit.EventAuthorizationDenied, agentID, requiredRole, err.Error())
		return nil, err
	}
	return s.granted(ctx, agentID, claims, requiredRole), nil
}

// requestAndVerify performs the remote round trip for a cache miss: request a
// presentation bound to a fresh nonce, verify it, record the receipt.
func (s *Service) requestAndVerify(ctx context.Context, agentID id.AgentID, requiredRole id.Role) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCredentialRequest,
		tracer.String(tracer.AttrAgentID, agentID.String()),
		tracer.String(tracer.AttrRole, requiredRole.String()))
	defer func() { span.End(err) }()

	nonce, err := s.newNonce()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not generate challenge nonce")
	}
	request := models.RoleCredentialRequest{
		RequiredRole: requiredRole,
		Context:      "role-credential-request",
		Nonce:        nonce,
	}

	if s.metrics != nil {
		s.metrics.CredentialRequests.Inc()
	}
	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	response, err := s.transport.RequestCredential(reqCtx, agentID, request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || dErrors.HasCode(err, dErrors.CodeTimeout) {
			if s.metrics != nil {
				s.metrics.CredentialTimeouts.Inc()
			}
			return dErrors.Wrap(err, dErrors.CodeTimeout, "credential request timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeForbidden, "credential request failed")
	}

	if response.Error != "" {
		return dErrors.New(dErrors.CodeForbidden, response.Error)
	}
	if response.Presentation == nil {
		return dErrors.New(dErrors.CodeForbidden, "response carries no presentation")
	}
	if response.Nonce != nonce {
		if s.metrics != nil {
			s.metrics.ProtocolViolations.Inc()
		}
		s.logger.WarnContext(ctx, "credential response nonce mismatch",
			"agent_id", agentID.String(), "role", requiredRole.String())
		return dErrors.New(dErrors.CodeProtocolViolation, "response nonce does not match request")
	}

	verifyCtx, verifySpan := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrRole, requiredRole.String()),
		tracer.Int64("credential_count", int64(len(response.Presentation.VerifiableCredential))))
	result := s.verifier.VerifyPresentation(verifyCtx, response.Presentation, requiredRole, nonce)
	if !result.Valid {
		if s.metrics != nil {
			s.metrics.VerificationFailures.WithLabelValues(requiredRole.String()).Inc()
		}
		verifyErr := dErrors.New(dErrors.CodeForbidden, result.ErrorMessage)
		verifySpan.End(verifyErr)
		return verifyErr
	}
	verifySpan.End(nil)

	// The verification already succeeded; a failing cache write only costs a
	// re-verification next time.
	if cacheErr := s.cache.CacheVerifiedRole(ctx, agentID, requiredRole, result.CredentialHash, result.IssuerDID, result.ExpiresAt); cacheErr != nil {
		s.logger.ErrorContext(ctx, "verified role not cached",
			"agent_id", agentID.String(), "role", requiredRole.String(), "error", cacheErr)
	}
	return nil
}

func (s *Service) granted(ctx context.Context, agentID id.AgentID, claims map[string]any, role id.Role) *AuthContext {
	s.emit(ctx, audit.EventAuthorizationGranted, agentID, role, "")
	return &AuthContext{
		AgentID:       agentID,
		Claims:        claims,
		VerifiedRoles: []id.Role{role},
	}
}

func (s *Service) emit(ctx context.Context, eventType audit.EventType, agentID id.AgentID, role id.Role, detail string) {
	if s.audit != nil {
		s.audit.Emit(ctx, eventType, agentID, role, detail)
	}
}

func (s *Service) observe(started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.AuthorizationLatency.Observe(time.Since(started).Seconds())
	s.metrics.AuthorizationAttempts.WithLabelValues(outcomeOf(err)).Inc()
}

// outcomeOf classifies an attempt's result for metrics labels and span
// attributes.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeGranted
	case dErrors.HasCode(err, dErrors.CodeTimeout):
		return metrics.OutcomeTimeout
	case dErrors.HasCode(err, dErrors.CodeInternal):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeDenied
	}
}
