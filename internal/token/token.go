// Package token issues and verifies the HS256 bearer tokens agents present
// for base authentication, before any role check happens.
package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = time.Hour

// AgentTokenClaims are the JWT claims carried by agent bearer tokens.
type AgentTokenClaims struct {
	AgentID string `json:"agent_id"`
	jwt.RegisteredClaims
}

// Option configures the token service.
type Option func(*Service)

// Service creates and validates agent tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

// New constructs a token service.
func New(signingKey, issuer, audience string, opts ...Option) (*Service, error) {
	if signingKey == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "token signing key must not be empty")
	}
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// GenerateToken issues a signed token for the agent.
func (s *Service) GenerateToken(_ context.Context, agentID id.AgentID) (string, error) {
	if agentID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "agent id must not be empty")
	}
	now := s.now()
	claims := AgentTokenClaims{
		AgentID: agentID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agentID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign token")
	}
	return signed, nil
}

// VerifyToken validates the token signature, algorithm, issuer, audience, and
// lifetime, and returns the agent identity plus its claims.
func (s *Service) VerifyToken(_ context.Context, tokenString string) (id.AgentID, map[string]any, error) {
	if tokenString == "" {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}

	claims := new(AgentTokenClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing algorithm")
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	agentID, err := id.ParseAgentID(claims.AgentID)
	if err != nil {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no agent identity")
	}
	return agentID, map[string]any{
		"agent_id": claims.AgentID,
		"sub":      claims.Subject,
		"iss":      claims.Issuer,
		"jti":      claims.ID,
	}, nil
}
