package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

const (
	testKey      = "0123456789abcdef0123456789abcdef"
	testIssuer   = "https://warrant.example"
	testAudience = "warrant-agents"
)

func newService(t *testing.T, now *time.Time, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return *now })}, opts...)
	s, err := New(testKey, testIssuer, testAudience, opts...)
	require.NoError(t, err)
	return s
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	s := newService(t, &now)
	ctx := context.Background()

	token, err := s.GenerateToken(ctx, "agent-1")
	require.NoError(t, err)

	agentID, claims, err := s.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id.AgentID("agent-1"), agentID)
	assert.Equal(t, "agent-1", claims["agent_id"])
	assert.Equal(t, testIssuer, claims["iss"])
	assert.NotEmpty(t, claims["jti"])
}

func TestExpiredTokenRejected(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	s := newService(t, &now, WithTTL(time.Minute))
	ctx := context.Background()

	token, err := s.GenerateToken(ctx, "agent-1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, _, err = s.VerifyToken(ctx, token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestWrongKeyRejected(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	issuing := newService(t, &now)
	verifying, err := New("another-key-another-key-another!", testIssuer, testAudience,
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	token, err := issuing.GenerateToken(context.Background(), "agent-1")
	require.NoError(t, err)

	_, _, err = verifying.VerifyToken(context.Background(), token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestWrongIssuerRejected(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	issuing, err := New(testKey, "https://other.example", testAudience,
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	verifying := newService(t, &now)

	token, err := issuing.GenerateToken(context.Background(), "agent-1")
	require.NoError(t, err)

	_, _, err = verifying.VerifyToken(context.Background(), token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestEmptyTokenRejected(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	s := newService(t, &now)

	_, _, err := s.VerifyToken(context.Background(), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestEmptySigningKeyRejected(t *testing.T) {
	_, err := New("", testIssuer, testAudience)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}
