package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "warrant/pkg/domain-errors"
)

func setRequired(t *testing.T) {
	t.Setenv("WARRANT_TOKEN__SIGNING_KEY", "test-signing-key")
	t.Setenv("WARRANT_AGENT__ID", "agent-1")
	t.Setenv("WARRANT_AGENT__DID", "did:example:agent-1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Hour, cfg.RBAC.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.RBAC.RequestTimeout)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestEnvOverridesDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("WARRANT_SERVER__ADDR", ":9090")
	t.Setenv("WARRANT_RBAC__CACHE_TTL", "15m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, cfg.RBAC.CacheTTL)
}

func TestFileThenEnvPrecedence(t *testing.T) {
	setRequired(t)
	t.Setenv("WARRANT_LOG__LEVEL", "error")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\nserver:\n  addr: \":7070\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr, "file overrides defaults")
	assert.Equal(t, "error", cfg.Log.Level, "env overrides file")
}

func TestMissingSigningKeyRejected(t *testing.T) {
	t.Setenv("WARRANT_AGENT__ID", "agent-1")
	t.Setenv("WARRANT_AGENT__DID", "did:example:agent-1")

	_, err := Load("")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConfiguration, dErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "signing_key")
}

func TestMissingAgentIdentityRejected(t *testing.T) {
	t.Setenv("WARRANT_TOKEN__SIGNING_KEY", "test-signing-key")

	_, err := Load("")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConfiguration, dErrors.CodeOf(err))
}

func TestUnreadableFileRejected(t *testing.T) {
	setRequired(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConfiguration, dErrors.CodeOf(err))
}
