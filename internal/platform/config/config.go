// Package config loads the server configuration from an optional YAML file
// and WARRANT_-prefixed environment variables, env taking precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	dErrors "warrant/pkg/domain-errors"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Token    TokenConfig    `koanf:"token"`
	Agent    AgentConfig    `koanf:"agent"`
	RBAC     RBACConfig     `koanf:"rbac"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `koanf:"level"`
}

// DatabaseConfig selects the storage backend. An empty path keeps everything
// in memory.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// TokenConfig configures agent bearer tokens.
type TokenConfig struct {
	SigningKey string        `koanf:"signing_key"`
	Issuer     string        `koanf:"issuer"`
	Audience   string        `koanf:"audience"`
	TTL        time.Duration `koanf:"ttl"`
}

// AgentConfig is this agent's own identity.
type AgentConfig struct {
	ID                 string `koanf:"id"`
	Name               string `koanf:"name"`
	DID                string `koanf:"did"`
	ServiceURL         string `koanf:"service_url"`
	HolderKeyFile      string `koanf:"holder_key_file"`
	VerificationMethod string `koanf:"verification_method"`
}

// RBACConfig tunes the authorization path.
type RBACConfig struct {
	CacheTTL            time.Duration `koanf:"cache_ttl"`
	RequestTimeout      time.Duration `koanf:"request_timeout"`
	OutboundRateLimit   float64       `koanf:"outbound_rate_limit"`
	OutboundBurst       int           `koanf:"outbound_burst"`
	CredentialDirectory string        `koanf:"credential_directory"`
}

// TracingConfig toggles trace export.
type TracingConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Load reads configuration from the given file path (optional) and the
// environment. Double underscore separates sections, so
// WARRANT_TOKEN__SIGNING_KEY maps to token.signing_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("server.addr", ":8080")
	k.Set("server.request_timeout", "30s")
	k.Set("log.level", "info")
	k.Set("token.issuer", "https://warrant.local")
	k.Set("token.audience", "warrant-agents")
	k.Set("token.ttl", "1h")
	k.Set("rbac.cache_ttl", "1h")
	k.Set("rbac.request_timeout", "10s")
	k.Set("rbac.outbound_rate_limit", 50.0)
	k.Set("rbac.outbound_burst", 100)
	k.Set("tracing.enabled", false)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "could not read config file")
		}
	}

	if err := k.Load(env.Provider("WARRANT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "WARRANT_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "could not read environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "could not decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields without which the server cannot start.
func (c *Config) Validate() error {
	if c.Token.SigningKey == "" {
		return dErrors.New(dErrors.CodeConfiguration, "token.signing_key must be set")
	}
	if c.Agent.ID == "" {
		return dErrors.New(dErrors.CodeConfiguration, "agent.id must be set")
	}
	if c.Agent.DID == "" {
		return dErrors.New(dErrors.CodeConfiguration, "agent.did must be set")
	}
	return nil
}
