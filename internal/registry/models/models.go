// Package models defines the agent directory records.
package models

import (
	"time"

	id "warrant/pkg/domain"
)

// AgentCard describes an agent known to this process: where to reach it and
// which key it signs with. Cards are registered explicitly at startup or via
// the admin API; there is no global registry, each service owns its own
// directory instance.
type AgentCard struct {
	AgentID     id.AgentID `json:"agent_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ServiceURL  string     `json:"service_url"`
	DID         id.DID     `json:"did"`
	// PublicKey is the agent's Ed25519 public key, base64 raw-URL encoded.
	PublicKey string            `json:"public_key"`
	Skills    []string          `json:"skills,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	// SecretHash guards mutating admin operations on the card. Never serialized.
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
