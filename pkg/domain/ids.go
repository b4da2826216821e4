// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	dErrors "warrant/pkg/domain-errors"
)

// Distinct identifier types - the compiler prevents passing an AgentID where a
// DID is expected. Agent IDs and DIDs are opaque strings on the wire, so these
// are string-backed rather than UUID-backed.
type (
	// AgentID identifies an agent within the messaging network (e.g. "billing-agent").
	AgentID string

	// DID is a Decentralized Identifier in URI form (e.g. "did:example:issuer").
	DID string

	// Role is a role name granted by a credential (e.g. "admin").
	Role string
)

// Parse functions - use at trust boundaries (handlers, wire inputs).

func ParseAgentID(s string) (AgentID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "agent ID cannot be empty")
	}
	return AgentID(s), nil
}

func ParseDID(s string) (DID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "DID cannot be empty")
	}
	if !strings.HasPrefix(s, "did:") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid DID format")
	}
	// did:<method>:<method-specific-id>
	if parts := strings.SplitN(s, ":", 3); len(parts) < 3 || parts[1] == "" || parts[2] == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid DID format")
	}
	return DID(s), nil
}

func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	return Role(s), nil
}

// String methods - for logging and map keys.

func (id AgentID) String() string { return string(id) }
func (d DID) String() string      { return string(d) }
func (r Role) String() string     { return string(r) }

// IsNil checks - used for service-layer validation.

func (id AgentID) IsNil() bool { return id == "" }
func (d DID) IsNil() bool      { return d == "" }
func (r Role) IsNil() bool     { return r == "" }

// Method returns the DID method ("example" for "did:example:issuer"), or ""
// when the DID is malformed.
func (d DID) Method() string {
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) < 3 || parts[0] != "did" {
		return ""
	}
	return parts[1]
}
