// Package models defines the credential and presentation model for role-based
// access control between agents.
//
// The shapes follow the W3C Verifiable Credentials data model: an issuer
// attests that a subject holds one or more roles (RoleCredential), and a
// holder wraps credentials in a challenge-bound VerifiablePresentation to
// prove possession. These are pure data types with derivation helpers; all
// I/O and trust decisions live in the store, verifier, and service packages.
package models

import (
	"sort"
	"time"

	id "warrant/pkg/domain"
)

// TypeRoleCredential is the credential type marker a role credential must carry.
const TypeRoleCredential = "RoleCredential"

// TypeVerifiableCredential is the base W3C credential type.
const TypeVerifiableCredential = "VerifiableCredential"

// Proof is a linked-data style proof attached to a credential or presentation.
// A credential without a proof is never treated as verified regardless of its
// other content.
type Proof struct {
	Type               string     `json:"type"`
	Created            *time.Time `json:"created,omitempty"`
	VerificationMethod string     `json:"verificationMethod"`
	ProofPurpose       string     `json:"proofPurpose,omitempty"`
	// Challenge binds a presentation proof to the request nonce. Empty on
	// credential-level proofs.
	Challenge  string `json:"challenge,omitempty"`
	ProofValue string `json:"proofValue"`
}

// Complete reports whether all structurally required proof fields are present.
func (p *Proof) Complete() bool {
	return p != nil &&
		p.Type != "" &&
		p.Created != nil && !p.Created.IsZero() &&
		p.VerificationMethod != "" &&
		p.ProofValue != ""
}

// CredentialSubject carries the holder DID plus the role claim. Issuers emit
// either a single "role" or a "roles" list; both shapes are accepted.
type CredentialSubject struct {
	ID    id.DID   `json:"id"`
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// RoleSet returns the set of roles present in the subject, deduplicated and
// sorted. The result is deterministic and order-independent so it can feed
// containment checks.
func (s CredentialSubject) RoleSet() []id.Role {
	seen := make(map[string]struct{}, len(s.Roles)+1)
	if s.Role != "" {
		seen[s.Role] = struct{}{}
	}
	for _, r := range s.Roles {
		if r != "" {
			seen[r] = struct{}{}
		}
	}
	out := make([]id.Role, 0, len(seen))
	for r := range seen {
		out = append(out, id.Role(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasRole reports whether the subject grants the given role.
func (s CredentialSubject) HasRole(role id.Role) bool {
	for _, r := range s.RoleSet() {
		if r == role {
			return true
		}
	}
	return false
}

// RoleCredential is an issuer's attestation that a subject holds a role.
// Read-only after import except for deletion.
type RoleCredential struct {
	Context           []string          `json:"@context,omitempty"`
	ID                string            `json:"id"`
	Type              []string          `json:"type"`
	Issuer            id.DID            `json:"issuer"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	ExpirationDate    *time.Time        `json:"expirationDate,omitempty"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	Proof             *Proof            `json:"proof,omitempty"`
}

// HasType reports whether the credential's type set contains t.
func (c RoleCredential) HasType(t string) bool {
	for _, ct := range c.Type {
		if ct == t {
			return true
		}
	}
	return false
}

// Expired reports whether the credential's expiration date is at or before now.
// Credentials without an expiration date never expire on their own; the role
// cache bounds their trust window instead.
func (c RoleCredential) Expired(now time.Time) bool {
	return c.ExpirationDate != nil && !c.ExpirationDate.After(now)
}

// VerifiablePresentation wraps one or more credentials with the holder's DID
// and a presentation-level proof. Presentations are constructed fresh per
// challenge so a captured presentation cannot be replayed.
type VerifiablePresentation struct {
	Context              []string         `json:"@context,omitempty"`
	Type                 []string         `json:"type"`
	Holder               id.DID           `json:"holder"`
	VerifiableCredential []RoleCredential `json:"verifiableCredential"`
	Proof                *Proof           `json:"proof,omitempty"`
}

// RoleVerificationResult is the outcome of verifying a presentation against a
// required role. ErrorMessage is set iff Valid is false.
type RoleVerificationResult struct {
	Valid          bool
	Role           id.Role
	IssuerDID      id.DID
	ExpiresAt      *time.Time
	CredentialHash string
	ErrorMessage   string
}

// Invalid builds a failed verification result with a human-readable reason.
func Invalid(msg string) RoleVerificationResult {
	return RoleVerificationResult{Valid: false, ErrorMessage: msg}
}

// CachedRoleEntry is a verification receipt: proof that (AgentID, Role) was
// verified at VerifiedAt and may be trusted until ExpiresAt. The cache owns
// these receipts, never the credentials themselves.
type CachedRoleEntry struct {
	AgentID        id.AgentID
	Role           id.Role
	CredentialHash string
	IssuerDID      id.DID
	VerifiedAt     time.Time
	ExpiresAt      time.Time
}

// RoleCredentialRequest asks a remote agent to present a credential for a role.
// The nonce must be echoed back by the responder.
type RoleCredentialRequest struct {
	RequiredRole id.Role
	Context      string
	Nonce        string
}

// RoleCredentialResponse is the decoded, validated response to a credential
// request: exactly one of Presentation or Error is set. The transport layer
// enforces the tagged-union shape before this type is constructed.
type RoleCredentialResponse struct {
	Nonce        string
	Presentation *VerifiablePresentation
	Error        string
}
