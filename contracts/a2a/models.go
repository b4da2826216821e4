// Package a2a defines the wire contract for agent-to-agent credential
// exchange. Both the requesting client and the responding endpoint decode
// into these shapes before any domain type is constructed.
package a2a

import (
	"encoding/json"
	"errors"
)

// MinNonceLength is the minimum accepted challenge length. Shorter nonces are
// rejected as guessable.
const MinNonceLength = 16

// CredentialRequest asks the receiving agent to present a credential for a
// role, bound to the nonce.
type CredentialRequest struct {
	RequiredRole string `json:"required_role"`
	Context      string `json:"context,omitempty"`
	Nonce        string `json:"nonce"`
}

// Validate checks the request shape.
func (r CredentialRequest) Validate() error {
	if r.RequiredRole == "" {
		return errors.New("required_role must not be empty")
	}
	if len(r.Nonce) < MinNonceLength {
		return errors.New("nonce must be at least 16 characters")
	}
	return nil
}

// CredentialResponse carries either a presentation or an error, never both,
// and echoes the request nonce.
type CredentialResponse struct {
	Nonce        string          `json:"nonce"`
	Presentation json.RawMessage `json:"presentation,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Validate enforces the tagged-union shape: exactly one of presentation or
// error must be present.
func (r CredentialResponse) Validate() error {
	if r.Nonce == "" {
		return errors.New("nonce must not be empty")
	}
	hasPresentation := len(r.Presentation) > 0
	hasError := r.Error != ""
	if hasPresentation == hasError {
		return errors.New("response must carry exactly one of presentation or error")
	}
	return nil
}
