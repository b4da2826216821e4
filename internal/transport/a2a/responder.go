package a2a

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"warrant/contracts/a2a"
	"warrant/internal/rbac/store"
	id "warrant/pkg/domain"
)

// ResponderOption configures the responder.
type ResponderOption func(*Responder)

// Responder serves inbound credential requests from this agent's credential
// store. A request for a role the agent does not hold produces an error
// response, never an HTTP failure; only malformed requests are rejected at
// the transport level.
type Responder struct {
	credentials *store.CredentialStore
	holderDID   id.DID
	logger      *slog.Logger
}

// NewResponder constructs a responder presenting credentials as holderDID.
func NewResponder(credentials *store.CredentialStore, holderDID id.DID, opts ...ResponderOption) *Responder {
	r := &Responder{
		credentials: credentials,
		holderDID:   holderDID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// WithResponderLogger configures a logger for the responder.
func WithResponderLogger(logger *slog.Logger) ResponderOption {
	return func(r *Responder) { r.logger = logger }
}

// Handler returns the HTTP handler for CredentialPath.
func (r *Responder) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		var wire a2a.CredentialRequest
		if err := json.NewDecoder(req.Body).Decode(&wire); err != nil {
			http.Error(w, "request body is not valid JSON", http.StatusBadRequest)
			return
		}
		if err := wire.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		response := a2a.CredentialResponse{Nonce: wire.Nonce}
		role := id.Role(wire.RequiredRole)
		presentation, err := r.credentials.CreatePresentation(ctx, role, r.holderDID, wire.Nonce)
		switch {
		case err != nil:
			r.logger.ErrorContext(ctx, "could not build presentation",
				"role", wire.RequiredRole, "error", err)
			response.Error = fmt.Sprintf("Role '%s' not available", wire.RequiredRole)
		case presentation == nil:
			response.Error = fmt.Sprintf("Role '%s' not available", wire.RequiredRole)
		default:
			raw, marshalErr := json.Marshal(presentation)
			if marshalErr != nil {
				r.logger.ErrorContext(ctx, "could not encode presentation",
					"role", wire.RequiredRole, "error", marshalErr)
				response.Error = fmt.Sprintf("Role '%s' not available", wire.RequiredRole)
			} else {
				response.Presentation = raw
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			r.logger.ErrorContext(ctx, "could not write credential response", "error", err)
		}
	}
}
