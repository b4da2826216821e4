package service

import (
	"context"

	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
)

// TokenVerifier resolves the calling agent's identity from its bearer token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (id.AgentID, map[string]any, error)
}

// CredentialTransport delivers a credential request to the target agent and
// returns its response. Implementations must honor the context deadline.
type CredentialTransport interface {
	RequestCredential(ctx context.Context, target id.AgentID, request models.RoleCredentialRequest) (models.RoleCredentialResponse, error)
}

// PresentationVerifier validates a presentation against a required role and
// challenge. It reports failures in the result, never as an error.
type PresentationVerifier interface {
	VerifyPresentation(ctx context.Context, presentation *models.VerifiablePresentation, requiredRole id.Role, challenge string) models.RoleVerificationResult
}
