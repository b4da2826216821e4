package httptransport

import (
	"context"

	"warrant/internal/audit"
	registrymodels "warrant/internal/registry/models"
	"warrant/internal/rbac/models"
	rbacservice "warrant/internal/rbac/service"
	id "warrant/pkg/domain"
)

// RoleAuthenticator drives a full role authorization attempt.
type RoleAuthenticator interface {
	AuthenticateWithRole(ctx context.Context, token string, requiredRole id.Role) (*rbacservice.AuthContext, error)
}

// TokenVerifier performs base token authentication without any role check.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (id.AgentID, map[string]any, error)
}

// TokenIssuer mints agent bearer tokens.
type TokenIssuer interface {
	GenerateToken(ctx context.Context, agentID id.AgentID) (string, error)
}

// RegistryService is the agent directory surface the routes expose.
type RegistryService interface {
	Register(ctx context.Context, card registrymodels.AgentCard, secret string) error
	Resolve(ctx context.Context, agentID id.AgentID) (registrymodels.AgentCard, error)
	Deregister(ctx context.Context, agentID id.AgentID, secret string) error
	List(ctx context.Context) ([]registrymodels.AgentCard, error)
	Authenticate(ctx context.Context, agentID id.AgentID, secret string) error
}

// CredentialAdmin is the credential store surface the admin routes expose.
type CredentialAdmin interface {
	AddCredential(ctx context.Context, credential models.RoleCredential) error
	GetCredential(ctx context.Context, role id.Role) *models.RoleCredential
	Roles(ctx context.Context) []id.Role
	RemoveCredential(ctx context.Context, role id.Role) (bool, error)
}

// CacheAdmin exposes role cache invalidation.
type CacheAdmin interface {
	Invalidate(ctx context.Context, agentID id.AgentID, role id.Role) (bool, error)
}

// AuditReader lists recorded audit events.
type AuditReader interface {
	List() []audit.Event
}
