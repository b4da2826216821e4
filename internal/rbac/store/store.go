// Package store implements the agent-local credential store: the credentials
// this agent holds, indexed by the role they grant, and the construction of
// challenge-bound presentations from them.
package store

import (
	"context"
	"errors"

	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
)

// ErrNotFound is returned when no credential is stored for the given role.
var ErrNotFound = errors.New("credential not found")

// Persistence is the durable storage contract for role credentials. All
// mutating operations on the credential store complete against Persistence
// before the call returns. SaveAll is atomic: either every role row is
// written or none is, so a multi-role credential can never be half-durable.
type Persistence interface {
	SaveAll(ctx context.Context, roles []id.Role, credential models.RoleCredential) error
	Delete(ctx context.Context, role id.Role) error
	All(ctx context.Context) (map[id.Role]models.RoleCredential, error)
}
