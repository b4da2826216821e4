// Package cache implements the role cache: verification receipts keyed by
// (agent, role) that let repeated authorization checks skip the cross-agent
// round trip and cryptographic verification within a trust window.
package cache

import (
	"context"
	"errors"
	"time"

	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
)

// ErrNotFound is returned when no entry exists for the given (agent, role) key.
var ErrNotFound = errors.New("cache entry not found")

// Store is the storage contract for cached role entries.
type Store interface {
	Get(ctx context.Context, agentID id.AgentID, role id.Role) (models.CachedRoleEntry, error)
	Put(ctx context.Context, entry models.CachedRoleEntry) error
	Delete(ctx context.Context, agentID id.AgentID, role id.Role) error
	// PurgeExpired removes entries whose expiry is at or before the cutoff
	// and returns how many were removed.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}
