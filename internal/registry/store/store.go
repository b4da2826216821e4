// Package store persists agent cards.
package store

import (
	"context"
	"errors"

	"warrant/internal/registry/models"
	id "warrant/pkg/domain"
)

// ErrNotFound is returned when no card exists for the given key.
var ErrNotFound = errors.New("agent card not found")

// Store is the persistence contract for the agent directory.
type Store interface {
	Save(ctx context.Context, card models.AgentCard) error
	FindByID(ctx context.Context, agentID id.AgentID) (models.AgentCard, error)
	FindByDID(ctx context.Context, did id.DID) (models.AgentCard, error)
	Delete(ctx context.Context, agentID id.AgentID) error
	List(ctx context.Context) ([]models.AgentCard, error)
}
