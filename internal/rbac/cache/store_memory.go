package cache

import (
	"context"
	"sync"
	"time"

	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
)

type cacheKey struct {
	agentID id.AgentID
	role    id.Role
}

// InMemoryStore is an in-memory Store for tests or single-process agents.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[cacheKey]models.CachedRoleEntry
}

// NewInMemoryStore constructs an empty in-memory cache store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[cacheKey]models.CachedRoleEntry)}
}

func (s *InMemoryStore) Get(_ context.Context, agentID id.AgentID, role id.Role) (models.CachedRoleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.entries[cacheKey{agentID, role}]; ok {
		return entry, nil
	}
	return models.CachedRoleEntry{}, ErrNotFound
}

func (s *InMemoryStore) Put(_ context.Context, entry models.CachedRoleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[cacheKey{entry.AgentID, entry.Role}] = entry
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, agentID id.AgentID, role id.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cacheKey{agentID, role}
	if _, ok := s.entries[key]; !ok {
		return ErrNotFound
	}
	delete(s.entries, key)
	return nil
}

func (s *InMemoryStore) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for key, entry := range s.entries {
		if !entry.ExpiresAt.After(cutoff) {
			delete(s.entries, key)
			purged++
		}
	}
	return purged, nil
}
