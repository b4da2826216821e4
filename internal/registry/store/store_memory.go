package store

import (
	"context"
	"sync"

	"warrant/internal/registry/models"
	id "warrant/pkg/domain"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
// It is safe for concurrent access but does not persist across process restarts.
type InMemoryStore struct {
	mu    sync.RWMutex
	cards map[id.AgentID]models.AgentCard
}

// NewInMemoryStore constructs an empty in-memory agent directory.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cards: make(map[id.AgentID]models.AgentCard)}
}

// Save stores or overwrites a card by agent ID.
func (s *InMemoryStore) Save(_ context.Context, card models.AgentCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.AgentID] = card
	return nil
}

// FindByID retrieves a card by agent ID or returns ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, agentID id.AgentID) (models.AgentCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if card, ok := s.cards[agentID]; ok {
		return card, nil
	}
	return models.AgentCard{}, ErrNotFound
}

// FindByDID retrieves a card by the agent's DID or returns ErrNotFound.
func (s *InMemoryStore) FindByDID(_ context.Context, did id.DID) (models.AgentCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, card := range s.cards {
		if card.DID == did {
			return card, nil
		}
	}
	return models.AgentCard{}, ErrNotFound
}

// Delete removes a card. Deleting an absent card returns ErrNotFound.
func (s *InMemoryStore) Delete(_ context.Context, agentID id.AgentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[agentID]; !ok {
		return ErrNotFound
	}
	delete(s.cards, agentID)
	return nil
}

// List returns all registered cards.
func (s *InMemoryStore) List(_ context.Context) ([]models.AgentCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AgentCard, 0, len(s.cards))
	for _, card := range s.cards {
		out = append(out, card)
	}
	return out, nil
}
