package store

import (
	"context"
	"sync"

	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
)

// InMemoryPersistence is an in-memory Persistence for tests or ephemeral
// agents. Safe for concurrent access, gone on process exit.
type InMemoryPersistence struct {
	mu          sync.RWMutex
	credentials map[id.Role]models.RoleCredential
}

// NewInMemoryPersistence constructs empty in-memory credential persistence.
func NewInMemoryPersistence() *InMemoryPersistence {
	return &InMemoryPersistence{credentials: make(map[id.Role]models.RoleCredential)}
}

func (p *InMemoryPersistence) SaveAll(_ context.Context, roles []id.Role, credential models.RoleCredential) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, role := range roles {
		p.credentials[role] = credential
	}
	return nil
}

func (p *InMemoryPersistence) Delete(_ context.Context, role id.Role) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.credentials[role]; !ok {
		return ErrNotFound
	}
	delete(p.credentials, role)
	return nil
}

func (p *InMemoryPersistence) All(_ context.Context) (map[id.Role]models.RoleCredential, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[id.Role]models.RoleCredential, len(p.credentials))
	for role, cred := range p.credentials {
		out[role] = cred
	}
	return out, nil
}
