// Package service implements the agent directory: registration and resolution
// of agent cards. The directory is an explicit dependency created at startup
// and passed by reference to whatever needs it (DID resolution, transport
// endpoint lookup); there is no process-global registry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"warrant/internal/registry/models"
	"warrant/internal/registry/store"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
	"warrant/pkg/secrets"
)

// Option configures the registry service.
type Option func(*Service)

// Service owns the agent directory.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a registry service backed by the given store.
func New(s store.Store, opts ...Option) *Service {
	svc := &Service{
		store: s,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Register validates and stores an agent card. The secret guards later
// mutations of the card; only its bcrypt hash is persisted.
func (s *Service) Register(ctx context.Context, card models.AgentCard, secret string) error {
	if card.AgentID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "agent ID is required")
	}
	if card.DID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "agent DID is required")
	}
	if _, err := id.ParseDID(card.DID.String()); err != nil {
		return err
	}
	if card.PublicKey == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "agent public key is required")
	}

	if secret != "" {
		hash, err := secrets.Hash(secret)
		if err != nil {
			return err
		}
		card.SecretHash = hash
	}

	now := s.now()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	if err := s.store.Save(ctx, card); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "could not save agent card")
	}
	s.logger.InfoContext(ctx, "agent registered",
		"agent_id", card.AgentID.String(),
		"did", card.DID.String(),
	)
	return nil
}

// Resolve returns the card for an agent ID.
func (s *Service) Resolve(ctx context.Context, agentID id.AgentID) (models.AgentCard, error) {
	card, err := s.store.FindByID(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return models.AgentCard{}, dErrors.New(dErrors.CodeNotFound, "unknown agent: "+agentID.String())
	}
	if err != nil {
		return models.AgentCard{}, dErrors.Wrap(err, dErrors.CodeStorage, "could not resolve agent")
	}
	return card, nil
}

// ResolveByDID returns the card whose DID matches.
func (s *Service) ResolveByDID(ctx context.Context, did id.DID) (models.AgentCard, error) {
	card, err := s.store.FindByDID(ctx, did)
	if errors.Is(err, store.ErrNotFound) {
		return models.AgentCard{}, dErrors.New(dErrors.CodeNotFound, "unknown DID: "+did.String())
	}
	if err != nil {
		return models.AgentCard{}, dErrors.Wrap(err, dErrors.CodeStorage, "could not resolve DID")
	}
	return card, nil
}

// Authenticate checks an agent's registration secret. Cards registered
// without a secret cannot authenticate at all.
func (s *Service) Authenticate(ctx context.Context, agentID id.AgentID, secret string) error {
	card, err := s.Resolve(ctx, agentID)
	if err != nil {
		return err
	}
	if card.SecretHash == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "agent has no registration secret")
	}
	if err := secrets.Verify(secret, card.SecretHash); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid registration secret")
	}
	return nil
}

// Deregister removes an agent card after verifying the registration secret.
// Cards registered without a secret can be removed freely.
func (s *Service) Deregister(ctx context.Context, agentID id.AgentID, secret string) error {
	card, err := s.Resolve(ctx, agentID)
	if err != nil {
		return err
	}
	if card.SecretHash != "" {
		if err := secrets.Verify(secret, card.SecretHash); err != nil {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid registration secret")
		}
	}
	if err := s.store.Delete(ctx, agentID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "could not delete agent card")
	}
	s.logger.InfoContext(ctx, "agent deregistered", "agent_id", agentID.String())
	return nil
}

// List returns all registered cards.
func (s *Service) List(ctx context.Context) ([]models.AgentCard, error) {
	cards, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "could not list agent cards")
	}
	return cards, nil
}
