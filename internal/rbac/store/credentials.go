package store

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"warrant/internal/rbac/models"
	"warrant/internal/rbac/sign"
	id "warrant/pkg/domain"
	dErrors "warrant/pkg/domain-errors"
)

// Option configures the credential store.
type Option func(*CredentialStore)

// CredentialStore holds this agent's role credentials. Reads are served from
// an in-memory index; every mutation persists durably before returning. If
// persistence fails the in-memory index is left exactly as it was.
type CredentialStore struct {
	mu          sync.RWMutex
	credentials map[id.Role]models.RoleCredential

	persistence Persistence
	logger      *slog.Logger
	now         func() time.Time

	// Holder signing identity, required for presentation creation.
	holderKey          ed25519.PrivateKey
	verificationMethod string
}

// New creates a credential store and loads the persisted credentials into the
// in-memory index.
func New(ctx context.Context, persistence Persistence, opts ...Option) (*CredentialStore, error) {
	s := &CredentialStore{
		credentials: make(map[id.Role]models.RoleCredential),
		persistence: persistence,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	loaded, err := persistence.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "could not load credentials")
	}
	s.credentials = loaded
	if s.credentials == nil {
		s.credentials = make(map[id.Role]models.RoleCredential)
	}
	s.logger.InfoContext(ctx, "credential store loaded", "roles", len(s.credentials))
	return s, nil
}

// WithLogger configures a logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *CredentialStore) { s.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *CredentialStore) { s.now = now }
}

// WithHolderKey configures the Ed25519 key and verification method used to
// sign presentations created from this store.
func WithHolderKey(key ed25519.PrivateKey, verificationMethod string) Option {
	return func(s *CredentialStore) {
		s.holderKey = key
		s.verificationMethod = verificationMethod
	}
}

// AddCredential indexes the credential under every role it grants,
// overwriting any previous credential for those roles. The credential is
// persisted before the call returns.
func (s *CredentialStore) AddCredential(ctx context.Context, credential models.RoleCredential) error {
	roles := credential.CredentialSubject.RoleSet()
	if len(roles) == 0 {
		return dErrors.New(dErrors.CodeValidation, "credential grants no roles")
	}
	if !credential.HasType(models.TypeRoleCredential) {
		return dErrors.New(dErrors.CodeValidation, "credential is not a role credential")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Durable first, and in one batch: a failed persist leaves both the
	// backing store and the in-memory index exactly as they were.
	if err := s.persistence.SaveAll(ctx, roles, credential); err != nil {
		s.logger.ErrorContext(ctx, "credential persist failed",
			"credential_id", credential.ID, "error", err)
		return dErrors.Wrap(err, dErrors.CodeStorage, "could not persist credential")
	}
	for _, role := range roles {
		s.credentials[role] = credential
	}
	s.logger.InfoContext(ctx, "credential added",
		"credential_id", credential.ID, "roles", len(roles))
	return nil
}

// GetCredential returns the credential stored for a role, or nil when absent.
func (s *CredentialStore) GetCredential(_ context.Context, role id.Role) *models.RoleCredential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cred, ok := s.credentials[role]; ok {
		return &cred
	}
	return nil
}

// HasRole reports whether a credential is stored for the role.
func (s *CredentialStore) HasRole(_ context.Context, role id.Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.credentials[role]
	return ok
}

// Roles returns the sorted set of roles this store holds credentials for.
func (s *CredentialStore) Roles(_ context.Context) []id.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.Role, 0, len(s.credentials))
	for role := range s.credentials {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RemoveCredential deletes the credential for a role. Returns false when no
// credential was stored for it.
func (s *CredentialStore) RemoveCredential(ctx context.Context, role id.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[role]; !ok {
		return false, nil
	}
	if err := s.persistence.Delete(ctx, role); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.ErrorContext(ctx, "credential delete failed",
			"role", role.String(), "error", err)
		return false, dErrors.Wrap(err, dErrors.CodeStorage, "could not delete credential")
	}
	delete(s.credentials, role)
	s.logger.InfoContext(ctx, "credential removed", "role", role.String())
	return true, nil
}

// CreatePresentation wraps the credential for a role in a fresh presentation
// bound to the challenge, signed with the holder key. Returns nil when no
// credential exists for the role.
func (s *CredentialStore) CreatePresentation(ctx context.Context, role id.Role, holderDID id.DID, challenge string) (*models.VerifiablePresentation, error) {
	if challenge == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "presentation challenge is required")
	}
	if s.holderKey == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "credential store has no holder signing key")
	}

	cred := s.GetCredential(ctx, role)
	if cred == nil {
		return nil, nil
	}

	presentation := &models.VerifiablePresentation{
		Context:              []string{"https://www.w3.org/2018/credentials/v1"},
		Type:                 []string{"VerifiablePresentation"},
		Holder:               holderDID,
		VerifiableCredential: []models.RoleCredential{*cred},
	}
	if err := sign.SignPresentation(presentation, s.holderKey, s.verificationMethod, challenge, s.now()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not sign presentation")
	}
	s.logger.InfoContext(ctx, "presentation created",
		"role", role.String(), "holder", holderDID.String())
	return presentation, nil
}

// ImportCredentialFile reads a single credential document from a JSON file
// and adds it to the store. Malformed files leave the store unchanged.
func (s *CredentialStore) ImportCredentialFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "could not read credential file")
	}
	var cred models.RoleCredential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "credential file is malformed")
	}
	return s.AddCredential(ctx, cred)
}

// ExportCredentialFile writes the credential for a role to a JSON file.
func (s *CredentialStore) ExportCredentialFile(ctx context.Context, role id.Role, path string) error {
	cred := s.GetCredential(ctx, role)
	if cred == nil {
		return dErrors.New(dErrors.CodeNotFound, "no credential stored for role "+role.String())
	}
	raw, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize credential")
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "could not write credential file")
	}
	s.logger.InfoContext(ctx, "credential exported", "role", role.String(), "path", path)
	return nil
}
