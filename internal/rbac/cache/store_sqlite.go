package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
)

// SQLiteStore persists cache entries in SQLite so trust windows survive
// process restarts. The schema is managed by the platform migrations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite constructs SQLite-backed cache storage.
func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, agentID id.AgentID, role id.Role) (models.CachedRoleEntry, error) {
	entry := models.CachedRoleEntry{AgentID: agentID, Role: role}
	err := s.db.QueryRowContext(ctx, `
		SELECT credential_hash, issuer_did, verified_at, expires_at
		FROM role_cache
		WHERE agent_id = ? AND role = ?`,
		agentID.String(), role.String(),
	).Scan(&entry.CredentialHash, &entry.IssuerDID, &entry.VerifiedAt, &entry.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CachedRoleEntry{}, ErrNotFound
	}
	if err != nil {
		return models.CachedRoleEntry{}, fmt.Errorf("get cache entry: %w", err)
	}
	return entry, nil
}

func (s *SQLiteStore) Put(ctx context.Context, entry models.CachedRoleEntry) error {
	query := `
		INSERT INTO role_cache (agent_id, role, credential_hash, issuer_did, verified_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (agent_id, role) DO UPDATE SET
			credential_hash = excluded.credential_hash,
			issuer_did = excluded.issuer_did,
			verified_at = excluded.verified_at,
			expires_at = excluded.expires_at`
	_, err := s.db.ExecContext(ctx, query,
		entry.AgentID.String(), entry.Role.String(), entry.CredentialHash,
		entry.IssuerDID.String(), entry.VerifiedAt.UTC(), entry.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, agentID id.AgentID, role id.Role) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM role_cache WHERE agent_id = ? AND role = ?`,
		agentID.String(), role.String())
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM role_cache WHERE expires_at <= ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge cache entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cache entries: %w", err)
	}
	return int(affected), nil
}
