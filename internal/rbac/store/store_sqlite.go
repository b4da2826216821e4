package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"warrant/internal/rbac/models"
	id "warrant/pkg/domain"
)

// SQLitePersistence stores role credentials as JSON documents in SQLite,
// one row per role. The schema is managed by the platform migrations.
type SQLitePersistence struct {
	db *sql.DB
}

// NewSQLite constructs SQLite-backed credential persistence.
func NewSQLite(db *sql.DB) *SQLitePersistence {
	return &SQLitePersistence{db: db}
}

// SaveAll writes one row per role inside a single transaction so a failure
// partway through a multi-role credential leaves nothing durable.
func (p *SQLitePersistence) SaveAll(ctx context.Context, roles []id.Role, credential models.RoleCredential) error {
	doc, err := json.Marshal(credential)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO role_credentials (role, credential, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (role) DO UPDATE SET
			credential = excluded.credential,
			updated_at = excluded.updated_at`
	now := time.Now().UTC()
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx, query, role.String(), string(doc), now); err != nil {
			return fmt.Errorf("save credential for role %q: %w", role, err)
		}
	}
	return tx.Commit()
}

func (p *SQLitePersistence) Delete(ctx context.Context, role id.Role) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM role_credentials WHERE role = ?`, role.String())
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *SQLitePersistence) All(ctx context.Context) (map[id.Role]models.RoleCredential, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT role, credential FROM role_credentials`)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()

	out := make(map[id.Role]models.RoleCredential)
	for rows.Next() {
		var role, doc string
		if err := rows.Scan(&role, &doc); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		var cred models.RoleCredential
		if err := json.Unmarshal([]byte(doc), &cred); err != nil {
			return nil, fmt.Errorf("decode credential for role %q: %w", role, err)
		}
		out[id.Role(role)] = cred
	}
	return out, rows.Err()
}
