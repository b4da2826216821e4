package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"warrant/internal/registry/models"
	id "warrant/pkg/domain"
)

// SQLiteStore persists agent cards in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite constructs a SQLite-backed agent directory. The schema is managed
// by the platform database migrations.
func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Save(ctx context.Context, card models.AgentCard) error {
	metadata, err := json.Marshal(card.Metadata)
	if err != nil {
		return fmt.Errorf("marshal card metadata: %w", err)
	}
	query := `
		INSERT INTO agent_cards (agent_id, name, description, service_url, did, public_key, skills, metadata, secret_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (agent_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			service_url = excluded.service_url,
			did = excluded.did,
			public_key = excluded.public_key,
			skills = excluded.skills,
			metadata = excluded.metadata,
			secret_hash = excluded.secret_hash,
			updated_at = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, query,
		card.AgentID.String(), card.Name, card.Description, card.ServiceURL,
		card.DID.String(), card.PublicKey, strings.Join(card.Skills, " "),
		string(metadata), card.SecretHash, card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save agent card: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, agentID id.AgentID) (models.AgentCard, error) {
	row := s.db.QueryRowContext(ctx, selectCard+` WHERE agent_id = ?`, agentID.String())
	return scanCard(row)
}

func (s *SQLiteStore) FindByDID(ctx context.Context, did id.DID) (models.AgentCard, error) {
	row := s.db.QueryRowContext(ctx, selectCard+` WHERE did = ?`, did.String())
	return scanCard(row)
}

func (s *SQLiteStore) Delete(ctx context.Context, agentID id.AgentID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agent_cards WHERE agent_id = ?`, agentID.String())
	if err != nil {
		return fmt.Errorf("delete agent card: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete agent card: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.AgentCard, error) {
	rows, err := s.db.QueryContext(ctx, selectCard+` ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("list agent cards: %w", err)
	}
	defer rows.Close()

	var cards []models.AgentCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

const selectCard = `
	SELECT agent_id, name, description, service_url, did, public_key, skills, metadata, secret_hash, created_at, updated_at
	FROM agent_cards`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (models.AgentCard, error) {
	var card models.AgentCard
	var agentID, did, skills, metadata string
	err := row.Scan(&agentID, &card.Name, &card.Description, &card.ServiceURL,
		&did, &card.PublicKey, &skills, &metadata, &card.SecretHash,
		&card.CreatedAt, &card.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AgentCard{}, ErrNotFound
	}
	if err != nil {
		return models.AgentCard{}, fmt.Errorf("scan agent card: %w", err)
	}
	card.AgentID = id.AgentID(agentID)
	card.DID = id.DID(did)
	if skills != "" {
		card.Skills = strings.Fields(skills)
	}
	if metadata != "" && metadata != "null" {
		if err := json.Unmarshal([]byte(metadata), &card.Metadata); err != nil {
			return models.AgentCard{}, fmt.Errorf("decode card metadata: %w", err)
		}
	}
	return card, nil
}
