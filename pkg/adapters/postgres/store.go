package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements ports.DraftStore on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a migrated pool. See Connect.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Save upserts the draft.
func (s *Store) Save(ctx context.Context, record *domain.DraftRecord) (string, error) {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}
	updated := record.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO drafts (id, last_saved_step, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			last_saved_step = EXCLUDED.last_saved_step,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, id, record.LastSavedStep, payload, updated)
	if err != nil {
		return "", fmt.Errorf("failed to save draft: %w", err)
	}
	return id, nil
}

// Load reads a draft.
func (s *Store) Load(ctx context.Context, id string) (*domain.DraftRecord, error) {
	var (
		rec     domain.DraftRecord
		payload []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, last_saved_step, payload, updated_at FROM drafts WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.LastSavedStep, &payload, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &rec, nil
}

// Discard deletes a draft.
func (s *Store) Discard(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM drafts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	return nil
}

// List returns draft ids, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM drafts ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return ids, nil
}
