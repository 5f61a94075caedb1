package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.DraftStore on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore wraps an opened database. See Open.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, last_saved_step, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_saved_step = excluded.last_saved_step,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, id, record.LastSavedStep, string(payload), updated.UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to save draft: %w", err)
	}
	return id, nil
}

// Load reads a draft.
func (s *Store) Load(ctx context.Context, id string) (*domain.DraftRecord, error) {
	var (
		rec     domain.DraftRecord
		payload string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, last_saved_step, payload, updated_at FROM drafts WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.LastSavedStep, &payload, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return &rec, nil
}

// Discard deletes a draft.
func (s *Store) Discard(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	return nil
}

// List returns draft ids, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM drafts ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
