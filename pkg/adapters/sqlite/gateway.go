package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
)

// Gateway implements ports.SubmissionGateway and ports.CompanyDirectory on
// the companies table.
type Gateway struct {
	db   *sql.DB
	keys domain.KeyExtractor
}

// NewGateway wraps an opened database. keys extracts tax id and name from
// submitted forms.
func NewGateway(db *sql.DB, keys domain.KeyExtractor) *Gateway {
	return &Gateway{db: db, keys: keys}
}

// Submit inserts the company at the ONBOARDING stage in one transaction.
func (g *Gateway) Submit(ctx context.Context, form domain.FormState) (string, error) {
	keys := g.keys(form)
	payload, err := json.Marshal(form)
	if err != nil {
		return "", fmt.Errorf("marshal company: %w: %w", domain.ErrGatewayRejected, err)
	}

	var taxKey any
	if k := domain.NormalizeTaxID(keys.TaxID); k != "" {
		taxKey = k
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w: %w", domain.ErrGatewayUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO companies (id, tax_id, tax_key, name, stage, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, keys.TaxID, taxKey, keys.Name, string(domain.StageOnboarding), string(payload), time.Now().UTC().UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("tax id %s already registered: %w", keys.TaxID, domain.ErrGatewayRejected)
		}
		return "", fmt.Errorf("insert company: %w: %w", domain.ErrGatewayUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w: %w", domain.ErrGatewayUnavailable, err)
	}
	return id, nil
}

// TaxIDExists reports whether a company with taxID was committed.
func (g *Gateway) TaxIDExists(ctx context.Context, taxID string) (bool, error) {
	var n int
	err := g.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM companies WHERE tax_key = ?`, domain.NormalizeTaxID(taxID),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup tax id: %w", err)
	}
	return n > 0, nil
}

// Record returns a committed company.
func (g *Gateway) Record(ctx context.Context, id string) (*domain.CompanyRecord, error) {
	var (
		rec     domain.CompanyRecord
		stage   string
		payload string
		created int64
	)
	err := g.db.QueryRowContext(ctx,
		`SELECT id, tax_id, name, stage, payload, created_at FROM companies WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.TaxID, &rec.Name, &stage, &payload, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("company %s: %w", id, sql.ErrNoRows)
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return nil, err
	}
	rec.Stage = domain.Stage(stage)
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, nil
}
