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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Gateway implements ports.SubmissionGateway and ports.CompanyDirectory on
// the companies table.
type Gateway struct {
	pool *pgxpool.Pool
	keys domain.KeyExtractor
}

// NewGateway wraps a migrated pool.
func NewGateway(pool *pgxpool.Pool, keys domain.KeyExtractor) *Gateway {
	return &Gateway{pool: pool, keys: keys}
}

// Submit inserts the company at the ONBOARDING stage in one transaction.
func (g *Gateway) Submit(ctx context.Context, form domain.FormState) (string, error) {
	keys := g.keys(form)
	payload, err := json.Marshal(form)
	if err != nil {
		return "", fmt.Errorf("marshal company: %w: %w", domain.ErrGatewayRejected, err)
	}

	var taxKey *string
	if k := domain.NormalizeTaxID(keys.TaxID); k != "" {
		taxKey = &k
	}

	id := uuid.New()
	err = pgx.BeginFunc(ctx, g.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO companies (id, tax_id, tax_key, name, stage, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, keys.TaxID, taxKey, keys.Name, string(domain.StageOnboarding), payload, time.Now().UTC())
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", fmt.Errorf("tax id %s already registered: %w", keys.TaxID, domain.ErrGatewayRejected)
		}
		return "", fmt.Errorf("insert company: %w: %w", domain.ErrGatewayUnavailable, err)
	}
	return id.String(), nil
}

// TaxIDExists reports whether a company with taxID was committed.
func (g *Gateway) TaxIDExists(ctx context.Context, taxID string) (bool, error) {
	var exists bool
	err := g.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM companies WHERE tax_key = $1)`, domain.NormalizeTaxID(taxID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup tax id: %w", err)
	}
	return exists, nil
}

// Record returns a committed company.
func (g *Gateway) Record(ctx context.Context, id string) (*domain.CompanyRecord, error) {
	var (
		rec     domain.CompanyRecord
		uid     uuid.UUID
		stage   string
		payload []byte
	)
	err := g.pool.QueryRow(ctx,
		`SELECT id, tax_id, name, stage, payload, created_at FROM companies WHERE id = $1`, id,
	).Scan(&uid, &rec.TaxID, &rec.Name, &stage, &payload, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("company %s: %w", id, err)
	}
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return nil, err
	}
	rec.ID = uid.String()
	rec.Stage = domain.Stage(stage)
	return &rec, nil
}
