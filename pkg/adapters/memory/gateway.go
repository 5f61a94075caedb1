package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
)

// Gateway implements ports.SubmissionGateway and ports.CompanyDirectory in
// memory. Committed companies land in the ONBOARDING stage.
type Gateway struct {
	mu      sync.RWMutex
	keys    domain.KeyExtractor
	records map[string]domain.CompanyRecord
	byTaxID map[string]string
	calls   int
	failure error
	now     func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithKeyExtractor sets how tax id and name are read from a form.
func WithKeyExtractor(fn domain.KeyExtractor) GatewayOption {
	return func(g *Gateway) { g.keys = fn }
}

// NewGateway creates an empty in-memory system of record.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		keys:    func(domain.FormState) domain.CompanyKeys { return domain.CompanyKeys{} },
		records: make(map[string]domain.CompanyRecord),
		byTaxID: make(map[string]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit commits form. A tax id that is already registered is rejected.
func (g *Gateway) Submit(ctx context.Context, form domain.FormState) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if g.failure != nil {
		return "", g.failure
	}

	keys := g.keys(form)
	taxID := domain.NormalizeTaxID(keys.TaxID)
	if taxID != "" {
		if _, dup := g.byTaxID[taxID]; dup {
			return "", fmt.Errorf("tax id %s already registered: %w", keys.TaxID, domain.ErrGatewayRejected)
		}
	}

	rec := domain.CompanyRecord{
		ID:        uuid.NewString(),
		TaxID:     keys.TaxID,
		Name:      keys.Name,
		Stage:     domain.StageOnboarding,
		Payload:   form.Clone(),
		CreatedAt: g.now().UTC(),
	}
	g.records[rec.ID] = rec
	if taxID != "" {
		g.byTaxID[taxID] = rec.ID
	}
	return rec.ID, nil
}

// TaxIDExists reports whether a company with taxID was committed.
func (g *Gateway) TaxIDExists(ctx context.Context, taxID string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.byTaxID[domain.NormalizeTaxID(taxID)]
	return ok, nil
}

// Record returns a committed company.
func (g *Gateway) Record(id string) (domain.CompanyRecord, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.records[id]
	return rec, ok
}

// Calls returns how many times Submit was invoked.
func (g *Gateway) Calls() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.calls
}

// FailWith makes every following Submit return err. Pass nil to recover.
func (g *Gateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failure = err
}
