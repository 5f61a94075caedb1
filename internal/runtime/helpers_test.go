package runtime_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/stretchr/testify/require"
)

// spyStore wraps the memory store, counting calls and injecting failures.
type spyStore struct {
	ports.DraftStore

	mu          sync.Mutex
	saves       int
	discards    int
	failSave    error
	failDiscard error
}

func newSpyStore() *spyStore {
	return &spyStore{DraftStore: memory.NewStore()}
}

func (s *spyStore) Save(ctx context.Context, rec *domain.DraftRecord) (string, error) {
	s.mu.Lock()
	s.saves++
	fail := s.failSave
	s.mu.Unlock()
	if fail != nil {
		return "", fail
	}
	return s.DraftStore.Save(ctx, rec)
}

func (s *spyStore) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	s.discards++
	fail := s.failDiscard
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	return s.DraftStore.Discard(ctx, id)
}

func (s *spyStore) counts() (saves, discards int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves, s.discards
}

func (s *spyStore) count(t *testing.T) int {
	t.Helper()
	ids, err := s.List(context.Background())
	require.NoError(t, err)
	return len(ids)
}

// gated blocks inside Validate until released, to hold a workflow busy.
type gated struct {
	entered chan struct{}
	release chan struct{}
}

func newGated() *gated {
	return &gated{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gated) Validate(ctx context.Context, _ domain.StepData) (domain.ValidationResult, error) {
	g.entered <- struct{}{}
	<-g.release
	return domain.Valid(), nil
}

// threeSteps builds A (name), B (email) and C (plan).
func threeSteps(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(
		domain.StepDefinition{ID: "A", Title: "Company", Required: true, Validator: validation.Required("name")},
		domain.StepDefinition{ID: "B", Title: "Contact", Required: true, Validator: validation.Func(func(d domain.StepData) map[string]string {
			if email, _ := d["email"].(string); email == "" || email == "bad" {
				return map[string]string{"email": "invalid e-mail"}
			}
			return nil
		})},
		domain.StepDefinition{ID: "C", Title: "Plan", Required: true, Validator: validation.Required("plan")},
	)
	require.NoError(t, err)
	return reg
}

func newWorkflow(t *testing.T, reg *registry.Registry, store ports.DraftStore, gw ports.SubmissionGateway, opts ...runtime.Option) *runtime.Workflow {
	t.Helper()
	wf, err := runtime.New(context.Background(), reg, store, gw, opts...)
	require.NoError(t, err)
	return wf
}

// fill writes valid data into every step and walks to the last one.
func fillAndWalk(t *testing.T, wf *runtime.Workflow) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, wf.SetStepData("A", domain.StepData{"name": "Acme"}))
	require.NoError(t, wf.SetStepData("B", domain.StepData{"email": "hola@acme.cl"}))
	require.NoError(t, wf.SetStepData("C", domain.StepData{"plan": "ENTERFAC"}))
	for i := 0; i < wf.TotalSteps(); i++ {
		_, err := wf.NextStep(ctx)
		require.NoError(t, err)
	}
}
