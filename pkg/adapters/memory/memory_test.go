package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunDraftStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	rec := &domain.DraftRecord{Payload: domain.FormState{"a": {"x": "original"}}}
	id, err := store.Save(ctx, rec)
	require.NoError(t, err)

	rec.Payload["a"]["x"] = "mutated after save"
	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", loaded.Payload["a"]["x"])

	loaded.Payload["a"]["x"] = "mutated after load"
	again, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Payload["a"]["x"])
}

func keys(f domain.FormState) domain.CompanyKeys {
	return domain.CompanyKeys{
		TaxID: f.Step("general")["rut"].(string),
		Name:  f.Step("general")["nombre"].(string),
	}
}

func TestGateway_CommitsAtOnboarding(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(memory.WithKeyExtractor(keys))

	id, err := gw.Submit(ctx, domain.FormState{"general": {"rut": "76.086.428-5", "nombre": "Acme"}})
	require.NoError(t, err)

	rec, ok := gw.Record(id)
	require.True(t, ok)
	assert.Equal(t, domain.StageOnboarding, rec.Stage)
	assert.Equal(t, "Acme", rec.Name)
	assert.Equal(t, 1, gw.Calls())

	exists, err := gw.TaxIDExists(ctx, "76086428-5")
	require.NoError(t, err)
	assert.True(t, exists, "lookup ignores formatting")
}

func TestGateway_RejectsDuplicateTaxID(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(memory.WithKeyExtractor(keys))
	form := domain.FormState{"general": {"rut": "76.086.428-5", "nombre": "Acme"}}

	_, err := gw.Submit(ctx, form)
	require.NoError(t, err)

	_, err = gw.Submit(ctx, form)
	assert.ErrorIs(t, err, domain.ErrGatewayRejected)
}

func TestGateway_FailWith(t *testing.T) {
	gw := memory.NewGateway()
	gw.FailWith(domain.ErrGatewayUnavailable)

	_, err := gw.Submit(context.Background(), domain.FormState{})
	assert.True(t, errors.Is(err, domain.ErrGatewayUnavailable))

	gw.FailWith(nil)
	_, err = gw.Submit(context.Background(), domain.FormState{})
	assert.NoError(t, err)
	assert.Equal(t, 2, gw.Calls())
}
