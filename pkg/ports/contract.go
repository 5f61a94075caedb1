package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDraftStoreContract runs a suite of tests to verify that a DraftStore
// implementation adheres to the interface contract.
func RunDraftStoreContract(t *testing.T, store DraftStore) {
	ctx := context.Background()

	t.Run("Create then Update", func(t *testing.T) {
		// 1. First save creates and assigns an id
		rec := &domain.DraftRecord{
			LastSavedStep: 1,
			Payload: domain.FormState{
				"datos_generales": {"rut": "76.086.428-5", "nombre": "Acme"},
			},
			UpdatedAt: time.Now().UTC(),
		}
		id, err := store.Save(ctx, rec)
		require.NoError(t, err, "Save should not return error")
		require.NotEmpty(t, id, "Save should assign an id")
		defer func() { _ = store.Discard(ctx, id) }()

		// 2. Second save with the id overwrites in place
		rec.ID = id
		rec.LastSavedStep = 2
		rec.Payload["datos_contacto"] = domain.StepData{"correo": "hola@acme.cl"}
		id2, err := store.Save(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, id, id2, "update must keep the id")

		// 3. Load sees the latest version
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, loaded.ID)
		assert.Equal(t, 2, loaded.LastSavedStep)
		assert.Equal(t, "Acme", loaded.Payload["datos_generales"]["nombre"])
		assert.Equal(t, "hola@acme.cl", loaded.Payload["datos_contacto"]["correo"])
	})

	t.Run("Save is idempotent", func(t *testing.T) {
		rec := &domain.DraftRecord{Payload: domain.FormState{"a": {"x": "1"}}}
		id, err := store.Save(ctx, rec)
		require.NoError(t, err)
		defer func() { _ = store.Discard(ctx, id) }()

		rec.ID = id
		for i := 0; i < 3; i++ {
			again, err := store.Save(ctx, rec)
			require.NoError(t, err)
			assert.Equal(t, id, again)
		}

		ids, err := store.List(ctx)
		require.NoError(t, err)
		count := 0
		for _, got := range ids {
			if got == id {
				count++
			}
		}
		assert.Equal(t, 1, count, "retries must not create extra drafts")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+time.Now().Format("20060102150405"))
		assert.ErrorIs(t, err, domain.ErrDraftNotFound)
	})

	t.Run("Discard", func(t *testing.T) {
		id, err := store.Save(ctx, &domain.DraftRecord{Payload: domain.FormState{}})
		require.NoError(t, err)

		require.NoError(t, store.Discard(ctx, id), "Discard should not return error")

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrDraftNotFound, "Load after Discard should return ErrDraftNotFound")

		assert.NoError(t, store.Discard(ctx, id), "discarding twice is fine")
	})

	t.Run("List", func(t *testing.T) {
		id1, err := store.Save(ctx, &domain.DraftRecord{Payload: domain.FormState{}})
		require.NoError(t, err)
		id2, err := store.Save(ctx, &domain.DraftRecord{Payload: domain.FormState{}})
		require.NoError(t, err)
		defer func() {
			_ = store.Discard(ctx, id1)
			_ = store.Discard(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
