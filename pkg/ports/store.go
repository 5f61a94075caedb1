package ports

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// DraftStore persists recoverable snapshots of unfinished intakes.
type DraftStore interface {
	// Save creates the draft when record.ID is empty and returns the new id,
	// otherwise it overwrites the draft with that id and returns it unchanged.
	// Saving the same record twice yields the same stored draft.
	Save(ctx context.Context, record *domain.DraftRecord) (string, error)

	// Load retrieves a draft.
	// Returns domain.ErrDraftNotFound if the draft does not exist.
	Load(ctx context.Context, id string) (*domain.DraftRecord, error)

	// Discard removes a draft. Discarding a missing draft is not an error.
	Discard(ctx context.Context, id string) error

	// List returns the ids of all stored drafts.
	List(ctx context.Context) ([]string, error)
}
