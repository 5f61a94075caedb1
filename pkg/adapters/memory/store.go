package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.DraftStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.DraftRecord
	mu   sync.RWMutex
	now  func() time.Time
}

// NewStore creates a new in-memory draft store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.DraftRecord),
		now:  time.Now,
	}
}

// Save stores a deep copy of the record, assigning an id on first save.
func (s *Store) Save(ctx context.Context, record *domain.DraftRecord) (string, error) {
	copied := record.Clone()
	if copied.ID == "" {
		copied.ID = uuid.NewString()
	}
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[copied.ID] = copied
	return copied.ID, nil
}

// Load returns a copy so callers can't mutate stored drafts by pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.DraftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, domain.ErrDraftNotFound
	}
	return rec.Clone(), nil
}

// Discard removes the draft.
func (s *Store) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored draft ids, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*domain.DraftRecord, 0, len(s.data))
	for _, rec := range s.data {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].UpdatedAt.After(recs[j].UpdatedAt) })

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids, nil
}
