package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/google/uuid"
)

// ErrSessionExists is returned when starting a session id that is already live.
var ErrSessionExists = errors.New("session already exists")

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager keeps live workflows in memory and serializes access to each one.
type Manager struct {
	engine *intake.Engine

	mu       sync.Mutex
	sessions map[string]*intake.Workflow
	locks    map[string]*lockEntry

	locker   ports.DistributedLocker
	lockTTL  time.Duration
	lockWait time.Duration
	logger   *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking. ttl bounds how long a crashed
// replica can hold a session; wait bounds how long to try before giving up.
func WithLocker(locker ports.DistributedLocker, ttl, wait time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
		if wait > 0 {
			m.lockWait = wait
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager that opens sessions through engine.
func NewManager(engine *intake.Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:   engine,
		sessions: make(map[string]*intake.Workflow),
		locks:    make(map[string]*lockEntry),
		lockTTL:  30 * time.Second,
		lockWait: 250 * time.Millisecond,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Engine returns the engine sessions are opened with.
func (m *Manager) Engine() *intake.Engine { return m.engine }

// acquire gets or creates a lock entry and increments its reference count.
// The caller must call release(sessionID) when done with the entry.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// withLock runs fn while holding the session lock, or fails fast with
// domain.ErrConcurrentOperation when someone else holds it.
func (m *Manager) withLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	defer m.release(sessionID)

	if !entry.mu.TryLock() {
		return domain.ErrConcurrentOperation
	}
	defer entry.mu.Unlock()

	if m.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, m.lockWait)
		unlock, err := m.locker.Lock(lockCtx, sessionID, m.lockTTL)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return fmt.Errorf("session %s held by another replica: %w", sessionID, domain.ErrConcurrentOperation)
			}
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Start opens a new session. An empty id gets a random one.
func (m *Manager) Start(ctx context.Context, sessionID string) (*intake.Workflow, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	var wf *intake.Workflow
	err := m.withLock(ctx, sessionID, func(ctx context.Context) error {
		if m.lookup(sessionID) != nil {
			return fmt.Errorf("%s: %w", sessionID, ErrSessionExists)
		}
		var err error
		wf, err = m.engine.Start(ctx, sessionID)
		if err != nil {
			return err
		}
		m.put(wf)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("session started", "session", sessionID)
	return wf, nil
}

// Resume opens a session from a stored draft.
func (m *Manager) Resume(ctx context.Context, sessionID, draftID string) (*intake.Workflow, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	var wf *intake.Workflow
	err := m.withLock(ctx, sessionID, func(ctx context.Context) error {
		if m.lookup(sessionID) != nil {
			return fmt.Errorf("%s: %w", sessionID, ErrSessionExists)
		}
		var err error
		wf, err = m.engine.Resume(ctx, sessionID, draftID)
		if err != nil {
			return err
		}
		m.put(wf)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("session resumed", "session", sessionID, "draft", draftID, "step", wf.CurrentStepID())
	return wf, nil
}

// Get returns a live session.
func (m *Manager) Get(sessionID string) (*intake.Workflow, error) {
	if wf := m.lookup(sessionID); wf != nil {
		return wf, nil
	}
	return nil, fmt.Errorf("%s: %w", sessionID, domain.ErrSessionNotFound)
}

// Do runs fn on a live session while holding its lock.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(context.Context, *intake.Workflow) error) error {
	return m.withLock(ctx, sessionID, func(ctx context.Context) error {
		wf := m.lookup(sessionID)
		if wf == nil {
			return fmt.Errorf("%s: %w", sessionID, domain.ErrSessionNotFound)
		}
		return fn(ctx, wf)
	})
}

// End drops a session. With discard the session's draft is deleted too;
// otherwise it stays available for a later Resume.
func (m *Manager) End(ctx context.Context, sessionID string, discard bool) error {
	err := m.Do(ctx, sessionID, func(ctx context.Context, wf *intake.Workflow) error {
		if discard && wf.Status() != domain.StatusSubmitted {
			if err := wf.Discard(ctx); err != nil {
				return err
			}
		}
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return nil
	})
	if err == nil {
		m.logger.Info("session ended", "session", sessionID, "discard", discard)
	}
	return err
}

// Prune drops every submitted session and returns how many were removed.
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, wf := range m.sessions {
		if wf.Status() == domain.StatusSubmitted {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// List returns the ids of live sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(sessionID string) *intake.Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID]
}

func (m *Manager) put(wf *intake.Workflow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[wf.ID()] = wf
}
