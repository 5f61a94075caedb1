package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/validation"
)

// Workflow is a single intake session. See internal/runtime for the full API.
type Workflow = runtime.Workflow

// Engine is the high-level entry point of the library. It holds the step
// registry and the collaborators every session shares, and creates sessions.
type Engine struct {
	steps   *registry.Registry
	drafts  ports.DraftStore
	gateway ports.SubmissionGateway
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	now     func() time.Time
	gate    *validation.Gate
	Name    string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithDraftStore sets where drafts are kept. An in-memory store is used otherwise.
func WithDraftStore(s ports.DraftStore) Option {
	return func(e *Engine) {
		e.drafts = s
	}
}

// WithGateway sets the system of record that receives submissions. Required.
func WithGateway(g ports.SubmissionGateway) Option {
	return func(e *Engine) {
		e.gateway = g
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithName labels the engine; the name is attached to every log line.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// WithClock overrides time.Now for every session.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New initializes an Engine over the given steps.
func New(steps *registry.Registry, opts ...Option) (*Engine, error) {
	if steps == nil || steps.Len() == 0 {
		return nil, registry.ErrEmpty
	}

	eng := &Engine{steps: steps}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.gateway == nil {
		return nil, errors.New("a submission gateway is required")
	}
	if eng.drafts == nil {
		eng.drafts = memory.NewStore()
	}

	// Ensure logger is initialized so sessions never see a nil logger
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("intake", eng.Name)
	}
	eng.gate = validation.NewGate(validation.WithLogger(eng.logger))

	return eng, nil
}

func (e *Engine) sessionOpts(sessionID string) []runtime.Option {
	opts := []runtime.Option{
		runtime.WithID(sessionID),
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithGate(e.gate),
	}
	if e.now != nil {
		opts = append(opts, runtime.WithClock(e.now))
	}
	return opts
}

// Start opens a fresh session on the first step. An empty sessionID gets a
// random one.
func (e *Engine) Start(ctx context.Context, sessionID string) (*Workflow, error) {
	return runtime.New(ctx, e.steps, e.drafts, e.gateway, e.sessionOpts(sessionID)...)
}

// Resume opens a session from a saved draft. Steps before the saved position
// are validated again; the session stops at the first one that no longer passes.
func (e *Engine) Resume(ctx context.Context, sessionID, draftID string) (*Workflow, error) {
	rec, err := e.drafts.Load(ctx, draftID)
	if err != nil {
		if errors.Is(err, domain.ErrDraftNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "load", DraftID: draftID, Err: err}
	}
	opts := append(e.sessionOpts(sessionID), runtime.WithDraft(rec))
	wf, err := runtime.New(ctx, e.steps, e.drafts, e.gateway, opts...)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", draftID, err)
	}
	return wf, nil
}

// Steps returns the step registry.
func (e *Engine) Steps() *registry.Registry {
	return e.steps
}

// Drafts returns the draft store shared by all sessions.
func (e *Engine) Drafts() ports.DraftStore {
	return e.drafts
}

// Gateway returns the submission gateway.
func (e *Engine) Gateway() ports.SubmissionGateway {
	return e.gateway
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}
