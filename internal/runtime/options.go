package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/validation"
)

// Option configures a Workflow.
type Option func(*Workflow)

// WithID sets the session id. A random id is used otherwise.
func WithID(id string) Option {
	return func(w *Workflow) { w.id = id }
}

// WithLogger sets the workflow logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(w *Workflow) { w.hooks = h }
}

// WithGate replaces the validation gate.
func WithGate(g *validation.Gate) Option {
	return func(w *Workflow) { w.gate = g }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// WithDraft resumes from a stored draft: the payload and draft id are
// restored and the steps before the saved position are validated again.
func WithDraft(rec *domain.DraftRecord) Option {
	return func(w *Workflow) { w.resume = rec.Clone() }
}
