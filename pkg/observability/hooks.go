package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/intake/pkg/domain"
)

// LogHooks logs every lifecycle event to logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_enter", "session", e.SessionID, "step", e.StepID, "index", e.Index)
		},
		OnValidation: func(ctx context.Context, e *domain.ValidationEvent) {
			level := slog.LevelInfo
			if e.Failed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "validation", "session", e.SessionID, "step", e.StepID, "valid", e.Valid, "duration", e.Duration)
		},
		OnDraftSaved: func(ctx context.Context, e *domain.DraftEvent) {
			logger.InfoContext(ctx, "draft_saved", "session", e.SessionID, "draft", e.DraftID, "step", e.Step)
		},
		OnDraftDiscarded: func(ctx context.Context, e *domain.DraftEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "draft_discarded", "session", e.SessionID, "draft", e.DraftID, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "draft_discarded", "session", e.SessionID, "draft", e.DraftID)
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			if e.Kind != "" {
				logger.WarnContext(ctx, "submit_failed", "session", e.SessionID, "kind", e.Kind)
				return
			}
			logger.InfoContext(ctx, "submitted", "session", e.SessionID, "record", e.RecordID)
		},
	}
}

// Combine merges hooks so every non-nil callback runs, in argument order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnStepEnter = chain(out.OnStepEnter, h.OnStepEnter)
		out.OnValidation = chain(out.OnValidation, h.OnValidation)
		out.OnDraftSaved = chain(out.OnDraftSaved, h.OnDraftSaved)
		out.OnDraftDiscarded = chain(out.OnDraftDiscarded, h.OnDraftDiscarded)
		out.OnSubmit = chain(out.OnSubmit, h.OnSubmit)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
