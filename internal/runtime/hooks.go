package runtime

import (
	"context"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

func (w *Workflow) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: w.now(), Type: t, SessionID: w.id}
}

func (w *Workflow) emitStepEnter(ctx context.Context, index int) {
	w.logger.Debug("step entered", "session", w.id, "step", w.steps.At(index).ID, "index", index)
	if w.hooks.OnStepEnter == nil {
		return
	}
	w.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: w.base(domain.EventStepEnter),
		StepID:    w.steps.At(index).ID,
		Index:     index,
	})
}

func (w *Workflow) emitValidation(ctx context.Context, stepID string, valid, failed bool, d time.Duration) {
	if w.hooks.OnValidation == nil {
		return
	}
	w.hooks.OnValidation(ctx, &domain.ValidationEvent{
		EventBase: w.base(domain.EventValidation),
		StepID:    stepID,
		Valid:     valid,
		Failed:    failed,
		Duration:  d,
	})
}

func (w *Workflow) emitDraft(ctx context.Context, discarded bool, draftID string, step int, d time.Duration, err error) {
	fn, typ := w.hooks.OnDraftSaved, domain.EventDraftSaved
	if discarded {
		fn, typ = w.hooks.OnDraftDiscarded, domain.EventDraftDiscard
	}
	if fn == nil {
		return
	}
	fn(ctx, &domain.DraftEvent{
		EventBase: w.base(typ),
		DraftID:   draftID,
		Step:      step,
		Duration:  d,
		Err:       err,
	})
}

func (w *Workflow) emitSubmit(ctx context.Context, recordID string, kind domain.SubmissionKind, d time.Duration) {
	if w.hooks.OnSubmit == nil {
		return
	}
	typ := domain.EventSubmitted
	if kind != "" {
		typ = domain.EventSubmitFailure
	}
	w.hooks.OnSubmit(ctx, &domain.SubmitEvent{
		EventBase: w.base(typ),
		RecordID:  recordID,
		Kind:      kind,
		Duration:  d,
	})
}
