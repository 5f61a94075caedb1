package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/google/uuid"
)

// Workflow is one intake session: the form being filled, the active step and
// which steps passed validation.
//
// Validation, draft saves and submission run outside the mutex while the
// busy flag is set; a second such operation is rejected with
// domain.ErrConcurrentOperation instead of being queued. Reads and PrevStep
// never block on them.
type Workflow struct {
	mu sync.Mutex

	id      string
	steps   *registry.Registry
	gate    *validation.Gate
	drafts  ports.DraftStore
	gateway ports.SubmissionGateway
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	now     func() time.Time
	resume  *domain.DraftRecord

	form        domain.FormState
	current     int
	status      domain.Status
	busy        bool
	lastErr     error
	fieldErrors map[string]string
	validated   map[string]bool
	draftID     string
	recordID    string
}

// New creates a session positioned on the first step, or on the saved step
// when resuming with WithDraft. Resuming fails only when a validator cannot
// run; steps that no longer validate just move the position back.
func New(ctx context.Context, steps *registry.Registry, drafts ports.DraftStore, gateway ports.SubmissionGateway, opts ...Option) (*Workflow, error) {
	if steps == nil || steps.Len() == 0 {
		return nil, registry.ErrEmpty
	}
	if drafts == nil {
		return nil, errors.New("workflow: draft store is required")
	}
	if gateway == nil {
		return nil, errors.New("workflow: submission gateway is required")
	}

	w := &Workflow{
		steps:     steps,
		drafts:    drafts,
		gateway:   gateway,
		logger:    logging.NewNop(),
		now:       time.Now,
		form:      domain.FormState{},
		status:    domain.StatusEditing,
		validated: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.id == "" {
		w.id = uuid.NewString()
	}
	if w.gate == nil {
		w.gate = validation.NewGate(validation.WithLogger(w.logger))
	}

	if w.resume != nil {
		if err := w.restore(ctx, w.resume); err != nil {
			return nil, err
		}
		w.resume = nil
	}

	w.emitStepEnter(ctx, w.current)
	return w, nil
}

// restore replays validators for the steps before the saved position.
func (w *Workflow) restore(ctx context.Context, rec *domain.DraftRecord) error {
	w.form = rec.Payload
	if w.form == nil {
		w.form = domain.FormState{}
	}
	w.draftID = rec.ID

	target := min(max(rec.LastSavedStep, 0), w.steps.Last())
	for i := 0; i < target; i++ {
		step := w.steps.At(i)
		res, err := w.gate.Run(ctx, step, w.form.Step(step.ID).Clone())
		if err != nil {
			return fmt.Errorf("resume draft %s: %w", rec.ID, err)
		}
		if !res.OK() {
			w.logger.Info("resumed draft no longer validates", "session", w.id, "draft", rec.ID, "step", step.ID)
			w.fieldErrors = res.Errors
			w.lastErr = &domain.ValidationError{StepID: step.ID, Fields: res.Errors}
			w.current = i
			return nil
		}
		w.validated[step.ID] = true
	}
	w.current = target
	return nil
}

// begin claims the busy flag. Caller must hold w.mu.
func (w *Workflow) begin() error {
	if w.status == domain.StatusSubmitted {
		return domain.ErrSessionTerminated
	}
	if w.busy {
		return domain.ErrConcurrentOperation
	}
	w.busy = true
	return nil
}

// finish releases the busy flag and records the outcome.
func (w *Workflow) finish(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	w.lastErr = err
}

// NextStep validates the active step and, when it passes, persists a draft,
// advances and returns true. On the final step a pass only marks the step
// validated and returns true without moving; nothing is saved or sent, and the
// caller decides whether to SubmitForm. Invalid data returns false with no
// error and the field errors are available from FieldErrors.
func (w *Workflow) NextStep(ctx context.Context) (bool, error) {
	w.mu.Lock()
	if err := w.begin(); err != nil {
		w.mu.Unlock()
		return false, err
	}
	i := w.current
	step := w.steps.At(i)
	data := w.form.Step(step.ID).Clone()
	payload := w.form.Clone()
	draftID := w.draftID
	w.mu.Unlock()

	start := w.now()
	res, err := w.gate.Run(ctx, step, data)
	w.emitValidation(ctx, step.ID, err == nil && res.OK(), err != nil, w.now().Sub(start))
	if err != nil {
		w.finish(err)
		return false, err
	}

	if !res.OK() {
		verr := &domain.ValidationError{StepID: step.ID, Fields: res.Errors}
		w.mu.Lock()
		delete(w.validated, step.ID)
		w.fieldErrors = maps.Clone(res.Errors)
		w.lastErr = verr
		w.busy = false
		w.mu.Unlock()
		w.logger.Debug("step invalid", "session", w.id, "step", step.ID, "fields", len(res.Errors))
		return false, nil
	}

	if i == w.steps.Last() {
		w.mu.Lock()
		w.validated[step.ID] = true
		w.fieldErrors = nil
		w.lastErr = nil
		w.busy = false
		w.mu.Unlock()
		return true, nil
	}

	rec := &domain.DraftRecord{ID: draftID, LastSavedStep: i + 1, Payload: payload, UpdatedAt: w.now().UTC()}
	start = w.now()
	id, err := w.drafts.Save(ctx, rec)
	if err != nil {
		perr := &domain.PersistenceError{Op: "save", DraftID: draftID, Err: err}
		w.logger.Warn("draft save failed, staying on step", "session", w.id, "step", step.ID, "err", err)
		w.finish(perr)
		return false, perr
	}
	w.emitDraft(ctx, false, id, i+1, w.now().Sub(start), nil)

	w.mu.Lock()
	w.draftID = id
	w.validated[step.ID] = true
	w.fieldErrors = nil
	w.lastErr = nil
	w.current = i + 1
	w.busy = false
	w.mu.Unlock()

	w.emitStepEnter(ctx, i+1)
	return true, nil
}

// PrevStep moves back one step, stopping at the first. It never fails and
// does nothing once the session is submitted.
func (w *Workflow) PrevStep(ctx context.Context) {
	w.mu.Lock()
	if w.status == domain.StatusSubmitted || w.current == 0 {
		w.mu.Unlock()
		return
	}
	w.current--
	w.fieldErrors = nil
	idx := w.current
	w.mu.Unlock()

	w.emitStepEnter(ctx, idx)
}

// SaveProgress persists the form as it is, valid or not, at the current
// position. The first save creates the draft; later saves update it.
func (w *Workflow) SaveProgress(ctx context.Context) error {
	w.mu.Lock()
	if err := w.begin(); err != nil {
		w.mu.Unlock()
		return err
	}
	rec := &domain.DraftRecord{
		ID:            w.draftID,
		LastSavedStep: w.current,
		Payload:       w.form.Clone(),
		UpdatedAt:     w.now().UTC(),
	}
	w.mu.Unlock()

	start := w.now()
	id, err := w.drafts.Save(ctx, rec)
	if err != nil {
		perr := &domain.PersistenceError{Op: "save", DraftID: rec.ID, Err: err}
		w.logger.Warn("draft save failed", "session", w.id, "err", err)
		w.finish(perr)
		return perr
	}
	w.emitDraft(ctx, false, id, rec.LastSavedStep, w.now().Sub(start), nil)

	w.mu.Lock()
	w.draftID = id
	w.busy = false
	w.lastErr = nil
	w.mu.Unlock()
	w.logger.Info("draft saved", "session", w.id, "draft", id, "step", rec.LastSavedStep)
	return nil
}

// SubmitForm sends the whole form to the gateway once. Every required step
// must have passed validation in this session and the session must be on
// the final step. On success the draft is discarded and the session ends;
// on failure the draft is kept and the session stays editable.
func (w *Workflow) SubmitForm(ctx context.Context) (string, error) {
	w.mu.Lock()
	if w.status == domain.StatusSubmitted {
		w.mu.Unlock()
		return "", domain.ErrSessionTerminated
	}
	if w.busy {
		w.mu.Unlock()
		return "", domain.ErrConcurrentOperation
	}
	var missing []string
	for _, id := range w.steps.Required() {
		if !w.validated[id] {
			missing = append(missing, id)
		}
	}
	notOnFinal := w.current != w.steps.Last()
	if len(missing) > 0 || notOnFinal {
		err := &domain.IncompleteWorkflowError{Missing: missing, NotOnFinal: notOnFinal}
		w.lastErr = err
		w.mu.Unlock()
		return "", err
	}
	w.busy = true
	w.status = domain.StatusSubmitting
	form := w.form.Clone()
	draftID := w.draftID
	w.mu.Unlock()

	start := w.now()
	recordID, err := w.gateway.Submit(ctx, form)
	if err != nil {
		kind := domain.ClassifySubmission(err)
		serr := &domain.SubmissionError{Kind: kind, Err: err}
		w.emitSubmit(ctx, "", kind, w.now().Sub(start))
		w.logger.Warn("submission failed", "session", w.id, "kind", kind, "err", err)
		w.mu.Lock()
		w.status = domain.StatusEditing
		w.busy = false
		w.lastErr = serr
		w.mu.Unlock()
		return "", serr
	}
	w.emitSubmit(ctx, recordID, "", w.now().Sub(start))

	w.mu.Lock()
	w.status = domain.StatusSubmitted
	w.recordID = recordID
	w.lastErr = nil
	w.mu.Unlock()
	w.logger.Info("intake submitted", "session", w.id, "record", recordID)

	if draftID != "" {
		start = w.now()
		derr := w.drafts.Discard(ctx, draftID)
		if derr != nil {
			// the record is committed; failing here would invite a duplicate submit
			w.logger.Error("draft discard failed after submission", "session", w.id, "draft", draftID, "err", derr)
		}
		w.emitDraft(ctx, true, draftID, w.current, w.now().Sub(start), derr)
	}

	w.mu.Lock()
	w.draftID = ""
	w.busy = false
	w.mu.Unlock()
	return recordID, nil
}

// Discard deletes the session's draft, if any. Used when the intake is abandoned.
func (w *Workflow) Discard(ctx context.Context) error {
	w.mu.Lock()
	if err := w.begin(); err != nil {
		w.mu.Unlock()
		return err
	}
	draftID := w.draftID
	w.mu.Unlock()

	if draftID == "" {
		w.finish(nil)
		return nil
	}

	start := w.now()
	if err := w.drafts.Discard(ctx, draftID); err != nil {
		perr := &domain.PersistenceError{Op: "discard", DraftID: draftID, Err: err}
		w.finish(perr)
		return perr
	}
	w.emitDraft(ctx, true, draftID, w.CurrentStep(), w.now().Sub(start), nil)

	w.mu.Lock()
	w.draftID = ""
	w.busy = false
	w.lastErr = nil
	w.mu.Unlock()
	return nil
}

// SetStepData replaces the data of one step. Changing a step invalidates it:
// it must pass NextStep again before submission.
func (w *Workflow) SetStepData(stepID string, data domain.StepData) error {
	return w.write(stepID, func(form domain.FormState) {
		form[stepID] = data.Clone()
	})
}

// SetField sets a single field of a step.
func (w *Workflow) SetField(stepID, field string, value any) error {
	return w.write(stepID, func(form domain.FormState) {
		d := form[stepID]
		if d == nil {
			d = domain.StepData{}
		}
		d[field] = value
		form[stepID] = d
	})
}

func (w *Workflow) write(stepID string, fn func(domain.FormState)) error {
	if _, ok := w.steps.Lookup(stepID); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStep, stepID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == domain.StatusSubmitted {
		return domain.ErrSessionTerminated
	}
	if w.busy {
		return domain.ErrConcurrentOperation
	}
	fn(w.form)
	delete(w.validated, stepID)
	return nil
}

// ID returns the session id.
func (w *Workflow) ID() string { return w.id }

// TotalSteps returns the number of steps.
func (w *Workflow) TotalSteps() int { return w.steps.Len() }

// Steps returns the registry the session runs on.
func (w *Workflow) Steps() *registry.Registry { return w.steps }

// CurrentStep returns the active step index.
func (w *Workflow) CurrentStep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// IsLastStep reports whether the active step is the final one.
func (w *Workflow) IsLastStep() bool {
	return w.CurrentStep() == w.steps.Last()
}

// CurrentStepID returns the active step id.
func (w *Workflow) CurrentStepID() string {
	return w.steps.At(w.CurrentStep()).ID
}

// IsLoading reports whether a validation, save or submit is in flight.
func (w *Workflow) IsLoading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Status returns the lifecycle status.
func (w *Workflow) Status() domain.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// DraftID returns the id of the persisted draft, or "".
func (w *Workflow) DraftID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draftID
}

// RecordID returns the committed record id after a successful submission.
func (w *Workflow) RecordID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.recordID
}

// StepData returns a copy of one step's data.
func (w *Workflow) StepData(stepID string) domain.StepData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form.Step(stepID).Clone()
}

// FormState returns a copy of the whole form.
func (w *Workflow) FormState() domain.FormState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form.Clone()
}

// FieldErrors returns the field errors of the last failed validation.
func (w *Workflow) FieldErrors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.fieldErrors)
}

// LastError returns the error of the last operation, or nil.
func (w *Workflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// ValidationError returns the last validation failure, or nil.
func (w *Workflow) ValidationError() *domain.ValidationError {
	w.mu.Lock()
	defer w.mu.Unlock()
	var verr *domain.ValidationError
	if errors.As(w.lastErr, &verr) {
		return verr
	}
	return nil
}

// Validated reports whether a step passed validation in this session.
func (w *Workflow) Validated(stepID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validated[stepID]
}

// Snapshot returns a read-only view of the session.
func (w *Workflow) Snapshot() domain.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	validated := []string{}
	for _, id := range w.steps.IDs() {
		if w.validated[id] {
			validated = append(validated, id)
		}
	}
	snap := domain.Snapshot{
		SessionID:        w.id,
		CurrentStepIndex: w.current,
		CurrentStepID:    w.steps.At(w.current).ID,
		TotalSteps:       w.steps.Len(),
		Status:           w.status,
		IsLoading:        w.busy,
		DraftID:          w.draftID,
		RecordID:         w.recordID,
		Validated:        validated,
		FieldErrors:      maps.Clone(w.fieldErrors),
	}
	if w.lastErr != nil {
		snap.LastError = w.lastErr.Error()
	}
	return snap
}
