package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresCollaborators(t *testing.T) {
	ctx := context.Background()
	reg := threeSteps(t)

	_, err := runtime.New(ctx, nil, memory.NewStore(), memory.NewGateway())
	assert.ErrorIs(t, err, registry.ErrEmpty)
	_, err = runtime.New(ctx, reg, nil, memory.NewGateway())
	assert.Error(t, err)
	_, err = runtime.New(ctx, reg, memory.NewStore(), nil)
	assert.Error(t, err)
}

func TestNew_InitialState(t *testing.T) {
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), memory.NewGateway(), runtime.WithID("s-1"))

	snap := wf.Snapshot()
	assert.Equal(t, "s-1", snap.SessionID)
	assert.Equal(t, 0, snap.CurrentStepIndex)
	assert.Equal(t, "A", snap.CurrentStepID)
	assert.Equal(t, 3, snap.TotalSteps)
	assert.Equal(t, domain.StatusEditing, snap.Status)
	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.DraftID)
	assert.Empty(t, snap.Validated)
}

func TestNextStep_InvalidStaysPut(t *testing.T) {
	store := newSpyStore()
	wf := newWorkflow(t, threeSteps(t), store, memory.NewGateway())

	ok, err := wf.NextStep(context.Background())
	require.NoError(t, err, "invalid data is not an error")
	assert.False(t, ok)
	assert.Equal(t, 0, wf.CurrentStep())
	assert.Equal(t, map[string]string{"name": "required"}, wf.FieldErrors())

	verr := wf.ValidationError()
	require.NotNil(t, verr)
	assert.Equal(t, "A", verr.StepID)

	saves, _ := store.counts()
	assert.Zero(t, saves, "invalid steps are never saved")
}

func TestNextStep_ValidSavesAndAdvances(t *testing.T) {
	store := newSpyStore()
	wf := newWorkflow(t, threeSteps(t), store, memory.NewGateway())
	ctx := context.Background()

	require.NoError(t, wf.SetField("A", "name", "Acme"))
	ok, err := wf.NextStep(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, wf.CurrentStep())
	assert.True(t, wf.Validated("A"))
	assert.Nil(t, wf.FieldErrors())

	rec, err := store.Load(ctx, wf.DraftID())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.LastSavedStep)
	assert.Equal(t, "Acme", rec.Payload["A"]["name"])
}

func TestNextStep_ValidatorSeesOnlyItsStep(t *testing.T) {
	var seen domain.StepData
	reg, err := registry.New(
		domain.StepDefinition{ID: "one", Validator: validation.Func(func(d domain.StepData) map[string]string {
			seen = d
			return nil
		})},
		domain.StepDefinition{ID: "two"},
	)
	require.NoError(t, err)
	wf := newWorkflow(t, reg, memory.NewStore(), memory.NewGateway())
	require.NoError(t, wf.SetStepData("one", domain.StepData{"a": 1}))
	require.NoError(t, wf.SetStepData("two", domain.StepData{"b": 2}))

	_, err = wf.NextStep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StepData{"a": 1}, seen)
}

func TestNextStep_LastStepDoesNotSaveOrSubmit(t *testing.T) {
	store := newSpyStore()
	gw := memory.NewGateway()
	wf := newWorkflow(t, threeSteps(t), store, gw)
	ctx := context.Background()

	fillAndWalk(t, wf)
	saves, _ := store.counts()
	assert.Equal(t, 2, saves, "only the two non-final advances save")

	ok, err := wf.NextStep(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, wf.CurrentStep(), "index stays on the final step")
	again, _ := store.counts()
	assert.Equal(t, saves, again)
	assert.Zero(t, gw.Calls())
}

func TestNextStep_InfrastructureFailure(t *testing.T) {
	boom := errors.New("tax registry offline")
	reg, err := registry.New(
		domain.StepDefinition{ID: "A", Required: true, Validator: validation.AsyncFunc(func(context.Context, domain.StepData) (map[string]string, error) {
			return nil, boom
		})},
		domain.StepDefinition{ID: "B"},
	)
	require.NoError(t, err)
	store := newSpyStore()
	wf := newWorkflow(t, reg, store, memory.NewGateway())

	ok, err := wf.NextStep(context.Background())
	assert.False(t, ok)
	var infra *domain.ValidationInfrastructureError
	require.ErrorAs(t, err, &infra)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, wf.CurrentStep())
	assert.False(t, wf.IsLoading())
	assert.Nil(t, wf.ValidationError(), "infrastructure failures are not invalid data")

	saves, _ := store.counts()
	assert.Zero(t, saves)
}

func TestNextStep_SaveFailureDoesNotAdvance(t *testing.T) {
	store := newSpyStore()
	store.failSave = errors.New("disk full")
	wf := newWorkflow(t, threeSteps(t), store, memory.NewGateway())
	require.NoError(t, wf.SetField("A", "name", "Acme"))
	before := wf.FormState()

	ok, err := wf.NextStep(context.Background())
	assert.False(t, ok)
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)

	assert.Equal(t, 0, wf.CurrentStep())
	assert.False(t, wf.Validated("A"), "flag is only set once the save succeeded")
	assert.Equal(t, before, wf.FormState())
	assert.False(t, wf.IsLoading())
	assert.Empty(t, wf.DraftID())
}

func TestPrevStep(t *testing.T) {
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), memory.NewGateway())
	ctx := context.Background()

	// floors at zero
	wf.PrevStep(ctx)
	assert.Equal(t, 0, wf.CurrentStep())

	require.NoError(t, wf.SetField("A", "name", "Acme"))
	_, err := wf.NextStep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, wf.CurrentStep())

	wf.PrevStep(ctx)
	assert.Equal(t, 0, wf.CurrentStep())
	assert.True(t, wf.Validated("A"), "going back keeps earlier validations")
}

func TestSetStepData_InvalidatesStep(t *testing.T) {
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), memory.NewGateway())
	ctx := context.Background()

	require.NoError(t, wf.SetField("A", "name", "Acme"))
	_, err := wf.NextStep(ctx)
	require.NoError(t, err)
	require.True(t, wf.Validated("A"))

	require.NoError(t, wf.SetField("A", "name", "Acme Two"))
	assert.False(t, wf.Validated("A"))
}

func TestSetStepData_UnknownStep(t *testing.T) {
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), memory.NewGateway())
	assert.ErrorIs(t, wf.SetStepData("Z", domain.StepData{}), domain.ErrUnknownStep)
	assert.ErrorIs(t, wf.SetField("Z", "k", "v"), domain.ErrUnknownStep)
}

func TestSetStepData_CopiesInput(t *testing.T) {
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), memory.NewGateway())
	data := domain.StepData{"name": "Acme"}
	require.NoError(t, wf.SetStepData("A", data))

	data["name"] = "changed by caller"
	assert.Equal(t, "Acme", wf.StepData("A")["name"])

	out := wf.StepData("A")
	out["name"] = "changed by reader"
	assert.Equal(t, "Acme", wf.StepData("A")["name"])
}

func TestSaveProgress_SavesInvalidData(t *testing.T) {
	store := newSpyStore()
	wf := newWorkflow(t, threeSteps(t), store, memory.NewGateway())
	ctx := context.Background()

	require.NoError(t, wf.SetField("B", "email", "bad"))
	require.NoError(t, wf.SaveProgress(ctx))

	rec, err := store.Load(ctx, wf.DraftID())
	require.NoError(t, err)
	assert.Equal(t, 0, rec.LastSavedStep)
	assert.Equal(t, "bad", rec.Payload["B"]["email"])
}

func TestSaveProgress_Failure(t *testing.T) {
	store := newSpyStore()
	store.failSave = errors.New("redis down")
	wf := newWorkflow(t, threeSteps(t), store, memory.NewGateway())
	require.NoError(t, wf.SetField("A", "name", "Acme"))

	err := wf.SaveProgress(context.Background())
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.False(t, wf.IsLoading())
	assert.Equal(t, "Acme", wf.StepData("A")["name"])
	assert.Equal(t, perr, wf.LastError())
}

func TestSubmitForm_IncompleteNeverCallsGateway(t *testing.T) {
	gw := memory.NewGateway()
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), gw)
	ctx := context.Background()

	_, err := wf.SubmitForm(ctx)
	var inc *domain.IncompleteWorkflowError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, []string{"A", "B", "C"}, inc.Missing)
	assert.True(t, inc.NotOnFinal)
	assert.Zero(t, gw.Calls())
	assert.Equal(t, domain.StatusEditing, wf.Status())
}

func TestSubmitForm_RequiresFinalPosition(t *testing.T) {
	gw := memory.NewGateway()
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), gw)
	ctx := context.Background()
	fillAndWalk(t, wf)

	wf.PrevStep(ctx)
	_, err := wf.SubmitForm(ctx)
	var inc *domain.IncompleteWorkflowError
	require.ErrorAs(t, err, &inc)
	assert.Empty(t, inc.Missing)
	assert.True(t, inc.NotOnFinal)
	assert.Zero(t, gw.Calls())
}

func TestSubmitForm_EditedStepMustBeRevalidated(t *testing.T) {
	gw := memory.NewGateway()
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), gw)
	fillAndWalk(t, wf)

	require.NoError(t, wf.SetField("A", "name", "Renamed"))
	_, err := wf.SubmitForm(context.Background())
	var inc *domain.IncompleteWorkflowError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, []string{"A"}, inc.Missing)
	assert.Zero(t, gw.Calls())
}

func TestSubmitForm_OptionalStepsNotRequired(t *testing.T) {
	reg, err := registry.New(
		domain.StepDefinition{ID: "req", Required: true},
		domain.StepDefinition{ID: "opt"},
		domain.StepDefinition{ID: "last", Required: true},
	)
	require.NoError(t, err)
	gw := memory.NewGateway()
	wf := newWorkflow(t, reg, memory.NewStore(), gw)
	ctx := context.Background()

	_, err = wf.NextStep(ctx)
	require.NoError(t, err)
	require.NoError(t, wf.SetField("opt", "x", 1))
	_, err = wf.NextStep(ctx)
	require.NoError(t, err)
	// opt is validated here by passing; invalidate it to prove it is optional
	require.NoError(t, wf.SetField("opt", "x", 2))
	ok, err := wf.NextStep(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = wf.SubmitForm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.Calls())
}

func TestSubmitForm_GatewayFailureKeepsDraft(t *testing.T) {
	store := newSpyStore()
	gw := memory.NewGateway()
	gw.FailWith(domain.ErrGatewayUnavailable)
	wf := newWorkflow(t, threeSteps(t), store, gw)
	ctx := context.Background()
	fillAndWalk(t, wf)
	draftID := wf.DraftID()
	before := wf.FormState()

	_, err := wf.SubmitForm(ctx)
	var serr *domain.SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, domain.SubmissionUnavailable, serr.Kind)

	assert.Equal(t, domain.StatusEditing, wf.Status())
	assert.False(t, wf.IsLoading())
	assert.Equal(t, draftID, wf.DraftID())
	assert.Equal(t, before, wf.FormState())
	_, discards := store.counts()
	assert.Zero(t, discards)
	_, err = store.Load(ctx, draftID)
	assert.NoError(t, err, "draft must survive a failed submission")

	// no automatic retry, but a manual one works
	gw.FailWith(nil)
	recordID, err := wf.SubmitForm(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, recordID)
	assert.Equal(t, 2, gw.Calls())
}

func TestSubmitForm_RejectionKind(t *testing.T) {
	gw := memory.NewGateway()
	gw.FailWith(errors.Join(errors.New("duplicate"), domain.ErrGatewayRejected))
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), gw)
	fillAndWalk(t, wf)

	_, err := wf.SubmitForm(context.Background())
	var serr *domain.SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, domain.SubmissionRejected, serr.Kind)
}

func TestSubmitForm_DiscardFailureIsNotFatal(t *testing.T) {
	store := newSpyStore()
	store.failDiscard = errors.New("store flaked")
	gw := memory.NewGateway()
	var discardEvents []*domain.DraftEvent
	wf := newWorkflow(t, threeSteps(t), store, gw, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnDraftDiscarded: func(_ context.Context, e *domain.DraftEvent) { discardEvents = append(discardEvents, e) },
	}))
	fillAndWalk(t, wf)

	recordID, err := wf.SubmitForm(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, recordID)
	assert.Equal(t, domain.StatusSubmitted, wf.Status())

	require.Len(t, discardEvents, 1)
	assert.Error(t, discardEvents[0].Err)
}

func TestSubmitted_IsTerminal(t *testing.T) {
	gw := memory.NewGateway()
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), gw)
	ctx := context.Background()
	fillAndWalk(t, wf)
	_, err := wf.SubmitForm(ctx)
	require.NoError(t, err)

	_, err = wf.NextStep(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionTerminated)
	assert.ErrorIs(t, wf.SaveProgress(ctx), domain.ErrSessionTerminated)
	assert.ErrorIs(t, wf.SetField("A", "name", "x"), domain.ErrSessionTerminated)
	_, err = wf.SubmitForm(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionTerminated)
	assert.ErrorIs(t, wf.Discard(ctx), domain.ErrSessionTerminated)

	wf.PrevStep(ctx)
	assert.Equal(t, 2, wf.CurrentStep(), "PrevStep is a no-op once submitted")
	assert.Equal(t, 1, gw.Calls())
}

func TestDiscard(t *testing.T) {
	store := newSpyStore()
	wf := newWorkflow(t, threeSteps(t), store, memory.NewGateway())
	ctx := context.Background()

	// nothing saved yet
	require.NoError(t, wf.Discard(ctx))

	require.NoError(t, wf.SaveProgress(ctx))
	require.Equal(t, 1, store.count(t))
	require.NoError(t, wf.Discard(ctx))
	assert.Zero(t, store.count(t))
	assert.Empty(t, wf.DraftID())
}

func TestIndexStaysInRange(t *testing.T) {
	wf := newWorkflow(t, threeSteps(t), memory.NewStore(), memory.NewGateway())
	ctx := context.Background()
	require.NoError(t, wf.SetStepData("A", domain.StepData{"name": "Acme"}))
	require.NoError(t, wf.SetStepData("B", domain.StepData{"email": "x@y.cl"}))
	require.NoError(t, wf.SetStepData("C", domain.StepData{"plan": "P"}))

	moves := []bool{true, true, true, true, false, false, false, false, true, true, true, true, true}
	for _, forward := range moves {
		if forward {
			_, err := wf.NextStep(ctx)
			require.NoError(t, err)
		} else {
			wf.PrevStep(ctx)
		}
		idx := wf.CurrentStep()
		assert.GreaterOrEqual(t, idx, 0)
		assert.LessOrEqual(t, idx, wf.TotalSteps()-1)
	}
}
