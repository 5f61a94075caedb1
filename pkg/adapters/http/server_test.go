package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/intake"
	intakehttp "github.com/aretw0/intake/pkg/adapters/http"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/access"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/session"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	comEmail = "vendedor@example.cl"
	sacEmail = "soporte@example.cl"
)

type fixture struct {
	handler http.Handler
	gateway *memory.Gateway
	streams *intakehttp.StreamManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	b := registry.NewBuilder()
	b.Add("company").Title("Company").Validate(validation.Required("name"))
	b.Add("contact").Title("Contact")
	steps, err := b.Build()
	require.NoError(t, err)

	streams := intakehttp.NewStreamManager(nil)
	gw := memory.NewGateway()
	eng, err := intake.New(steps, intake.WithGateway(gw), intake.WithLifecycleHooks(streams.Hooks()))
	require.NoError(t, err)

	dir, err := access.NewDirectory(
		access.Profile{Email: comEmail, Name: "Vendedor", Role: access.RoleComercial},
		access.Profile{Email: sacEmail, Role: access.RoleSAC},
	)
	require.NoError(t, err)

	h := intakehttp.NewHandler(session.NewManager(eng), dir,
		intakehttp.WithStreams(streams),
		intakehttp.WithHandler("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})),
	)
	return fixture{handler: h, gateway: gw, streams: streams}
}

func (f fixture) call(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if email != "" {
		req.Header.Set(intakehttp.HeaderUserEmail, email)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndInfo(t *testing.T) {
	f := newFixture(t)

	rec := f.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.call(t, http.MethodGet, "/info", "", nil)
	info := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "intake-http", info["app"])
	assert.Equal(t, strings.TrimSpace(intake.Version), info["version"])

	rec = f.call(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGetSteps(t *testing.T) {
	f := newFixture(t)
	rec := f.call(t, http.MethodGet, "/steps", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	steps := decodeBody[[]intakehttp.StepInfo](t, rec)
	require.Len(t, steps, 2)
	assert.Equal(t, "company", steps[0].ID)
	assert.True(t, steps[0].Required)
}

func TestAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.call(t, http.MethodPost, "/intakes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.call(t, http.MethodPost, "/intakes", "nobody@example.cl", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// SAC may log in but not start an intake.
	rec = f.call(t, http.MethodGet, "/menu", sacEmail, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.call(t, http.MethodPost, "/intakes", sacEmail, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeBody[intakehttp.ErrorResponse](t, rec).Code)
}

func TestMenu(t *testing.T) {
	f := newFixture(t)
	rec := f.call(t, http.MethodGet, "/menu", strings.ToUpper(comEmail), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	menu := decodeBody[intakehttp.MenuResponse](t, rec)
	assert.Equal(t, comEmail, menu.Email)
	assert.Equal(t, string(access.RoleComercial), menu.Role)
	assert.Contains(t, menu.Permissions, access.PermEditComercial)
	assert.NotEmpty(t, menu.Menu)
}

func TestIntakeLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.call(t, http.MethodPost, "/intakes", comEmail, intakehttp.StartRequest{SessionID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "company", decodeBody[intakehttp.IntakeResponse](t, rec).CurrentStepID)

	rec = f.call(t, http.MethodPost, "/intakes", comEmail, intakehttp.StartRequest{SessionID: "s1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Empty step is rejected with its field errors.
	rec = f.call(t, http.MethodPost, "/intakes/s1/next", comEmail, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errBody := decodeBody[intakehttp.ErrorResponse](t, rec)
	assert.Equal(t, "invalid_step", errBody.Code)
	assert.Equal(t, "required", errBody.Fields["name"])

	rec = f.call(t, http.MethodPut, "/intakes/s1/steps/company", comEmail, domain.StepData{"name": "ACME"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.call(t, http.MethodPut, "/intakes/s1/steps/nope", comEmail, domain.StepData{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.call(t, http.MethodPost, "/intakes/s1/next", comEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	next := decodeBody[intakehttp.NextResponse](t, rec)
	assert.False(t, next.Last, "moving onto the final step is not the final pass")
	assert.Equal(t, "contact", next.Intake.CurrentStepID)
	assert.NotEmpty(t, next.Intake.DraftID)

	// Not yet validated on the final step.
	rec = f.call(t, http.MethodPost, "/intakes/s1/submit", comEmail, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "incomplete", decodeBody[intakehttp.ErrorResponse](t, rec).Code)

	rec = f.call(t, http.MethodPost, "/intakes/s1/next", comEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	final := decodeBody[intakehttp.NextResponse](t, rec)
	assert.True(t, final.Last)
	assert.Equal(t, "contact", final.Intake.CurrentStepID)

	rec = f.call(t, http.MethodPost, "/intakes/s1/submit", comEmail, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decodeBody[intakehttp.SubmitResponse](t, rec)
	assert.Equal(t, domain.StageOnboarding, sub.Stage)
	stored, ok := f.gateway.Record(sub.RecordID)
	require.True(t, ok)
	assert.Equal(t, "ACME", stored.Payload["company"]["name"])

	rec = f.call(t, http.MethodPut, "/intakes/s1/steps/company", comEmail, domain.StepData{"name": "X"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.call(t, http.MethodDelete, "/intakes/s1", comEmail, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.call(t, http.MethodGet, "/intakes/s1", comEmail, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftResume(t *testing.T) {
	f := newFixture(t)

	rec := f.call(t, http.MethodPost, "/intakes", comEmail, intakehttp.StartRequest{SessionID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	f.call(t, http.MethodPut, "/intakes/s1/steps/company", comEmail, domain.StepData{"name": "ACME"})

	rec = f.call(t, http.MethodPost, "/intakes/s1/draft", comEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	draftID := decodeBody[intakehttp.IntakeResponse](t, rec).DraftID
	require.NotEmpty(t, draftID)

	rec = f.call(t, http.MethodDelete, "/intakes/s1?discard=false", comEmail, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.call(t, http.MethodPost, "/intakes/resume", comEmail, intakehttp.ResumeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call(t, http.MethodPost, "/intakes/resume", comEmail, intakehttp.ResumeRequest{DraftID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.call(t, http.MethodPost, "/intakes/resume", comEmail, intakehttp.ResumeRequest{DraftID: draftID, SessionID: "s2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resumed := decodeBody[intakehttp.IntakeResponse](t, rec)
	assert.Equal(t, "s2", resumed.SessionID)
	assert.Equal(t, "ACME", resumed.Form["company"]["name"])

	rec = f.call(t, http.MethodDelete, "/intakes/s2?discard=maybe", comEmail, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.call(t, http.MethodDelete, "/intakes/s2?discard=true", comEmail, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.call(t, http.MethodPost, "/intakes/resume", comEmail, intakehttp.ResumeRequest{DraftID: draftID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.FailWith(domain.ErrGatewayUnavailable)

	f.call(t, http.MethodPost, "/intakes", comEmail, intakehttp.StartRequest{SessionID: "s1"})
	f.call(t, http.MethodPut, "/intakes/s1/steps/company", comEmail, domain.StepData{"name": "ACME"})
	f.call(t, http.MethodPost, "/intakes/s1/next", comEmail, nil)
	f.call(t, http.MethodPost, "/intakes/s1/next", comEmail, nil)

	rec := f.call(t, http.MethodPost, "/intakes/s1/submit", comEmail, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "gateway_unavailable", decodeBody[intakehttp.ErrorResponse](t, rec).Code)
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	f.call(t, http.MethodPost, "/intakes", comEmail, intakehttp.StartRequest{SessionID: "s1"})
	f.call(t, http.MethodPut, "/intakes/s1/steps/company", comEmail, domain.StepData{"name": "ACME"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/intakes/s1/events?types=step_enter", nil)
	require.NoError(t, err)
	req.Header.Set(intakehttp.HeaderUserEmail, comEmail)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())
	require.True(t, lines.Scan())
	require.True(t, lines.Scan())

	// The validation event is filtered out; only the step change arrives.
	f.call(t, http.MethodPost, "/intakes/s1/next", comEmail, nil)

	require.True(t, lines.Scan())
	assert.Equal(t, "event: step_enter", lines.Text())
	require.True(t, lines.Scan())
	var ev domain.StepEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines.Text(), "data: ")), &ev))
	assert.Equal(t, "contact", ev.StepID)
	assert.Equal(t, 1, ev.Index)
}

func TestStreamManager(t *testing.T) {
	sm := intakehttp.NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s1")
	assert.Equal(t, 1, sm.Subscribers("s1"))

	sm.Broadcast("s1", "hello")
	sm.Broadcast("other", "ignored")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("s1"))
	_, open := <-ch
	assert.False(t, open)
}

func TestPutStep_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.call(t, http.MethodPost, "/intakes", comEmail, intakehttp.StartRequest{SessionID: "s1"})

	rec := f.call(t, http.MethodPut, "/intakes/s1/steps/company", comEmail, domain.StepData{"name": strings.Repeat("x", 5000)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/intakes/s1/steps/company", strings.NewReader("{not json"))
	req.Header.Set(intakehttp.HeaderUserEmail, comEmail)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribeEvents_SnapshotDiffs(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	f.call(t, http.MethodPost, "/intakes", comEmail, intakehttp.StartRequest{SessionID: "s1"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/intakes/s1/events?types=snapshot", nil)
	require.NoError(t, err)
	req.Header.Set(intakehttp.HeaderUserEmail, comEmail)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	for i := 0; i < 3; i++ {
		require.True(t, lines.Scan())
	}

	// A failed validation still changes the session: its field errors appear.
	f.call(t, http.MethodPost, "/intakes/s1/next", comEmail, nil)

	require.True(t, lines.Scan())
	assert.Equal(t, "event: snapshot", lines.Text())
	require.True(t, lines.Scan())
	var diff domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines.Text(), "data: ")), &diff))
	assert.Equal(t, "required", diff.FieldErrors["name"])
	assert.Nil(t, diff.CurrentStepID)
}
