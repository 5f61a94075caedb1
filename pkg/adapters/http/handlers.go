package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/access"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/go-chi/chi/v5"
)

// StepInfo describes one step of the intake.
type StepInfo struct {
	ID       string        `json:"id"`
	Order    int           `json:"order"`
	Title    string        `json:"title"`
	Required bool          `json:"required"`
	Fields   schema.Schema `json:"fields,omitempty"`
}

// StartRequest opens a session. SessionID is optional.
type StartRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// ResumeRequest opens a session from a stored draft.
type ResumeRequest struct {
	DraftID   string `json:"draft_id"`
	SessionID string `json:"session_id,omitempty"`
}

// IntakeResponse is the session view returned by most endpoints.
type IntakeResponse struct {
	domain.Snapshot
	Form domain.FormState `json:"form,omitempty"`
}

// NextResponse reports whether the final step passed and the intake can be
// submitted.
type NextResponse struct {
	Last   bool            `json:"last"`
	Intake domain.Snapshot `json:"intake"`
}

// SubmitResponse confirms a committed company.
type SubmitResponse struct {
	RecordID string       `json:"record_id"`
	Stage    domain.Stage `json:"stage"`
	Message  string       `json:"message"`
}

// MenuResponse is the navigation a caller's role unlocks.
type MenuResponse struct {
	Email        string            `json:"email"`
	Name         string            `json:"name,omitempty"`
	Role         string            `json:"role"`
	Area         string            `json:"area"`
	Permissions  []string          `json:"permissions"`
	Stages       []domain.Stage    `json:"stages"`
	Menu         []access.MenuItem `json:"menu"`
	QuickActions []access.MenuItem `json:"quick_actions"`
}

var errBadRequest = errors.New("bad request")

func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "intake-http",
		"version": strings.TrimSpace(intake.Version),
	})
}

// GetSteps handles GET /steps.
func (s *Server) GetSteps(w http.ResponseWriter, r *http.Request) {
	defs := s.sessions.Engine().Steps().Steps()
	out := make([]StepInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, StepInfo{
			ID:       d.ID,
			Order:    d.Order,
			Title:    d.Title,
			Required: d.Required,
			Fields:   s.schemas[d.ID],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetMenu handles GET /menu.
func (s *Server) GetMenu(w http.ResponseWriter, r *http.Request) {
	caps, _ := Capabilities(r.Context())
	p := caps.Profile()
	writeJSON(w, http.StatusOK, MenuResponse{
		Email:        p.Email,
		Name:         p.Name,
		Role:         string(p.Role),
		Area:         caps.Area(),
		Permissions:  caps.Permissions(),
		Stages:       caps.VisibleStages(),
		Menu:         caps.Menu(),
		QuickActions: caps.QuickActions(),
	})
}

// StartIntake handles POST /intakes.
func (s *Server) StartIntake(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	wf, err := s.sessions.Start(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IntakeResponse{Snapshot: wf.Snapshot()})
}

// ResumeIntake handles POST /intakes/resume.
func (s *Server) ResumeIntake(w http.ResponseWriter, r *http.Request) {
	var req ResumeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.DraftID == "" {
		s.writeError(w, r, fmt.Errorf("%w: draft_id is required", errBadRequest))
		return
	}
	wf, err := s.sessions.Resume(r.Context(), req.SessionID, req.DraftID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IntakeResponse{Snapshot: wf.Snapshot(), Form: wf.FormState()})
}

// GetIntake handles GET /intakes/{id}.
func (s *Server) GetIntake(w http.ResponseWriter, r *http.Request) {
	wf, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IntakeResponse{Snapshot: wf.Snapshot(), Form: wf.FormState()})
}

// PutStep handles PUT /intakes/{id}/steps/{step}, replacing the step's data.
func (s *Server) PutStep(w http.ResponseWriter, r *http.Request) {
	var data domain.StepData
	if err := decode(r, &data); err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := validation.SanitizeStepData(data)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	stepID := chi.URLParam(r, "step")
	s.do(w, r, http.StatusOK, func(_ context.Context, wf *intake.Workflow) (any, error) {
		if err := wf.SetStepData(stepID, data); err != nil {
			return nil, err
		}
		return IntakeResponse{Snapshot: wf.Snapshot()}, nil
	})
}

// Next handles POST /intakes/{id}/next.
func (s *Server) Next(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(ctx context.Context, wf *intake.Workflow) (any, error) {
		onLast := wf.IsLastStep()
		ok, err := wf.NextStep(ctx)
		if err != nil {
			return nil, err
		}
		if verr := wf.ValidationError(); verr != nil {
			return nil, verr
		}
		return NextResponse{Last: ok && onLast, Intake: wf.Snapshot()}, nil
	})
}

// Prev handles POST /intakes/{id}/prev.
func (s *Server) Prev(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(ctx context.Context, wf *intake.Workflow) (any, error) {
		wf.PrevStep(ctx)
		return IntakeResponse{Snapshot: wf.Snapshot()}, nil
	})
}

// SaveDraft handles POST /intakes/{id}/draft.
func (s *Server) SaveDraft(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(ctx context.Context, wf *intake.Workflow) (any, error) {
		if err := wf.SaveProgress(ctx); err != nil {
			return nil, err
		}
		return IntakeResponse{Snapshot: wf.Snapshot()}, nil
	})
}

// Submit handles POST /intakes/{id}/submit.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusCreated, func(ctx context.Context, wf *intake.Workflow) (any, error) {
		id, err := wf.SubmitForm(ctx)
		if err != nil {
			return nil, err
		}
		return SubmitResponse{
			RecordID: id,
			Stage:    domain.StageOnboarding,
			Message:  "company created and sent to Onboarding",
		}, nil
	})
}

// EndIntake handles DELETE /intakes/{id}. With ?discard=true the draft goes too.
func (s *Server) EndIntake(w http.ResponseWriter, r *http.Request) {
	discard := false
	if raw := r.URL.Query().Get("discard"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: discard: %v", errBadRequest, err))
			return
		}
		discard = v
	}
	if err := s.sessions.End(r.Context(), chi.URLParam(r, "id"), discard); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) do(w http.ResponseWriter, r *http.Request, status int, fn func(context.Context, *intake.Workflow) (any, error)) {
	var resp any
	err := s.sessions.Do(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, wf *intake.Workflow) error {
		before := wf.Snapshot()
		var err error
		resp, err = fn(ctx, wf)
		if s.streams != nil {
			s.streams.PublishDiff(&before, wf.Snapshot())
		}
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, resp)
}
