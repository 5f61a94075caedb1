// Package mcp exposes intake sessions as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/access"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/aretw0/intake/pkg/session"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StepsURI is the resource listing the intake steps.
const StepsURI = "intake://steps"

// IntakeResult is the structured output of every session tool.
type IntakeResult struct {
	Intake   domain.Snapshot  `json:"intake" jsonschema_description:"Current session state"`
	Form     domain.FormState `json:"form,omitempty" jsonschema_description:"Data collected so far"`
	Valid    bool             `json:"valid,omitempty" jsonschema_description:"True when next_step accepted the active step"`
	Last     bool             `json:"last,omitempty" jsonschema_description:"True once the final step validated"`
	RecordID string           `json:"record_id,omitempty" jsonschema_description:"Committed company id after submission"`
}

// SessionArgs names a live session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// ResumeArgs opens a session from a draft.
type ResumeArgs struct {
	DraftID   string `json:"draft_id"`
	SessionID string `json:"session_id,omitempty"`
}

// UpdateStepArgs replaces the data of one step.
type UpdateStepArgs struct {
	SessionID string          `json:"session_id"`
	StepID    string          `json:"step_id"`
	Data      domain.StepData `json:"data"`
}

// EndArgs closes a session.
type EndArgs struct {
	SessionID string `json:"session_id"`
	Discard   bool   `json:"discard,omitempty"`
}

type stepInfo struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Required bool          `json:"required"`
	Fields   schema.Schema `json:"fields,omitempty"`
}

// Server exposes a session.Manager over MCP on behalf of one user.
type Server struct {
	sessions  *session.Manager
	caps      access.Capabilities
	schemas   map[string]schema.Schema
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSchemas publishes field schemas in the steps resource.
func WithSchemas(schemas map[string]schema.Schema) Option {
	return func(s *Server) { s.schemas = schemas }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates an MCP server acting as the user behind caps.
func NewServer(sessions *session.Manager, caps access.Capabilities, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		caps:      caps,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("intake-mcp", strings.TrimSpace(intake.Version), server.WithToolCapabilities(true)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. to mount it over SSE.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on Stdin/Stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_intake",
		mcp.WithDescription("Open a new company intake on its first step."),
		mcp.WithString("session_id", mcp.Description("Session id to use (optional)")),
		mcp.WithOutputSchema[IntakeResult](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("resume_intake",
		mcp.WithDescription("Open an intake from a saved draft."),
		mcp.WithString("draft_id", mcp.Required(), mcp.Description("Draft id")),
		mcp.WithString("session_id", mcp.Description("Session id to use (optional)")),
		mcp.WithOutputSchema[IntakeResult](),
	), mcp.NewStructuredToolHandler(s.handleResume))

	s.mcpServer.AddTool(mcp.NewTool("get_intake",
		mcp.WithDescription("Read the state and data of an open intake."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[IntakeResult](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("update_step",
		mcp.WithDescription("Replace the data of one step. Clears the step's validated mark."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("step_id", mcp.Required(), mcp.Description("Step id, see "+StepsURI)),
		mcp.WithObject("data", mcp.Required(), mcp.Description("Field values of the step")),
		mcp.WithOutputSchema[IntakeResult](),
	), mcp.NewStructuredToolHandler(s.handleUpdateStep))

	s.mcpServer.AddTool(mcp.NewTool("next_step",
		mcp.WithDescription("Validate the current step and advance. Field errors are reported in intake.field_errors."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[IntakeResult](),
	), mcp.NewStructuredToolHandler(s.handleNext))

	s.mcpServer.AddTool(mcp.NewTool("prev_step",
		mcp.WithDescription("Go back one step."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[IntakeResult](),
	), mcp.NewStructuredToolHandler(s.handlePrev))

	s.mcpServer.AddTool(mcp.NewTool("save_draft",
		mcp.WithDescription("Save the intake as a draft without validating it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[IntakeResult](),
	), mcp.NewStructuredToolHandler(s.handleSaveDraft))

	s.mcpServer.AddTool(mcp.NewTool("submit_intake",
		mcp.WithDescription("Create the company and send it to Onboarding. Every required step must be validated."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[IntakeResult](),
	), mcp.NewStructuredToolHandler(s.handleSubmit))

	s.mcpServer.AddTool(mcp.NewTool("end_intake",
		mcp.WithDescription("Close an intake. With discard the draft is deleted."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithBoolean("discard", mcp.Description("Delete the draft too")),
	), mcp.NewStructuredToolHandler(s.handleEnd))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StepsURI, "Intake steps",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		body, err := json.Marshal(s.steps())
		if err != nil {
			return nil, fmt.Errorf("encode steps: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      StepsURI,
				MIMEType: "application/json",
				Text:     string(body),
			},
		}, nil
	})
}

func (s *Server) steps() []stepInfo {
	defs := s.sessions.Engine().Steps().Steps()
	out := make([]stepInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, stepInfo{ID: d.ID, Title: d.Title, Required: d.Required, Fields: s.schemas[d.ID]})
	}
	return out
}

func (s *Server) authorize() error {
	if !s.caps.CanStartIntake() {
		return fmt.Errorf("permission %s required: %w", access.PermEditComercial, domain.ErrForbidden)
	}
	return nil
}

func result(wf *intake.Workflow) IntakeResult {
	return IntakeResult{Intake: wf.Snapshot(), Form: wf.FormState()}
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (IntakeResult, error) {
	if err := s.authorize(); err != nil {
		return IntakeResult{}, err
	}
	wf, err := s.sessions.Start(ctx, args.SessionID)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("start failed: %w", err)
	}
	return result(wf), nil
}

func (s *Server) handleResume(ctx context.Context, _ mcp.CallToolRequest, args ResumeArgs) (IntakeResult, error) {
	if err := s.authorize(); err != nil {
		return IntakeResult{}, err
	}
	if args.DraftID == "" {
		return IntakeResult{}, fmt.Errorf("draft_id is required")
	}
	wf, err := s.sessions.Resume(ctx, args.SessionID, args.DraftID)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("resume failed: %w", err)
	}
	return result(wf), nil
}

func (s *Server) handleGet(_ context.Context, _ mcp.CallToolRequest, args SessionArgs) (IntakeResult, error) {
	if err := s.authorize(); err != nil {
		return IntakeResult{}, err
	}
	wf, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return IntakeResult{}, err
	}
	return result(wf), nil
}

// do runs fn on a session under the manager lock.
func (s *Server) do(ctx context.Context, sessionID string, fn func(context.Context, *intake.Workflow) (IntakeResult, error)) (IntakeResult, error) {
	if err := s.authorize(); err != nil {
		return IntakeResult{}, err
	}
	var out IntakeResult
	err := s.sessions.Do(ctx, sessionID, func(ctx context.Context, wf *intake.Workflow) error {
		var err error
		out, err = fn(ctx, wf)
		return err
	})
	if err != nil {
		s.logger.Debug("mcp tool failed", "session", sessionID, "err", err)
	}
	return out, err
}

func (s *Server) handleUpdateStep(ctx context.Context, _ mcp.CallToolRequest, args UpdateStepArgs) (IntakeResult, error) {
	data, err := validation.SanitizeStepData(args.Data)
	if err != nil {
		return IntakeResult{}, err
	}
	return s.do(ctx, args.SessionID, func(_ context.Context, wf *intake.Workflow) (IntakeResult, error) {
		if err := wf.SetStepData(args.StepID, data); err != nil {
			return IntakeResult{}, err
		}
		return result(wf), nil
	})
}

func (s *Server) handleNext(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (IntakeResult, error) {
	return s.do(ctx, args.SessionID, func(ctx context.Context, wf *intake.Workflow) (IntakeResult, error) {
		onLast := wf.IsLastStep()
		ok, err := wf.NextStep(ctx)
		if err != nil {
			return IntakeResult{}, err
		}
		out := result(wf)
		out.Valid = ok
		out.Last = ok && onLast
		return out, nil
	})
}

func (s *Server) handlePrev(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (IntakeResult, error) {
	return s.do(ctx, args.SessionID, func(ctx context.Context, wf *intake.Workflow) (IntakeResult, error) {
		wf.PrevStep(ctx)
		return result(wf), nil
	})
}

func (s *Server) handleSaveDraft(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (IntakeResult, error) {
	return s.do(ctx, args.SessionID, func(ctx context.Context, wf *intake.Workflow) (IntakeResult, error) {
		if err := wf.SaveProgress(ctx); err != nil {
			return IntakeResult{}, err
		}
		return result(wf), nil
	})
}

func (s *Server) handleSubmit(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (IntakeResult, error) {
	return s.do(ctx, args.SessionID, func(ctx context.Context, wf *intake.Workflow) (IntakeResult, error) {
		id, err := wf.SubmitForm(ctx)
		if err != nil {
			return IntakeResult{}, err
		}
		out := result(wf)
		out.RecordID = id
		return out, nil
	})
}

func (s *Server) handleEnd(ctx context.Context, _ mcp.CallToolRequest, args EndArgs) (map[string]any, error) {
	if err := s.authorize(); err != nil {
		return nil, err
	}
	if err := s.sessions.End(ctx, args.SessionID, args.Discard); err != nil {
		return nil, err
	}
	return map[string]any{"session_id": args.SessionID, "ended": true, "discarded": args.Discard}, nil
}
