package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/access"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/session"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, role access.Role) *Server {
	t.Helper()
	b := registry.NewBuilder()
	b.Add("company").Title("Company").Validate(validation.Required("name"))
	b.Add("contact").Title("Contact")
	steps, err := b.Build()
	require.NoError(t, err)
	eng, err := intake.New(steps, intake.WithGateway(memory.NewGateway()))
	require.NoError(t, err)
	caps := access.For(access.Profile{Email: "user@example.cl", Role: role})
	return NewServer(session.NewManager(eng), caps)
}

func TestTools_FullIntake(t *testing.T) {
	ctx := context.Background()
	s := newServer(t, access.RoleComercial)
	req := mcp.CallToolRequest{}

	res, err := s.handleStart(ctx, req, SessionArgs{SessionID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "company", res.Intake.CurrentStepID)

	res, err = s.handleNext(ctx, req, SessionArgs{SessionID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "company", res.Intake.CurrentStepID)
	assert.Equal(t, "required", res.Intake.FieldErrors["name"])
	assert.False(t, res.Valid)
	assert.False(t, res.Last)

	_, err = s.handleUpdateStep(ctx, req, UpdateStepArgs{SessionID: "m1", StepID: "company", Data: domain.StepData{"name": "ACME"}})
	require.NoError(t, err)

	res, err = s.handleNext(ctx, req, SessionArgs{SessionID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "contact", res.Intake.CurrentStepID)
	assert.True(t, res.Valid)
	assert.False(t, res.Last, "moving onto the final step is not the final pass")

	res, err = s.handlePrev(ctx, req, SessionArgs{SessionID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "company", res.Intake.CurrentStepID)
	_, err = s.handleNext(ctx, req, SessionArgs{SessionID: "m1"})
	require.NoError(t, err)

	res, err = s.handleNext(ctx, req, SessionArgs{SessionID: "m1"})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.Last)
	assert.Equal(t, "contact", res.Intake.CurrentStepID)

	res, err = s.handleSubmit(ctx, req, SessionArgs{SessionID: "m1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RecordID)
	assert.Equal(t, domain.StatusSubmitted, res.Intake.Status)

	out, err := s.handleEnd(ctx, req, EndArgs{SessionID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, true, out["ended"])

	_, err = s.handleGet(ctx, req, SessionArgs{SessionID: "m1"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestTools_DraftAndResume(t *testing.T) {
	ctx := context.Background()
	s := newServer(t, access.RoleComercial)
	req := mcp.CallToolRequest{}

	_, err := s.handleStart(ctx, req, SessionArgs{SessionID: "m1"})
	require.NoError(t, err)
	_, err = s.handleUpdateStep(ctx, req, UpdateStepArgs{SessionID: "m1", StepID: "company", Data: domain.StepData{"name": "ACME"}})
	require.NoError(t, err)
	res, err := s.handleSaveDraft(ctx, req, SessionArgs{SessionID: "m1"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Intake.DraftID)

	_, err = s.handleResume(ctx, req, ResumeArgs{})
	assert.Error(t, err)

	res, err = s.handleResume(ctx, req, ResumeArgs{DraftID: res.Intake.DraftID, SessionID: "m2"})
	require.NoError(t, err)
	assert.Equal(t, "ACME", res.Form["company"]["name"])

	_, err = s.handleUpdateStep(ctx, req, UpdateStepArgs{SessionID: "m2", StepID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnknownStep)
}

func TestTools_RequireComercial(t *testing.T) {
	s := newServer(t, access.RoleSAC)
	_, err := s.handleStart(context.Background(), mcp.CallToolRequest{}, SessionArgs{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestStepsResource(t *testing.T) {
	s := newServer(t, access.RoleComercial)
	var steps []stepInfo
	raw, err := json.Marshal(s.steps())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &steps))
	require.Len(t, steps, 2)
	assert.Equal(t, "company", steps[0].ID)
	assert.NotNil(t, s.MCPServer())
}
