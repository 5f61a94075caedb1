package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSteps(t *testing.T) *registry.Registry {
	t.Helper()
	b := registry.NewBuilder()
	b.Add("general").Title("General")
	b.Add("extras").Title("Extras").Optional()
	reg, err := b.Build()
	require.NoError(t, err)
	return reg
}

func TestStepsMarkdown(t *testing.T) {
	out := StepsMarkdown(testSteps(t), map[string]schema.Schema{
		"general": {"rut": schema.Text(), "correo": schema.Email()},
	})
	assert.Contains(t, out, "| 1 | `general` | General | yes |")
	assert.Contains(t, out, "| 2 | `extras` | Extras | no |")
	assert.Contains(t, out, "## general")
	assert.Contains(t, out, "- `correo`: email")
	assert.NotContains(t, out, "## extras")
}

func TestDraftMarkdown(t *testing.T) {
	rec := &domain.DraftRecord{
		ID:            "d-1",
		LastSavedStep: 1,
		UpdatedAt:     time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC),
		Payload: domain.FormState{
			"extras":  {"b": 2},
			"general": {"rut": "1-9"},
		},
	}
	out := DraftMarkdown(rec, testSteps(t))
	assert.Contains(t, out, "# Draft d-1")
	assert.Contains(t, out, "Resumes at step: 2 (`extras`)")
	assert.Less(t, bytes.Index([]byte(out), []byte("## general")), bytes.Index([]byte(out), []byte("## extras")))
}

func TestForWriter_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	out, err := ForWriter(&buf)("# hi")
	require.NoError(t, err)
	assert.Equal(t, "# hi", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3\n")
	assert.Contains(t, buf.String(), "v1.2.3")
}
