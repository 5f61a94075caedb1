package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/intake/internal/presentation/graph"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/stretchr/testify/require"
)

func steps(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(
		domain.StepDefinition{ID: "datos-generales", Title: "Datos Generales", Required: true},
		domain.StepDefinition{ID: "contrapartes", Required: false},
		domain.StepDefinition{ID: "plan", Title: `Plan "Pro"`, Required: true},
	)
	require.NoError(t, err)
	return reg
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes and edges",
			contains: []string{
				"graph TD",
				`datos_generales["1. Datos Generales"]`,
				`contrapartes(["2. contrapartes"])`,
				`plan["3. Plan 'Pro'"]`,
				`datos_generales -- "next" --> contrapartes`,
				`contrapartes -. "prev" .-> datos_generales`,
				`submit(("ONBOARDING"))`,
				`plan -- "submit" --> submit`,
			},
			excludes: []string{"classDef"},
		},
		{
			name:    "Overlay",
			overlay: &graph.Overlay{Validated: []string{"datos-generales", "datos-generales", "ghost"}, Current: "contrapartes"},
			contains: []string{
				"classDef validated",
				"class datos_generales validated;",
				"class contrapartes current;",
			},
			excludes: []string{"class ghost"},
		},
		{
			name:     "Submitted",
			overlay:  &graph.Overlay{Current: "plan", Submitted: true},
			contains: []string{"class submit current;"},
			excludes: []string{"class plan current;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(steps(t), tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q\ngot:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output not to contain %q\ngot:\n%s", unwanted, got)
				}
			}
			if strings.Count(got, "validated;") > 1 {
				t.Errorf("validated class applied more than once:\n%s", got)
			}
		})
	}
}
