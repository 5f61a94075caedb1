package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
)

// Overlay contains session data to visualize on the graph.
type Overlay struct {
	Validated []string
	Current   string
	Submitted bool
}

// submitNodeID is the terminal node every intake flows into.
const submitNodeID = "submit"

// GenerateMermaid produces a Mermaid flowchart of the intake steps.
// Shapes:
// - Required step: [Rectangle]
// - Optional step: ([Stadium])
// - Submission: ((Circle)), labelled with the stage it commits to
// Back navigation is drawn as dotted edges.
func GenerateMermaid(steps *registry.Registry, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	defs := steps.Steps()
	for i, step := range defs {
		safeID := sanitizeMermaidID(step.ID)
		label := step.ID
		if step.Title != "" {
			label = step.Title
		}
		label = strings.ReplaceAll(label, "\"", "'")

		opener, closer := "[", "]"
		if !step.Required {
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%d. %s\"%s\n", safeID, opener, i+1, label, closer)

		if i+1 < len(defs) {
			next := sanitizeMermaidID(defs[i+1].ID)
			fmt.Fprintf(&sb, "    %s -- \"next\" --> %s\n", safeID, next)
			fmt.Fprintf(&sb, "    %s -. \"prev\" .-> %s\n", next, safeID)
		}
	}

	last := sanitizeMermaidID(defs[len(defs)-1].ID)
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", submitNodeID, domain.StageOnboarding)
	fmt.Fprintf(&sb, "    %s -- \"submit\" --> %s\n", last, submitNodeID)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds
		sb.WriteString("    classDef validated fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Validated {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || seen[safeID] {
				continue
			}
			if _, ok := steps.Lookup(id); !ok {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s validated;\n", safeID)
		}

		switch {
		case overlay.Submitted:
			fmt.Fprintf(&sb, "    class %s current;\n", submitNodeID)
		case overlay.Current != "":
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
