package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/intake/internal/presentation/graph"
	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
)

type stepJSON struct {
	ID       string        `json:"id"`
	Order    int           `json:"order"`
	Title    string        `json:"title"`
	Required bool          `json:"required"`
	Fields   schema.Schema `json:"fields,omitempty"`
}

// PrintSteps describes the intake steps as markdown, mermaid or json.
func PrintSteps(steps *registry.Registry, schemas map[string]schema.Schema, format string, out io.Writer) error {
	switch format {
	case "", "markdown":
		rendered, err := tui.ForWriter(out)(tui.StepsMarkdown(steps, schemas))
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, rendered)
		return err
	case "mermaid":
		_, err := io.WriteString(out, graph.GenerateMermaid(steps, nil))
		return err
	case "json":
		list := make([]stepJSON, 0, steps.Len())
		for _, d := range steps.Steps() {
			list = append(list, stepJSON{ID: d.ID, Order: d.Order, Title: d.Title, Required: d.Required, Fields: schemas[d.ID]})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	return fmt.Errorf("unknown format %q (want markdown, mermaid or json)", format)
}
