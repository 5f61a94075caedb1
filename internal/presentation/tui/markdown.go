package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
)

// StepsMarkdown describes every step and, when known, its fields.
func StepsMarkdown(steps *registry.Registry, schemas map[string]schema.Schema) string {
	var sb strings.Builder
	sb.WriteString("# Intake steps\n\n")
	sb.WriteString("| # | Step | Title | Required |\n|---|------|-------|----------|\n")
	for i, s := range steps.Steps() {
		req := "yes"
		if !s.Required {
			req = "no"
		}
		fmt.Fprintf(&sb, "| %d | `%s` | %s | %s |\n", i+1, s.ID, s.Title, req)
	}

	for _, s := range steps.Steps() {
		sch, ok := schemas[s.ID]
		if !ok || len(sch) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", s.ID)
		for _, f := range sch.Fields() {
			fmt.Fprintf(&sb, "- `%s`: %s\n", f, sch[f].Name())
		}
	}
	return sb.String()
}

// DraftMarkdown summarizes a stored draft.
func DraftMarkdown(rec *domain.DraftRecord, steps *registry.Registry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Draft %s\n\n", rec.ID)
	fmt.Fprintf(&sb, "- Updated: %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	resume := fmt.Sprint(rec.LastSavedStep)
	if steps != nil && rec.LastSavedStep >= 0 && rec.LastSavedStep < steps.Len() {
		resume = fmt.Sprintf("%d (`%s`)", rec.LastSavedStep+1, steps.At(rec.LastSavedStep).ID)
	}
	fmt.Fprintf(&sb, "- Resumes at step: %s\n", resume)

	ids := make([]string, 0, len(rec.Payload))
	for id := range rec.Payload {
		ids = append(ids, id)
	}
	if steps != nil {
		sort.SliceStable(ids, func(i, j int) bool { return steps.Index(ids[i]) < steps.Index(ids[j]) })
	} else {
		sort.Strings(ids)
	}

	for _, id := range ids {
		fmt.Fprintf(&sb, "\n## %s\n\n", id)
		data := rec.Payload[id]
		fields := make([]string, 0, len(data))
		for f := range data {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(&sb, "- `%s`: %v\n", f, data[f])
		}
	}
	return sb.String()
}
