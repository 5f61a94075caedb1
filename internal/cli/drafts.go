package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/registry"
)

// ListDrafts prints one line per stored draft.
func ListDrafts(ctx context.Context, store ports.DraftStore, steps *registry.Registry, out io.Writer) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list drafts: %w", err)
	}
	if len(ids) == 0 {
		printSystemMessage(out, "No drafts.")
		return nil
	}
	slices.Sort(ids)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTEP\tUPDATED")
	for _, id := range ids {
		rec, err := store.Load(ctx, id)
		if err != nil {
			fmt.Fprintf(tw, "%s\t?\t%v\n", id, err)
			continue
		}
		step := "?"
		if rec.LastSavedStep >= 0 && rec.LastSavedStep < steps.Len() {
			step = steps.At(rec.LastSavedStep).ID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", id, step, rec.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// InspectDraft prints a draft as rendered markdown, or raw JSON.
func InspectDraft(ctx context.Context, store ports.DraftStore, steps *registry.Registry, id string, asJSON bool, out io.Writer) error {
	rec, err := store.Load(ctx, id)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	rendered, err := tui.ForWriter(out)(tui.DraftMarkdown(rec, steps))
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}

// RemoveDrafts discards the given drafts.
func RemoveDrafts(ctx context.Context, store ports.DraftStore, ids []string, out io.Writer) error {
	for _, id := range ids {
		if err := store.Discard(ctx, id); err != nil {
			return fmt.Errorf("discard %s: %w", id, err)
		}
		printSystemMessage(out, "Draft '%s' removed.", id)
	}
	return nil
}
