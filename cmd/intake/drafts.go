package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/intake/internal/cli"
	"github.com/aretw0/intake/pkg/catalog"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/spf13/cobra"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage saved drafts",
}

var draftsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved drafts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDrafts(cmd, func(ctx context.Context, store ports.DraftStore, steps *registry.Registry) error {
			return cli.ListDrafts(ctx, store, steps, cmd.OutOrStdout())
		})
	},
}

var draftsInspectCmd = &cobra.Command{
	Use:   "inspect <draft-id>",
	Short: "Show the content of a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withDrafts(cmd, func(ctx context.Context, store ports.DraftStore, steps *registry.Registry) error {
			return cli.InspectDraft(ctx, store, steps, args[0], asJSON, cmd.OutOrStdout())
		})
	},
}

var draftsRmCmd = &cobra.Command{
	Use:   "rm <draft-id>...",
	Short: "Delete drafts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDrafts(cmd, func(ctx context.Context, store ports.DraftStore, _ *registry.Registry) error {
			return cli.RemoveDrafts(ctx, store, args, cmd.OutOrStdout())
		})
	},
}

func withDrafts(cmd *cobra.Command, fn func(context.Context, ports.DraftStore, *registry.Registry) error) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Drafts.Driver == "memory" {
		return errors.New("drafts.driver is memory: nothing is kept between runs")
	}
	steps, err := catalog.New()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeFn, err := cli.OpenDrafts(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open drafts: %w", err)
	}
	defer closeFn()
	return fn(ctx, store, steps)
}

func init() {
	rootCmd.AddCommand(draftsCmd)
	draftsCmd.AddCommand(draftsLsCmd, draftsInspectCmd, draftsRmCmd)
	draftsInspectCmd.Flags().Bool("json", false, "Print the raw record as JSON")
}
