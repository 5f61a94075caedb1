package main

import (
	"github.com/aretw0/intake/internal/cli"
	"github.com/aretw0/intake/pkg/catalog"
	"github.com/spf13/cobra"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Describe the intake steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		steps, err := catalog.New()
		if err != nil {
			return err
		}
		return cli.PrintSteps(steps, catalog.Schemas(), format, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(stepsCmd)
	stepsCmd.Flags().StringP("format", "f", "markdown", "Output format: markdown, mermaid or json")
}
