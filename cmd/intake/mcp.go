package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/aretw0/intake/internal/cli"
	"github.com/aretw0/intake/pkg/access"
	"github.com/aretw0/intake/pkg/adapters/mcp"
	"github.com/aretw0/intake/pkg/catalog"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server on stdio",
	Long: `Exposes intake sessions as MCP tools so an agent can fill an intake on
behalf of a configured user. Stdout carries JSON-RPC; logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		email, _ := cmd.Flags().GetString("as")
		if email == "" {
			return errors.New("--as is required: the user the agent acts for")
		}

		app, err := cli.Build(context.Background(), cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		profile, err := app.Directory.Lookup(email)
		if err != nil {
			return err
		}

		log.SetOutput(os.Stderr)
		srv := mcp.NewServer(app.Sessions, access.For(profile),
			mcp.WithSchemas(catalog.Schemas()),
			mcp.WithLogger(logger),
		)
		logger.Info("serving MCP on stdio", "user", profile.Email, "role", profile.Role)
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("as", "", "E-mail of the configured user the agent acts for")
}
