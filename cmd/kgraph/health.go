package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hedaiyu-site/Graduation-project/internal/app"
)

func newHealthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to Neo4j, Redis and the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, checks := app.CheckDependencies(cmd.Context(), c.log, c.cfg)
			status := "ok"
			if !ok {
				status = "degraded"
			}
			if err := printJSON(cmd.OutOrStdout(), map[string]any{"status": status, "checks": checks}); err != nil {
				return err
			}
			if !ok {
				return errors.New("one or more dependencies are unhealthy")
			}
			return nil
		},
	}
}
