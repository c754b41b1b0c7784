package main

import (
	"github.com/spf13/cobra"

	"github.com/hedaiyu-site/Graduation-project/internal/app"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/query"
)

func newQueryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the knowledge graph",
	}

	var limit int
	related := &cobra.Command{
		Use:   "related <entity>",
		Short: "Entities related to an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, func(a *app.App) (any, error) {
				return a.Services.Query.RelatedEntities(cmd.Context(), args[0], limit)
			})
		},
	}
	related.Flags().IntVar(&limit, "limit", query.DefaultLimit, "maximum results")

	var docLimit int
	documents := &cobra.Command{
		Use:   "documents <entity>",
		Short: "Documents that mention an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, func(a *app.App) (any, error) {
				return a.Services.Query.DocumentsMentioning(cmd.Context(), args[0], docLimit)
			})
		},
	}
	documents.Flags().IntVar(&docLimit, "limit", query.DefaultLimit, "maximum results")

	var maxHops int
	path := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Shortest relation path between two entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, func(a *app.App) (any, error) {
				return a.Services.Query.PathBetween(cmd.Context(), args[0], args[1], maxHops)
			})
		},
	}
	path.Flags().IntVar(&maxHops, "max-hops", query.DefaultMaxHops, "longest path considered")

	var centralLimit int
	central := &cobra.Command{
		Use:   "central",
		Short: "Entities with the most relations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, func(a *app.App) (any, error) {
				ents, err := a.Services.Query.CentralEntities(cmd.Context(), centralLimit)
				if err != nil {
					return nil, err
				}
				return map[string]any{"entities": ents}, nil
			})
		},
	}
	central.Flags().IntVar(&centralLimit, "limit", 10, "maximum results")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Node and relation counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, func(a *app.App) (any, error) {
				return a.Services.Query.Stats(cmd.Context())
			})
		},
	}

	cmd.AddCommand(related, documents, path, central, stats)
	return cmd
}

func (c *cli) runQuery(cmd *cobra.Command, run func(*app.App) (any, error)) error {
	return c.open(cmd.Context(), app.Options{}, func(a *app.App) error {
		out, err := run(a)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	})
}
