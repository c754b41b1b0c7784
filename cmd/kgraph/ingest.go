package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hedaiyu-site/Graduation-project/internal/app"
	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/ingestion/source"
	"github.com/hedaiyu-site/Graduation-project/internal/modules/knowledge/pipeline"
)

func newIngestCmd(c *cli) *cobra.Command {
	var (
		watch      bool
		force      bool
		extensions []string
	)
	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Ingest every markdown document under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := source.DefaultOptions()
			if len(extensions) > 0 {
				opts.Extensions = normalizeExtensions(extensions)
			}
			dir, err := source.NewDir(args[0], opts, c.log)
			if err != nil {
				return err
			}
			return c.open(cmd.Context(), app.Options{}, func(a *app.App) error {
				ctx := cmd.Context()
				docs, err := dir.Load(ctx)
				if err != nil {
					return err
				}
				c.log.Info("ingesting directory", "root", dir.Root(), "documents", len(docs))
				if err := ingestAndPrint(ctx, cmd, a, docs, force); err != nil {
					return err
				}
				if !watch {
					return nil
				}
				err = dir.Watch(ctx, c.cfg.Ingest.WatchDebounce, func(ctx context.Context, changed []knowledge.DocumentInput) {
					if err := ingestAndPrint(ctx, cmd, a, changed, false); err != nil && ctx.Err() == nil {
						c.log.Warn("watch ingest failed", "documents", len(changed), "error", err)
					}
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-ingest files as they change")
	cmd.Flags().BoolVar(&force, "force", false, "re-ingest documents the ledger has already seen")
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "file extensions to pick up (default .md,.markdown)")
	return cmd
}

func ingestAndPrint(ctx context.Context, cmd *cobra.Command, a *app.App, docs []knowledge.DocumentInput, force bool) error {
	summary, err := a.Services.Ingest.Ingest(ctx, docs, pipeline.IngestOptions{Force: force})
	if summary != nil {
		if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

func normalizeExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
