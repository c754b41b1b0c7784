package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/hedaiyu-site/Graduation-project/internal/app"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

// cli carries what the persistent pre-run resolved for the subcommands.
type cli struct {
	configPath string
	envFiles   []string

	cfg app.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "kgraph",
		Short:         "Build and query a knowledge graph from markdown notes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Load(c.configPath, c.envFiles...)
			if err != nil {
				return err
			}
			log, err := app.NewLogger(cfg)
			if err != nil {
				return err
			}
			c.cfg, c.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		newServeCmd(c),
		newIngestCmd(c),
		newQueryCmd(c),
		newCacheCmd(c),
		newHealthCmd(c),
	)
	return root
}

// open wires the application for one command and hands it to run.
func (c *cli) open(ctx context.Context, opts app.Options, run func(*app.App) error) error {
	a, err := app.New(ctx, c.log, c.cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return run(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
