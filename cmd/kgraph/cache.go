package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hedaiyu-site/Graduation-project/internal/app"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the query cache",
	}
	flush := &cobra.Command{
		Use:   "flush [glob]",
		Short: "Delete cached results matching a glob, or the whole namespace",
		Long: "Delete cached results. The glob is matched inside the cache namespace,\n" +
			"so \"path:*\" and \"kg:path:*\" are the same pattern.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context(), app.Options{CacheOnly: true}, func(a *app.App) error {
				keys := a.Services.Cache.Keys()
				pattern := keys.All()
				if len(args) == 1 {
					pattern = namespaced(keys.Namespace, args[0])
				}
				n, err := a.Services.Cache.InvalidatePattern(cmd.Context(), pattern)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"pattern": pattern, "deleted": n})
			})
		},
	}
	cmd.AddCommand(flush)
	return cmd
}

func namespaced(ns, glob string) string {
	glob = strings.TrimSpace(glob)
	if strings.HasPrefix(glob, ns+":") {
		return glob
	}
	return ns + ":" + glob
}
