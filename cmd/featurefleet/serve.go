package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/reglet-dev/featurefleet/internal/infrastructure/metrics"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Keep the installed features in line with the profile",
		Long: `Run the reconciliation loop in the foreground. A pass runs at start and
whenever a profile changes on disk. When metrics.listen is set the listener
serves /metrics, the current /status and the pass history under /runs.`,
		Args: cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, _ *cobra.Command, _ []string) error {
			sigCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := ctx.Container
			g, gctx := errgroup.WithContext(sigCtx)
			g.Go(func() error { return c.Worker().Run(gctx) })

			watcher, err := c.ProfileWatcher()
			if err != nil {
				return err
			}
			g.Go(func() error { return watcher.Run(gctx) })

			if addr := c.Config().MetricsListen; addr != "" {
				g.Go(func() error { return metrics.Serve(gctx, addr, c.HTTPHandler(), ctx.Logger) })
			}

			ctx.Logger.Info("featurefleet serving",
				"profile", c.Config().ProfileID,
				"version", c.Config().ProfilesVersion)
			return g.Wait()
		}),
	}
}
