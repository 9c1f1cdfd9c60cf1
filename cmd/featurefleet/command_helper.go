package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/featurefleet/internal/application/services"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/config"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/container"
)

// CommandContext provides common command dependencies.
type CommandContext struct {
	Container *container.Container
	Logger    *slog.Logger
	Context   context.Context
}

// CommandHandler is a function that executes with initialized dependencies.
type CommandHandler func(*CommandContext, *cobra.Command, []string) error

// withContainer wraps a command handler with container initialization.
// Configuration comes from viper: flags, environment and config file.
func withContainer(handler CommandHandler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromViper(viper.GetViper())
		if err != nil {
			return err
		}

		logger := slog.Default()
		c, err := container.New(container.Options{
			Config:  *cfg,
			Logger:  logger,
			Command: rootCmd.Name(),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return handler(&CommandContext{
			Container: c,
			Logger:    logger,
			Context:   ctx,
		}, cmd, args)
	}
}

// reconcile runs one pass so that queries see the current profile. A pass
// that does not converge leaves the previous (empty) snapshot in place.
func reconcile(ctx *CommandContext) error {
	run, err := ctx.Container.Reconciler().Run(ctx.Context, services.ReasonManual)
	if err != nil {
		return err
	}
	if !run.State.IsSuccess() {
		ctx.Logger.Warn("reconciliation did not converge", "state", run.State, "attempts", run.Attempts)
	}
	return nil
}
