package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/featurefleet/internal/infrastructure/coordination"
)

// passwordCmd groups the encryption password commands.
var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Encryption master password",
}

func init() {
	passwordCmd.AddCommand(newPasswordGetCmd())
	rootCmd.AddCommand(passwordCmd)
}

func newPasswordGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the encryption master password",
		Long:  `Print the encryption master password stored in the coordination store. Nothing is printed when no password is set.`,
		Args:  cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
			store, err := ctx.Container.CoordinationStore()
			if err != nil {
				return err
			}
			password, found, err := coordination.MasterPassword(ctx.Context, store)
			if err != nil {
				return err
			}
			if !found {
				ctx.Logger.Debug("no master password set")
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), password)
			return err
		}),
	}
}
