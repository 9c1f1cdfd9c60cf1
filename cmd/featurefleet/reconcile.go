package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/featurefleet/internal/application/dto"
	"github.com/reglet-dev/featurefleet/internal/application/services"
)

func init() {
	rootCmd.AddCommand(newReconcileCmd())
}

type reconcileReport struct {
	Status dto.ReconcileStatus `json:"status" yaml:"status"`
}

func newReconcileCmd() *cobra.Command {
	opts := DefaultOutputOptions()

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass and report the outcome",
		Args:  cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
			if err := opts.ValidateFlags(); err != nil {
				return err
			}
			c, cancel := opts.ApplyToContext(ctx.Context)
			defer cancel()

			if _, err := ctx.Container.Reconciler().Run(c, services.ReasonManual); err != nil {
				return err
			}
			report := reconcileReport{Status: ctx.Container.Reconciler().Status()}

			return render(cmd.OutOrStdout(), opts.Format, report, func(w *tabwriter.Writer) error {
				s := report.Status
				rows := [][2]string{
					{"State", s.State},
					{"Snapshot", s.SnapshotID},
					{"Repositories", fmt.Sprint(s.Repositories)},
					{"Features", fmt.Sprint(s.Features)},
				}
				if run := s.LastRun; run != nil {
					rows = append(rows,
						[2]string{"Attempts", fmt.Sprint(run.Attempts)},
						[2]string{"Duration", run.Duration.Round(time.Millisecond).String()},
					)
					if run.Error != "" {
						rows = append(rows, [2]string{"Error", run.Error})
					}
				}
				for _, row := range rows {
					if _, err := fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1]); err != nil {
						return err
					}
				}
				return nil
			})
		}),
	}

	opts.RegisterFlags(cmd)
	return cmd
}
