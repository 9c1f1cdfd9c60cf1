package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// repoCmd groups the repository commands.
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Query feature repositories",
}

func init() {
	repoCmd.AddCommand(
		newRepoListCmd(),
		newRepoValidateCmd(),
		newRepoAddCmd(),
		newRepoRemoveCmd(),
	)
	rootCmd.AddCommand(repoCmd)
}

type repositoryView struct {
	URI          string   `json:"uri" yaml:"uri"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Features     int      `json:"features" yaml:"features"`
	Repositories []string `json:"repositories,omitempty" yaml:"repositories,omitempty"`
}

func newRepoListCmd() *cobra.Command {
	opts := DefaultOutputOptions()
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the repositories resolved from the container profile",
		Long: `List the repositories installed from the container profile. With --all the
repositories referenced by every profile of the container version are listed
too.`,
		Example: `  featurefleet repo list
  featurefleet repo list --all --format yaml`,
		Args: cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
			if err := opts.ValidateFlags(); err != nil {
				return err
			}
			c, cancel := opts.ApplyToContext(ctx.Context)
			defer cancel()
			ctx.Context = c
			if err := reconcile(ctx); err != nil {
				return err
			}

			svc := ctx.Container.FeaturesService()
			repos := svc.ListInstalledRepositories()
			if all {
				available, err := svc.ListRepositories(ctx.Context)
				if err != nil {
					return err
				}
				repos = available
			}
			views := make([]repositoryView, 0, len(repos))
			for _, r := range repos {
				views = append(views, repositoryView{
					URI:          r.URI,
					Name:         r.Name,
					Features:     len(r.Features),
					Repositories: r.Repositories,
				})
			}

			return render(cmd.OutOrStdout(), opts.Format, views, func(w *tabwriter.Writer) error {
				if _, err := fmt.Fprintln(w, "NAME\tFEATURES\tURI"); err != nil {
					return fmt.Errorf("failed to write header: %w", err)
				}
				for _, v := range views {
					if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", v.Name, v.Features, v.URI); err != nil {
						return fmt.Errorf("failed to write repository: %w", err)
					}
				}
				return nil
			})
		}),
	}

	opts.RegisterFlags(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "include repositories of every profile, not only installed ones")
	return cmd
}

func newRepoValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <uri>",
		Short: "Fetch and parse a repository descriptor without installing it",
		Args:  cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			repo, err := ctx.Container.FeaturesService().ValidateRepository(ctx.Context, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d features, %d nested repositories\n",
				repo.URI, len(repo.Features), len(repo.Repositories))
			return err
		}),
	}
}

func newRepoAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <uri>",
		Short: "Add a repository (managed through profiles)",
		Args:  cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, _ *cobra.Command, args []string) error {
			return ctx.Container.FeaturesService().AddRepository(args[0])
		}),
	}
}

func newRepoRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <uri>",
		Short: "Remove a repository (managed through profiles)",
		Args:  cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, _ *cobra.Command, args []string) error {
			return ctx.Container.FeaturesService().RemoveRepository(args[0])
		}),
	}
}
