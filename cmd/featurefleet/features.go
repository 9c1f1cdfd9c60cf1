package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/featurefleet/internal/domain/entities"
)

// featuresCmd groups the feature commands.
var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Query the features resolved from the container profile",
}

func init() {
	featuresCmd.AddCommand(
		newFeaturesListCmd(),
		newFeaturesInfoCmd(),
		newFeaturesInstallCmd(),
		newFeaturesUninstallCmd(),
	)
	rootCmd.AddCommand(featuresCmd)
}

type featureView struct {
	Name         string   `json:"name" yaml:"name"`
	Version      string   `json:"version" yaml:"version"`
	Installed    bool     `json:"installed" yaml:"installed"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Bundles      []string `json:"bundles,omitempty" yaml:"bundles,omitempty"`
	Versions     []string `json:"versions,omitempty" yaml:"versions,omitempty"`
}

func newFeatureView(f entities.Feature, installed bool) featureView {
	deps := make([]string, 0, len(f.Dependencies))
	for _, d := range f.Dependencies {
		deps = append(deps, d.String())
	}
	return featureView{
		Name:         f.Name,
		Version:      f.Version,
		Installed:    installed,
		Description:  f.Description,
		Dependencies: deps,
		Bundles:      f.Bundles,
	}
}

func newFeaturesListCmd() *cobra.Command {
	opts := DefaultOutputOptions()
	var installedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List features of the repositories available to the container",
		Long: `List every feature declared by a repository that a profile of the container
version references, installed or not. With --installed only the features of
the current snapshot are listed.`,
		Example: `  featurefleet features list
  featurefleet features list --installed --format json`,
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
			var features []entities.Feature
			if installedOnly {
				features = svc.ListInstalledFeatures()
			} else {
				all, err := svc.ListFeatures(ctx.Context)
				if err != nil {
					return err
				}
				features = all
			}

			views := make([]featureView, 0, len(features))
			for _, f := range features {
				views = append(views, newFeatureView(f, svc.IsInstalled(f.Name, f.Version)))
			}

			return render(cmd.OutOrStdout(), opts.Format, views, func(w *tabwriter.Writer) error {
				if _, err := fmt.Fprintln(w, "NAME\tVERSION\tINSTALLED\tDESCRIPTION"); err != nil {
					return fmt.Errorf("failed to write header: %w", err)
				}
				for _, v := range views {
					if _, err := fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", v.Name, v.Version, v.Installed, v.Description); err != nil {
						return fmt.Errorf("failed to write feature: %w", err)
					}
				}
				return nil
			})
		}),
	}

	opts.RegisterFlags(cmd)
	cmd.Flags().BoolVar(&installedOnly, "installed", false, "only list installed features")
	return cmd
}

func newFeaturesInfoCmd() *cobra.Command {
	opts := DefaultOutputOptions()

	cmd := &cobra.Command{
		Use:   "info <name> [version]",
		Short: "Show a feature",
		Long: `Show a feature declared by an available repository. The version may be an
exact version or a range such as "[2.16,2.17)". Without a version the highest
declared version is shown.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			if err := opts.ValidateFlags(); err != nil {
				return err
			}
			c, cancel := opts.ApplyToContext(ctx.Context)
			defer cancel()
			ctx.Context = c
			if err := reconcile(ctx); err != nil {
				return err
			}

			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			svc := ctx.Container.FeaturesService()
			f, err := svc.GetFeature(ctx.Context, args[0], version)
			if err != nil {
				return err
			}
			versions, err := svc.Versions(ctx.Context, f.Name)
			if err != nil {
				return err
			}
			view := newFeatureView(f, svc.IsInstalled(f.Name, f.Version))
			view.Versions = versions

			return render(cmd.OutOrStdout(), opts.Format, view, func(w *tabwriter.Writer) error {
				rows := [][2]string{
					{"Name", view.Name},
					{"Version", view.Version},
					{"Installed", fmt.Sprint(view.Installed)},
					{"Description", view.Description},
					{"Dependencies", strings.Join(view.Dependencies, ", ")},
					{"Bundles", strings.Join(view.Bundles, ", ")},
					{"Versions", strings.Join(view.Versions, ", ")},
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

func newFeaturesInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <name> [version]",
		Short: "Install a feature (managed through profiles)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withContainer(func(ctx *CommandContext, _ *cobra.Command, args []string) error {
			name, version := featureArgs(args)
			return ctx.Container.FeaturesService().InstallFeature(name, version)
		}),
	}
}

func newFeaturesUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <name> [version]",
		Short: "Uninstall a feature (managed through profiles)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withContainer(func(ctx *CommandContext, _ *cobra.Command, args []string) error {
			name, version := featureArgs(args)
			return ctx.Container.FeaturesService().UninstallFeature(name, version)
		}),
	}
}

// featureArgs accepts "name version" as well as "name/version".
func featureArgs(args []string) (name, version string) {
	name = args[0]
	if len(args) == 2 {
		return name, args[1]
	}
	if n, v, ok := strings.Cut(name, "/"); ok {
		return n, v
	}
	return name, ""
}
