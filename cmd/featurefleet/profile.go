package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/featurefleet/internal/application/dto"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/config"
)

// profileCmd groups the profile commands.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "List, show, edit and delete stored profiles",
}

func init() {
	profileCmd.AddCommand(
		newProfileListCmd(),
		newProfileShowCmd(),
		newProfileEditCmd(),
		newProfileDeleteCmd(),
	)
	rootCmd.AddCommand(profileCmd)
}

func newProfileListCmd() *cobra.Command {
	opts := DefaultOutputOptions()
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the profiles of the configured version",
		Args:  cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
			if err := opts.ValidateFlags(); err != nil {
				return err
			}
			profiles, err := ctx.Container.ProfileService().List(ctx.Context, dto.ListProfilesRequest{
				Version:       viper.GetString(config.KeyProfilesVersion),
				IncludeHidden: all,
			})
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}

			return render(cmd.OutOrStdout(), opts.Format, profiles, func(w *tabwriter.Writer) error {
				if _, err := fmt.Fprintln(w, "ID\tPARENTS\tFLAGS\tSUMMARY"); err != nil {
					return fmt.Errorf("failed to write header: %w", err)
				}
				for _, p := range profiles {
					if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						p.ID, strings.Join(p.Parents, " "), profileFlags(p), firstLine(p.Summary)); err != nil {
						return fmt.Errorf("failed to write profile: %w", err)
					}
				}
				return nil
			})
		}),
	}

	opts.RegisterFlags(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "include hidden profiles")
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	opts := DefaultOutputOptions()

	cmd := &cobra.Command{
		Use:   "show <profile>",
		Short: "Show a profile",
		Args:  cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			if err := opts.ValidateFlags(); err != nil {
				return err
			}
			d, err := ctx.Container.ProfileService().Show(ctx.Context, viper.GetString(config.KeyProfilesVersion), args[0])
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), opts.Format, d, func(w *tabwriter.Writer) error {
				rows := [][2]string{
					{"Profile", d.ID},
					{"Version", d.Version},
					{"Parents", strings.Join(d.Parents, " ")},
					{"Flags", profileFlags(d.ProfileSummary)},
					{"Tags", strings.Join(d.Tags, " ")},
					{"Repositories", strings.Join(d.Repositories, "\n\t")},
					{"Features", strings.Join(d.Features, "\n\t")},
					{"Bundles", strings.Join(d.Bundles, "\n\t")},
					{"Files", strings.Join(d.Files, " ")},
					{"Icon", d.IconURL},
					{"Hash", d.ContentHash},
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

func newProfileEditCmd() *cobra.Command {
	var (
		req        dto.EditProfileRequest
		attributes []string
		parents    string
	)

	cmd := &cobra.Command{
		Use:   "edit <profile>",
		Short: "Edit the agent configuration of a profile",
		Long: `Add features, repositories, bundles and attributes to a profile, or remove
them with --delete. Running containers pick the change up on their next
reconciliation pass.`,
		Example: `  featurefleet profile edit --feature web/1.0 --repository mvn:org/repo/1.0/xml/features web
  featurefleet profile edit --delete --feature web web
  featurefleet profile edit --parents "base java" web`,
		Args: cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			attrs, err := parseAttributes(attributes, req.Delete)
			if err != nil {
				return err
			}
			req.Attributes = attrs
			if cmd.Flags().Changed("parents") {
				req.Parents = strings.Fields(parents)
			}
			req.Version = viper.GetString(config.KeyProfilesVersion)
			req.ProfileID = args[0]
			req.Metadata.RequestID = uuid.NewString()

			resp, err := ctx.Container.ProfileService().Edit(ctx.Context, req)
			if err != nil {
				return err
			}
			if !resp.Changed {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "profile %s unchanged\n", args[0])
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "profile %s updated: %d features, %d repositories\n",
				args[0], len(resp.Profile.Features), len(resp.Profile.Repositories))
			return err
		}),
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&req.Features, "feature", nil, "feature reference (name or name/version)")
	flags.StringArrayVar(&req.Repositories, "repository", nil, "repository URI")
	flags.StringArrayVar(&req.Bundles, "bundle", nil, "bundle URI")
	flags.StringArrayVar(&attributes, "attribute", nil, "attribute as key=value (key only with --delete)")
	flags.StringVar(&parents, "parents", "", "space separated parent profiles; empty clears them")
	flags.BoolVar(&req.Delete, "delete", false, "remove the given entries instead of adding them")
	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <profile>",
		Short: "Delete a stored profile",
		Long:  `Delete a profile of the configured version. Locked profiles are refused.`,
		Args:  cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			if err := ctx.Container.ProfileService().Delete(ctx.Context, viper.GetString(config.KeyProfilesVersion), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "profile %s deleted\n", args[0])
			return err
		}),
	}
}

// parseAttributes turns key=value pairs into a map. With remove only keys
// are needed.
func parseAttributes(pairs []string, remove bool) (map[string]string, error) {
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if key == "" || (!ok && !remove) {
			return nil, fmt.Errorf("invalid attribute %q: expected key=value", pair)
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}

func profileFlags(p dto.ProfileSummary) string {
	var flags []string
	if p.Abstract {
		flags = append(flags, "abstract")
	}
	if p.Locked {
		flags = append(flags, "locked")
	}
	if p.Hidden {
		flags = append(flags, "hidden")
	}
	return strings.Join(flags, ",")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
