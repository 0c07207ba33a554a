package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/package2pypi/internal/service/publisher"
)

var (
	// renderVersion replaces the computed version in the rendered manifest.
	renderVersion string

	// nextCmd prints the version the next publish would use.
	nextCmd = &cobra.Command{
		Use:   "next <package>",
		Short: "Print the next version of a package.",
		Long:  "Queries the index for the newest published version and prints it increased by 0.1. Nothing is written.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, cfg, err := setup()
			if err != nil {
				return err
			}
			defer stop()

			plan, err := publisher.Prepare(ctx, &publisher.Options{Config: cfg, PackageName: args[0]}, "")
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", plan.Package, plan.Current, plan.Next)

			return err
		},
	}

	// renderCmd prints the setup.py a publish would write.
	renderCmd = &cobra.Command{
		Use:   "render <package>",
		Short: "Print the generated setup.py of a package.",
		Long:  "Renders setup.py for the next version, or for --version when given, and prints it. Nothing is written.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, cfg, err := setup()
			if err != nil {
				return err
			}
			defer stop()

			plan, err := publisher.Prepare(ctx, &publisher.Options{Config: cfg, PackageName: args[0]}, renderVersion)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), plan.Manifest)

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	renderCmd.Flags().StringVar(&renderVersion, "version", "", "version to render instead of the next one")
}
