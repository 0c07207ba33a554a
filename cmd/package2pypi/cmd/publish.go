package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oshokin/package2pypi/internal/config"
	"github.com/oshokin/package2pypi/internal/service/publisher"
	"github.com/oshokin/package2pypi/internal/statusline"
)

var errNoPassword = errors.New("index password is not configured and stdin is not a terminal")

// publishCmd runs the full publish workflow for one package.
var publishCmd = &cobra.Command{
	Use:   "publish <package>",
	Short: "Build, upload and verify the next version of a package.",
	Long: `Stages the packaging files, builds a source distribution, uploads it and
waits until the new version is listed on the index and installable.

The package prefix from the settings is added when missing, so "foo" and
"r00foo" name the same package.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop, cfg, err := setup()
		if err != nil {
			return err
		}
		defer stop()

		if err = promptPassword(cfg); err != nil {
			return err
		}

		_, err = publisher.Run(ctx, &publisher.Options{
			Config:      cfg,
			PackageName: args[0],
			Notifier:    statusline.New(cmd.OutOrStdout()),
		})

		return err
	},
}

// promptPassword asks for the index password when the settings leave it empty.
func promptPassword(cfg *config.Config) error {
	if cfg.Credentials.Password != "" {
		return nil
	}

	fd := int(os.Stdin.Fd()) //nolint:gosec // File descriptors fit in int.
	if !term.IsTerminal(fd) {
		return errNoPassword
	}

	_, _ = fmt.Fprintf(os.Stderr, "Index password for %s: ", cfg.Credentials.Login)

	password, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(os.Stderr)

	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	cfg.Credentials.Password = strings.TrimSpace(string(password))

	return nil
}
