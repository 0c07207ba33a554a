package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/package2pypi/internal/config"
	"github.com/oshokin/package2pypi/internal/logger"
	"github.com/oshokin/package2pypi/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// logLevel overrides log_level from the configuration file.
	logLevel string
	// quiet limits console logging to warnings and errors.
	quiet bool

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "package2pypi",
		Short: "Publish Python packages and verify they install.",
		Long: `Builds a package from its directory under the packages root, uploads it
to the index with the next version, then waits until the index lists the
version and the install tool installs it.

Version numbers advance by 0.1 on every publish.`,
		SilenceUsage: true,
	}
)

// Execute runs the package2pypi CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVarP(&quiet, "quiet", "q", false, "log only warnings and errors")

	rootCmd.AddCommand(publishCmd, nextCmd, renderCmd)
}

// setup loads settings, configures logging and returns a context canceled
// on SIGINT or SIGTERM.
func setup() (context.Context, context.CancelFunc, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}

	levelName := cfg.LogLevel
	if logLevel != "" {
		levelName = logLevel
	}

	level, ok := logger.ParseLogLevel(levelName)
	if !ok {
		return nil, nil, nil, fmt.Errorf("unknown log level %q", levelName)
	}

	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	if quiet {
		ctx = logger.ToContext(ctx, logger.New(nil, logger.WithLevel(zapcore.WarnLevel)))
	}

	return ctx, stop, cfg, nil
}
