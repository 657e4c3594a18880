package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"RecordSync/internal/app"
	"RecordSync/internal/config"
	"RecordSync/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Full       bool
	Threshold  int
}

// NewRootCommand creates the root command. Without a subcommand it runs
// an update.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "recordsync",
		Short: "Keep a local archive of the Congressional Record in sync",
		Long: `recordsync mirrors the daily Congressional Record from the congress.gov API
into a local directory tree: one formatted-text file per article plus a JSON
metadata sidecar, grouped by congress.

Each run refreshes the issue catalog, then walks issues newest first and
downloads whatever is missing. It stops after a few consecutive issues that
are already complete.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (default $RECORDSYNC_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVar(&opts.Full, "full", false, "never stop early; check every issue")
	cmd.PersistentFlags().IntVar(&opts.Threshold, "threshold", -1, "consecutive complete issues before stopping (default from config)")

	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// loadConfig reads the config and applies command-line overrides.
func (o *RootOptions) loadConfig() config.Config {
	cfg := config.Load(o.ConfigPath)
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}
	switch {
	case o.Full:
		cfg.Update.StopThreshold = 0
	case o.Threshold >= 0:
		cfg.Update.StopThreshold = o.Threshold
	}
	return cfg
}

// setup builds config, logger and application for a command.
func (o *RootOptions) setup(cmd *cobra.Command) (config.Config, *slog.Logger, *app.Application, error) {
	cfg := o.loadConfig()
	logger := logging.NewWriter(cmd.ErrOrStderr(), cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return cfg, logger, nil, WrapExitError(ExitConfigError, "startup failed", err)
	}
	return cfg, logger, application, nil
}

// withInterrupts runs fn with a context that the second interrupt cancels
// and a stop channel that the first interrupt closes.
func (o *RootOptions) withInterrupts(cmd *cobra.Command, logger *slog.Logger, fn func(ctx context.Context, stop <-chan struct{}) error) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	sigs, unsubscribe := notifyInterrupts()
	defer unsubscribe()

	ctx, stop, release := interrupts(parent, sigs, logger)
	defer release()
	return fn(ctx, stop)
}
