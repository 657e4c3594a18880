package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run an update now and then once per scheduler interval",
		Long: `Run an update immediately and repeat it every scheduler.interval
(default 24h) until interrupted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, rootOpts)
		},
	}
}

func runWatch(cmd *cobra.Command, opts *RootOptions) error {
	_, logger, application, err := opts.setup(cmd)
	if err != nil {
		return err
	}

	return opts.withInterrupts(cmd, logger, func(ctx context.Context, stop <-chan struct{}) error {
		if err := application.Watch(ctx, stop); err != nil {
			return WrapExitError(ExitFailure, "watch failed", err)
		}
		return nil
	})
}
