package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"RecordSync/internal/usecase"
)

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Sync the catalog and download missing articles",
		Long: `Sync the issue catalog, then download every missing article, newest issue
first, until enough consecutive complete issues have been seen.

Interrupt once to stop after the current issue; interrupt again to abort.

Example:
  recordsync update
  recordsync update --full --config ./recordsync.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, rootOpts)
		},
	}
}

func runUpdate(cmd *cobra.Command, opts *RootOptions) error {
	_, logger, application, err := opts.setup(cmd)
	if err != nil {
		return err
	}

	return opts.withInterrupts(cmd, logger, func(ctx context.Context, stop <-chan struct{}) error {
		summary, err := application.Run(ctx, stop)
		if err == nil || summary.IssuesExamined > 0 {
			fmt.Fprint(cmd.OutOrStdout(), summary.Report())
		}

		switch {
		case err == nil:
			return nil
		case errors.Is(err, usecase.ErrEmptyCatalog):
			return WrapExitError(ExitFailure, "nothing to update", err)
		case errors.Is(err, context.Canceled):
			return WrapExitError(ExitInterrupted, "update aborted", err)
		default:
			return WrapExitError(ExitFailure, "update failed", err)
		}
	})
}
