package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "catalog",
		Short:         "Refresh the issue catalog only",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, rootOpts)
		},
	}
}

func runCatalog(cmd *cobra.Command, opts *RootOptions) error {
	cfg, logger, application, err := opts.setup(cmd)
	if err != nil {
		return err
	}

	return opts.withInterrupts(cmd, logger, func(ctx context.Context, _ <-chan struct{}) error {
		result, err := application.SyncCatalog(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return WrapExitError(ExitInterrupted, "catalog sync aborted", err)
			}
			return WrapExitError(ExitFailure, "catalog sync failed", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Catalog: %s\n", cfg.Storage.CatalogPath)
		fmt.Fprintf(out, "Issues: %d\n", len(result.Catalog))
		fmt.Fprintf(out, "Fetched: %d\n", result.Fetched)
		fmt.Fprintf(out, "Added: %d\n", result.Added)
		if len(result.Catalog) > 0 {
			fmt.Fprintf(out, "Newest: %s\n", result.Catalog[0].Day())
		}
		fmt.Fprintf(out, "API requests: %d\n", application.Stats().Requests)
		return nil
	})
}
