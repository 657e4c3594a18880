package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"RecordSync/internal/domain"
	"RecordSync/internal/logging"
	"RecordSync/internal/ports"
)

// ErrEmptyCatalog means synchronization left no issues to process.
var ErrEmptyCatalog = errors.New("no issues found in catalog")

// PipelineDeps wires the use cases into one update run.
type PipelineDeps struct {
	Catalog  *CatalogSync
	Updater  *Updater
	Notifier ports.Notifier
	Counter  ports.RequestCounter
	NewRunID func() string
	Logger   *slog.Logger
}

// Pipeline runs catalog synchronization followed by an update pass.
type Pipeline struct {
	catalog  *CatalogSync
	updater  *Updater
	notifier ports.Notifier
	counter  ports.RequestCounter
	newRunID func() string
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = func() string { return "" }
	}
	return &Pipeline{
		catalog:  deps.Catalog,
		updater:  deps.Updater,
		notifier: deps.Notifier,
		counter:  deps.Counter,
		newRunID: newRunID,
		logger:   logger,
	}
}

// SyncCatalog only refreshes the catalog.
func (p *Pipeline) SyncCatalog(ctx context.Context) (SyncResult, error) {
	result, err := p.catalog.Synchronize(ctx)
	if err != nil {
		return result, fmt.Errorf("sync catalog: %w", err)
	}
	return result, nil
}

// Update synchronizes the catalog and downloads whatever is missing. An
// empty catalog is fatal and reported as ErrEmptyCatalog.
func (p *Pipeline) Update(ctx context.Context, opts RunOptions) (domain.RunSummary, error) {
	runID := p.newRunID()
	logger := p.logger
	if runID != "" {
		logger = logger.With("run_id", runID)
	}

	sync, err := p.SyncCatalog(ctx)
	if err != nil {
		return domain.RunSummary{RunID: runID, StopReason: domain.StopAborted}, err
	}
	if len(sync.Catalog) == 0 {
		return domain.RunSummary{RunID: runID, StopReason: domain.StopAborted}, ErrEmptyCatalog
	}
	logger.Info("catalog ready", "issues", len(sync.Catalog), "added", sync.Added)

	summary, runErr := p.updater.Run(ctx, sync.Catalog, opts)
	summary.RunID = runID
	summary.CatalogAdded = sync.Added
	if p.counter != nil {
		summary.Requests = p.counter.Requests()
	}

	logger.Info("update finished",
		"examined", summary.IssuesExamined,
		"downloaded", summary.NewDownloads,
		"failed", summary.FailedDownloads,
		"requests", summary.Requests,
		"stop", string(summary.StopReason))
	if p.counter != nil {
		logger.Debug("credential in use", "key_index", p.counter.CurrentKey())
	}

	if p.notifier != nil && runErr == nil {
		if err := p.notifier.PublishSummary(ctx, summary); err != nil {
			logger.Warn("summary notification failed", "err", err)
		}
	}

	if runErr != nil {
		return summary, fmt.Errorf("update pass: %w", runErr)
	}
	return summary, nil
}
