package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"RecordSync/internal/config"
	"RecordSync/internal/domain"
	"RecordSync/internal/infrastructure/congress"
	"RecordSync/internal/infrastructure/parser"
	"RecordSync/internal/infrastructure/scheduler"
	"RecordSync/internal/infrastructure/storage"
	"RecordSync/internal/infrastructure/telegram"
	"RecordSync/internal/logging"
	"RecordSync/internal/ports"
	"RecordSync/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	api      *congress.API
	pipeline *usecase.Pipeline
}

// New builds the application. It fails when no API key can be found or the
// archive root cannot be created.
func New(cfg config.Config, baseLogger *slog.Logger, opts ...congress.Option) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	keys, source, err := config.LoadAPIKeys(cfg.API)
	if err != nil {
		return nil, err
	}
	baseLogger.Info("api keys loaded", "count", len(keys), "source", string(source))

	client, err := congress.NewClient(cfg.API, keys, baseLogger.With("component", "congress.client"), opts...)
	if err != nil {
		return nil, err
	}
	api := congress.NewAPI(client, cfg.API, baseLogger.With("component", "congress.api"))

	archive := storage.NewFileArchive(cfg.Storage.ArchiveDir)
	created, err := archive.EnsureRoot()
	if err != nil {
		return nil, err
	}
	if created {
		baseLogger.Info("created archive root", "path", archive.Root())
	}

	catalog := usecase.NewCatalogSync(usecase.CatalogDeps{
		Lister: api,
		Store:  storage.NewCatalogFile(cfg.Storage.CatalogPath),
		Epoch:  cfg.Update.Earliest(),
		Logger: baseLogger.With("component", "catalog"),
	})

	updater := usecase.NewUpdater(usecase.UpdaterDeps{
		Articles:      api,
		Content:       api,
		Archive:       archive,
		Extractor:     parser.NewFormattedText(),
		StopThreshold: cfg.Update.StopThreshold,
		Earliest:      cfg.Update.Earliest(),
		Now:           func() time.Time { return time.Now().UTC() },
		Logger:        baseLogger.With("component", "updater"),
	})

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Catalog:  catalog,
		Updater:  updater,
		Notifier: notifier,
		Counter:  api,
		NewRunID: newRunID,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, logger: baseLogger, api: api, pipeline: pipeline}, nil
}

// Run performs one update: catalog sync followed by the download pass.
// Closing stop ends the pass after the current issue.
func (a *Application) Run(ctx context.Context, stop <-chan struct{}) (domain.RunSummary, error) {
	return a.pipeline.Update(ctx, usecase.RunOptions{Stop: stop})
}

// SyncCatalog refreshes the issue catalog without downloading anything.
func (a *Application) SyncCatalog(ctx context.Context) (usecase.SyncResult, error) {
	return a.pipeline.SyncCatalog(ctx)
}

// Watch repeats the update every scheduler interval until stop is closed
// or ctx ends.
func (a *Application) Watch(ctx context.Context, stop <-chan struct{}) error {
	driver := scheduler.NewTickerScheduler(a.cfg.Scheduler.Interval)
	sched := usecase.NewScheduler(driver, a.pipeline, stop, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching for new issues", "interval", driver.Interval().String())

	select {
	case <-stop:
	case <-ctx.Done():
	}

	if err := sched.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// Stats returns the API usage counters.
func (a *Application) Stats() congress.Stats {
	return a.api.Stats()
}

func newRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
