package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flickrinsert/internal/common"
	"github.com/ternarybob/flickrinsert/internal/interfaces"
	"github.com/ternarybob/flickrinsert/internal/services/cache"
	"github.com/ternarybob/flickrinsert/internal/services/documents"
	"github.com/ternarybob/flickrinsert/internal/services/enrich"
	"github.com/ternarybob/flickrinsert/internal/services/flickr"
	"github.com/ternarybob/flickrinsert/internal/services/photos"
	"github.com/ternarybob/flickrinsert/internal/services/scheduler"
	"github.com/ternarybob/flickrinsert/internal/storage"
	"github.com/ternarybob/flickrinsert/internal/templates"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	Storage interfaces.RecordStorage

	// Services
	Resolver     interfaces.MetadataResolver
	Renderer     interfaces.Renderer
	Documents    interfaces.DocumentSource
	CacheService *cache.Service
	Enricher     *enrich.Service
	Scheduler    *scheduler.Service

	now func() time.Time
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		now:    time.Now,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Storage.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("storage_type", cfg.StorageType()).
		Strs("content_dirs", cfg.Content.Dirs).
		Str("output_dir", cfg.Content.OutputDir).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens the cache backend selected by config
func (a *App) initStorage() error {
	recordStorage, err := storage.NewRecordStorage(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.Storage = recordStorage
	return nil
}

// initServices wires the resolver, renderer, document source and enricher
func (a *App) initServices() error {
	policy, err := a.Config.Policy()
	if err != nil {
		return err
	}
	timeout, err := a.Config.RequestTimeout()
	if err != nil {
		return err
	}

	a.Resolver = flickr.NewClient(
		a.Config.Flickr.APIKey,
		a.Config.Flickr.APISecret,
		flickr.WithBaseURL(a.Config.Flickr.BaseURL),
		flickr.WithTimeout(timeout),
		flickr.WithRateLimit(a.Config.Flickr.RateLimit),
		flickr.WithLogger(a.Logger),
	)

	renderer, err := templates.NewRenderer(
		a.Config.Templates.Name,
		a.Config.Templates.Dir,
		a.Config.Templates.IncludeDimensions,
		a.Logger,
	)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}
	a.Renderer = renderer

	a.Documents = documents.NewService(a.Config.Content, a.Logger)
	a.CacheService = cache.NewService(policy, nil, a.Logger)
	a.Enricher = enrich.NewService(
		a.CacheService,
		a.Resolver,
		a.Renderer,
		photos.NewNormalizer(a.Config.Cache.KeyField, a.Config.Flickr.ImageSize),
		a.Logger,
	)
	a.Scheduler = scheduler.NewService(a.Logger)

	return nil
}

// Run performs one enrichment pass. It matches scheduler.Task.
func (a *App) Run(ctx context.Context) error {
	_, err := a.RunPass(ctx)
	return err
}

// RunPass loads the cache, enriches every document, writes the documents and
// saves the cache. An unreadable cache is replaced by an empty one; a failed
// save is returned.
func (a *App) RunPass(ctx context.Context) (enrich.Stats, error) {
	runID := common.NewRunID()
	logger := a.Logger.WithCorrelationId(runID)
	started := a.now()

	logger.Info().Str("run_id", runID).Msg("Starting pass")

	records, err := a.Storage.Load(ctx)
	if err != nil {
		var persistErr *interfaces.PersistenceError
		if !errors.As(err, &persistErr) {
			return enrich.Stats{}, fmt.Errorf("failed to load cache: %w", err)
		}
		logger.Warn().Err(err).Msg("Cache could not be read, starting with an empty cache")
		records = nil
	}
	store := enrich.NewStore(records)

	docs, err := a.Documents.Documents(ctx)
	if err != nil {
		return enrich.Stats{}, fmt.Errorf("failed to collect documents: %w", err)
	}

	stats, err := a.Enricher.EnrichAll(ctx, store, docs, started.Unix())
	if err != nil {
		return stats, fmt.Errorf("pass aborted: %w", err)
	}

	var errs []error
	if err := a.Documents.Write(ctx, docs); err != nil {
		logger.Error().Err(err).Msg("Failed to write documents")
		errs = append(errs, fmt.Errorf("failed to write documents: %w", err))
	}

	if err := a.Storage.Save(ctx, store.Records()); err != nil {
		logger.Error().Err(err).Msg("Failed to save cache")
		errs = append(errs, err)
	}

	logger.Info().
		Int("documents", stats.Documents).
		Int("changed", stats.Changed).
		Int("replaced", stats.Replaced).
		Int("cached_photos", store.Len()).
		Str("duration", time.Since(started).Round(time.Millisecond).String()).
		Msg("Pass complete")

	return stats, errors.Join(errs...)
}

// StartSchedule runs passes on the configured cron schedule until ctx is done
// or Close is called
func (a *App) StartSchedule(ctx context.Context) error {
	if a.Config.Run.Schedule == "" {
		return fmt.Errorf("no schedule configured")
	}
	return a.Scheduler.Start(ctx, a.Config.Run.Schedule, a.Run)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
