// Package app assembles the service graph shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/timmy/amtracker/internal/config"
	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
	"github.com/timmy/amtracker/internal/repository"
	"github.com/timmy/amtracker/internal/service"
	"github.com/timmy/amtracker/internal/source"
	"github.com/timmy/amtracker/internal/source/anilist"
	"github.com/timmy/amtracker/internal/source/seed"
	"github.com/timmy/amtracker/internal/storage"
)

// Options changes how the graph is assembled.
type Options struct {
	// Ephemeral keeps the catalog state in memory; no database is opened.
	Ephemeral bool
	// Source replaces the AniList client, mainly for tests.
	Source source.MediaSource
}

// App holds the assembled services.
type App struct {
	Config    *config.Config
	Catalog   *service.CatalogService
	Sync      *service.SyncService
	Snapshots *service.SnapshotService
	Runs      *repository.SyncRunRepository
	Objects   storage.ObjectStorage

	closers []func() error
}

// New builds every service from cfg. Close releases the database handle.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{Config: cfg}

	var store repository.StateStore
	var runs service.RunRecorder
	if opts.Ephemeral {
		logger.CtxInfo(ctx, "Using in-memory catalog state")
		store = repository.NewMemoryStateStore()
	} else {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		store = repository.NewGormStateStore(db)
		a.Runs = repository.NewSyncRunRepository(db)
		runs = a.Runs
	}

	defaultMode, err := domain.ParseSortMode(cfg.Sync.DefaultMode)
	if err != nil {
		return nil, err
	}
	state := repository.NewCatalogStateRepository(store, defaultMode)

	src := opts.Source
	if src == nil {
		src = anilist.NewClient(anilist.Config{
			Endpoint:  cfg.AniList.Endpoint,
			Timeout:   cfg.AniList.Timeout,
			UserAgent: cfg.AniList.UserAgent,
		})
	}

	seedAdapter := seed.NewAdapter(cfg.Seed.Path)
	if _, err := seedAdapter.Items(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load seed catalog from %s: %w", seedAdapter.GetSourceID(), err)
	}

	a.Sync = service.NewSyncService(src, state, runs, service.SyncConfig{
		PagesPerKind: cfg.Sync.PagesPerKind,
		PageSize:     cfg.Sync.PageSize,
	})
	a.Catalog = service.NewCatalogService(seedAdapter, state, src, service.AiringConfig{
		Lookback: cfg.Airing.Lookback,
		Horizon:  cfg.Airing.Horizon,
		PageSize: cfg.Airing.PageSize,
		MaxPages: cfg.Airing.MaxPages,
	}, cfg.Sync.PageSize)

	a.Objects, err = storage.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Snapshots = service.NewSnapshotService(a.Objects, state, a.Sync, cfg.Storage.Prefix)

	return a, nil
}

// EnsureBucket creates the snapshot bucket when the storage backend has one.
func (a *App) EnsureBucket(ctx context.Context) error {
	if b, ok := a.Objects.(interface{ EnsureBucket(context.Context) error }); ok {
		return b.EnsureBucket(ctx)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
