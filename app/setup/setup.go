// Package setup assembles the synchronization stack from a configuration.
// The server and the command line tool share it.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/video-comb/app/cfg"
	"github.com/lysyi3m/video-comb/app/content"
	"github.com/lysyi3m/video-comb/app/database"
	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/ingest"
	"github.com/lysyi3m/video-comb/app/media"
	"github.com/lysyi3m/video-comb/app/progress"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/provider/alloha"
	"github.com/lysyi3m/video-comb/app/provider/collaps"
	"github.com/lysyi3m/video-comb/app/provider/hdvb"
	"github.com/lysyi3m/video-comb/app/provider/kodik"
	"github.com/lysyi3m/video-comb/app/provider/rutor"
	"github.com/lysyi3m/video-comb/app/provider/videocdn"
	"github.com/lysyi3m/video-comb/app/tasks"
	"github.com/lysyi3m/video-comb/app/transfer"
)

// App holds the long lived components. Store is nil until OpenStore.
type App struct {
	Config   *cfg.Cfg
	Client   *fetch.HTTPClient
	Registry *provider.Registry
	Catalog  *feed.Catalog
	Mapping  content.Mapping
	Transfer *transfer.Transfer
	Enricher *media.Enricher
	Store    content.Store

	closers []func() error
}

// Build wires providers, the feed catalog, the post mapping and the
// working directories. It opens no database.
func Build(ctx context.Context, c *cfg.Cfg) (*App, error) {
	app := &App{Config: c}

	client, err := fetch.New(fetch.Config{
		UserAgent:         c.UserAgent,
		ProxyURL:          c.ProxyURL,
		Timeout:           c.HTTPTimeout,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	app.Client = client

	var cache provider.AccessCache = provider.NewMemoryAccessCache()
	if c.RedisAddr != "" {
		redisCache, err := provider.NewRedisAccessCache(ctx, c.RedisAddr, provider.DefaultAccessTTL)
		if err != nil {
			slog.Warn("Redis unavailable, using in-process access cache", "addr", c.RedisAddr, "error", err)
		} else {
			cache = redisCache
			app.closers = append(app.closers, redisCache.Close)
		}
	}

	providers := []provider.Provider{
		kodik.New(c.Providers[kodik.Origin], client, cache),
		videocdn.New(c.Providers[videocdn.Origin], client, cache),
		collaps.New(c.Providers[collaps.Origin], client, cache),
		alloha.New(c.Providers[alloha.Origin], client, cache),
		hdvb.New(c.Providers[hdvb.Origin], client, cache),
		rutor.New(c.Providers[rutor.Origin], client, cache),
	}
	app.Registry, err = provider.NewRegistry(providers...)
	if err != nil {
		return nil, err
	}

	var builtin []feed.Feed
	for _, feeds := range [][]feed.Feed{
		kodik.Feeds(), videocdn.Feeds(), collaps.Feeds(),
		alloha.Feeds(), hdvb.Feeds(), rutor.Feeds(),
	} {
		builtin = append(builtin, feeds...)
	}
	app.Catalog, err = feed.LoadCatalog(c.CatalogFile, builtin)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed catalog: %w", err)
	}

	app.Mapping, err = content.LoadMapping(c.MappingFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping: %w", err)
	}

	app.Transfer, err = transfer.New(c.WorkDir, app.Registry)
	if err != nil {
		return nil, err
	}

	opts := media.Options{Images: c.DownloadImages, Torrents: c.DownloadTorrents}
	if opts.Enabled() {
		downloader, err := media.NewDownloader(client, c.MediaDir)
		if err != nil {
			return nil, err
		}
		app.Enricher = media.NewEnricher(downloader, opts)
	}

	slog.Info("Components initialized",
		"providers", len(providers),
		"feeds", app.Catalog.Len(),
		"bindings", len(app.Mapping.Bindings))

	return app, nil
}

// OpenStore opens the SQLite database, applies migrations and registers
// the extra fields the mapping writes.
func (a *App) OpenStore(ctx context.Context) error {
	db, err := database.Open(a.Config.DBPath)
	if err != nil {
		return err
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return err
	}
	slog.Info("Database ready", "path", a.Config.DBPath, "version", version, "dirty", dirty)

	store := database.NewStore(db)
	if err := store.SaveExtraFields(ctx, a.Mapping.Schema()); err != nil {
		db.Close()
		return fmt.Errorf("failed to register extra fields: %w", err)
	}

	a.Store = store
	a.closers = append(a.closers, db.Close)
	return nil
}

// NewOrchestrator builds an orchestrator over store reporting to sink.
func (a *App) NewOrchestrator(store content.Store, sink progress.Sink) *ingest.Orchestrator {
	return ingest.New(ingest.Config{
		Catalog:   a.Catalog,
		Providers: a.Registry,
		Transfer:  a.Transfer,
		Store:     store,
		Mapping:   a.Mapping,
		Progress:  progress.New(sink),
		Enricher:  a.Enricher,
	})
}

// Runners returns the factory the scheduler uses for every attempt.
// Events also go to the process log.
func (a *App) Runners() tasks.RunnerFactory {
	return func(sink progress.Sink) tasks.Runner {
		return a.NewOrchestrator(a.Store, progress.Multi(sink, progress.LogSink(nil)))
	}
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
