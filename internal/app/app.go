// Package app assembles the dashboard client layer from configuration: the
// API client, the polling store, and the optional snapshot cache and tick
// archive fed from each poll cycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"commodash/internal/config"
	"commodash/internal/poll"
	"commodash/internal/store"
	"commodash/internal/util"
	"commodash/pkg/commodash"
)

// App holds the long-lived components shared by every binary.
type App struct {
	Config *config.Config
	Log    *slog.Logger
	Client *commodash.Client
	Poll   *poll.Store

	// Nil when the corresponding storage path is unset.
	Cache   *store.SQLiteStore
	Archive *store.ParquetStore
}

// New wires an App. The poll store is created but not started; when a cache
// is configured the store is seeded from it.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Log: log}

	a.Client = commodash.NewClient(cfg.API.BaseURL,
		commodash.WithTimeout(cfg.API.Timeout),
		commodash.WithRateLimiter(util.NewRateLimiter(cfg.API.RateLimitPerMin, cfg.API.RateLimitBurst)),
		commodash.WithLogger(log.With("component", "client")),
	)

	if cfg.Storage.CachePath != "" {
		cache, err := store.NewSQLiteStore(cfg.Storage.CachePath)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		a.Cache = cache
	}
	if cfg.Storage.ArchiveDir != "" {
		a.Archive = store.NewParquetStore(cfg.Storage.ArchiveDir)
	}

	opts := []poll.Option{poll.WithLogger(log.With("component", "poll"))}
	if a.Cache != nil || a.Archive != nil {
		opts = append(opts, poll.WithObserver(a.persist))
	}
	a.Poll = poll.New(a.Client, cfg.Poll.Interval, opts...)

	if a.Cache != nil {
		a.seed(ctx)
	}
	return a, nil
}

// seed loads the cached snapshot into the poll store. Cache errors are
// logged and otherwise ignored; the first poll replaces whatever is there.
func (a *App) seed(ctx context.Context) {
	list, at, err := a.Cache.LoadCommodities(ctx)
	if err != nil {
		a.Log.Warn("loading cached commodities", "error", err)
		return
	}
	summary, _, err := a.Cache.LoadSummary(ctx)
	if err != nil {
		a.Log.Warn("loading cached summary", "error", err)
	}
	if list == nil && summary == nil {
		return
	}
	a.Poll.Seed(list, summary)
	a.Log.Info("seeded from cache", "commodities", len(list), "fetched_at", at)
}

// persist runs after each poll cycle whose commodity fetch succeeded.
func (a *App) persist(ctx context.Context, snap poll.Snapshot) {
	at := snap.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	if a.Cache != nil {
		if err := a.Cache.SaveCommodities(ctx, snap.Commodities, at); err != nil {
			a.Log.Warn("caching commodities", "error", err)
		}
		if snap.SummaryErr == nil && snap.Summary != nil {
			if err := a.Cache.SaveSummary(ctx, snap.Summary, at); err != nil {
				a.Log.Warn("caching summary", "error", err)
			}
		}
	}
	if a.Archive != nil {
		if err := a.Archive.WriteTicks(ctx, at, snap.Commodities); err != nil {
			a.Log.Warn("archiving ticks", "error", err)
		}
	}
}

// Close stops polling and releases storage.
func (a *App) Close() error {
	a.Poll.Stop()
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	return errors.Join(errs...)
}
