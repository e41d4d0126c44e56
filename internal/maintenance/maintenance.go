// Package maintenance runs periodic background tasks as Go tickers: a
// scheduled refresh from PokeAPI and a stored-row gauge sync. Both are off
// unless an interval is configured.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/pokedex-data/internal/cache"
	"github.com/albapepper/pokedex-data/internal/metrics"
	"github.com/albapepper/pokedex-data/internal/seed"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	RefreshInterval time.Duration // Scheduled refresh in the configured mode
	StatsInterval   time.Duration // Stored row count → metrics gauge
}

// Refresher runs one fetch-and-insert pass. Implemented by *seed.Seeder.
type Refresher interface {
	Refresh(ctx context.Context, mode string) (seed.SeedResult, error)
}

// Counter counts stored rows. Implemented by *pokemon.Repository.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Deps are the collaborators the tasks use. Cache and Metrics may be nil.
type Deps struct {
	Seeder  Refresher
	Store   Counter
	Cache   *cache.Cache
	Metrics *metrics.Manager
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, deps Deps, cfg Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Maintenance tickers started",
		"refresh", cfg.RefreshInterval,
		"stats", cfg.StatsInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.RefreshInterval > 0 && deps.Seeder != nil {
		t := time.NewTicker(cfg.RefreshInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { scheduledRefresh(ctx, deps, logger) })
	}

	if cfg.StatsInterval > 0 && deps.Store != nil {
		t := time.NewTicker(cfg.StatsInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { syncStored(ctx, deps, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// scheduledRefresh runs one refresh in the default mode and drops the cached
// listing when anything new was stored.
func scheduledRefresh(ctx context.Context, deps Deps, logger *slog.Logger) {
	result, err := deps.Seeder.Refresh(ctx, "")
	if err != nil {
		logger.Warn("Scheduled refresh failed", "error", err)
		return
	}
	if result.Inserted > 0 && deps.Cache != nil {
		deps.Cache.Invalidate()
	}
	logger.Info("Scheduled refresh complete", "summary", result.Summary())
}

// syncStored publishes the stored row count so the gauge stays accurate
// between listings.
func syncStored(ctx context.Context, deps Deps, logger *slog.Logger) {
	n, err := deps.Store.Count(ctx)
	if err != nil {
		logger.Warn("Stats sync: count failed", "error", err)
		return
	}
	deps.Metrics.SetStored(n)
}
