package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/pokedex-data/internal/config"
	"github.com/albapepper/pokedex-data/internal/metrics"
	"github.com/albapepper/pokedex-data/internal/provider"
	"github.com/albapepper/pokedex-data/internal/provider/pokeapi"
)

// Fetcher retrieves one upstream batch. Implemented by *pokeapi.Client.
type Fetcher interface {
	FetchBatch(ctx context.Context, sel pokeapi.PageSelector) ([]provider.PokemonRecord, error)
}

// Store persists a batch atomically. Implemented by *pokemon.Repository.
type Store interface {
	InsertBatch(ctx context.Context, records []provider.PokemonRecord) (int, error)
}

// Seeder wires a Fetcher to a Store.
type Seeder struct {
	fetcher Fetcher
	store   Store
	cfg     *config.Config
	metrics *metrics.Manager
	logger  *slog.Logger
}

// NewSeeder creates a Seeder. m may be nil.
func NewSeeder(f Fetcher, s Store, cfg *config.Config, m *metrics.Manager, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{fetcher: f, store: s, cfg: cfg, metrics: m, logger: logger}
}

// PageFor returns the page selector for a refresh mode. An empty mode uses
// the configured default.
func PageFor(cfg *config.Config, mode string) (pokeapi.PageSelector, string, error) {
	if mode == "" {
		mode = cfg.RefreshMode
	}
	switch mode {
	case config.RefreshModeFixed:
		return pokeapi.FixedPage{Limit: cfg.RefreshFixedLimit}, mode, nil
	case config.RefreshModeRandom:
		return pokeapi.RandomPage{Limit: cfg.RefreshRandomLimit, MaxOffset: cfg.RefreshRandomMaxOffset}, mode, nil
	default:
		return nil, "", fmt.Errorf("unknown refresh mode %q", mode)
	}
}

// Refresh fetches one page in the given mode and inserts it. If the fetch
// fails nothing is inserted.
func (s *Seeder) Refresh(ctx context.Context, mode string) (SeedResult, error) {
	sel, mode, err := PageFor(s.cfg, mode)
	if err != nil {
		return SeedResult{}, err
	}
	return s.RefreshPage(ctx, mode, sel)
}

// RefreshPage is Refresh with an explicit selector.
func (s *Seeder) RefreshPage(ctx context.Context, mode string, sel pokeapi.PageSelector) (SeedResult, error) {
	start := time.Now()
	limit, offset := sel.Page()
	result := SeedResult{Mode: mode, Limit: limit, Offset: offset}
	// Pin the drawn page so a random selector is not re-rolled by the fetcher.
	page := pokeapi.FixedPage{Limit: limit, Offset: offset}

	s.logger.Info("Refreshing pokemon", "mode", mode, "limit", limit, "offset", offset)

	records, err := s.fetcher.FetchBatch(ctx, page)
	if err != nil {
		result.Duration = time.Since(start)
		s.metrics.ObserveRefresh(metrics.ResultFetchError, 0, 0, result.Duration)
		return result, fmt.Errorf("fetch pokemon: %w", err)
	}
	result.Fetched = len(records)

	inserted, err := s.store.InsertBatch(ctx, records)
	if err != nil {
		result.Duration = time.Since(start)
		s.metrics.ObserveRefresh(metrics.ResultInsertError, result.Fetched, 0, result.Duration)
		return result, fmt.Errorf("store pokemon: %w", err)
	}
	result.Inserted = inserted
	result.Duration = time.Since(start)
	s.metrics.ObserveRefresh(metrics.ResultOK, result.Fetched, result.Inserted, result.Duration)

	s.logger.Info("Refresh complete", "summary", result.Summary())
	return result, nil
}
