// Command api is the Pokedex Data API server.
//
// Usage:
//
//	pokedex-api
//	API_PORT=8080 REFRESH_MODE=random pokedex-api

// @title Pokedex Data API
// @version 1.0.0
// @description Fetches Pokémon from PokeAPI, stores them with a strength index (attack + defense + hp) and serves them strongest first.
// @host localhost:5000
// @BasePath /
// @schemes http https
// @contact.name Pokedex Data
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/pokedex-data/internal/api"
	"github.com/albapepper/pokedex-data/internal/api/handler"
	"github.com/albapepper/pokedex-data/internal/cache"
	"github.com/albapepper/pokedex-data/internal/config"
	"github.com/albapepper/pokedex-data/internal/db"
	"github.com/albapepper/pokedex-data/internal/maintenance"
	"github.com/albapepper/pokedex-data/internal/metrics"
	"github.com/albapepper/pokedex-data/internal/pokemon"
	"github.com/albapepper/pokedex-data/internal/provider/pokeapi"
	"github.com/albapepper/pokedex-data/internal/seed"

	_ "github.com/albapepper/pokedex-data/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	var m *metrics.Manager
	if cfg.MetricsEnabled {
		m = metrics.NewManager(
			metrics.WithNamespace(cfg.MetricsNamespace),
			metrics.WithHistogramBuckets(cfg.MetricsBuckets),
		)
	}

	repo := pokemon.NewRepository(pool.Pool, logger)
	client := pokeapi.NewClient(cfg.PokeAPIBaseURL, cfg.PokeAPITimeout, m, logger)
	seeder := seed.NewSeeder(client, repo, cfg, m, logger)

	// Start maintenance tickers (scheduled refresh, stored gauge sync)
	go maintenance.Start(ctx, maintenance.Deps{
		Seeder:  seeder,
		Store:   repo,
		Cache:   appCache,
		Metrics: m,
	}, maintenance.Config{
		RefreshInterval: cfg.RefreshInterval,
		StatsInterval:   cfg.StatsInterval,
	}, logger)

	// Create router
	router := api.NewRouter(handler.Deps{
		Store:   repo,
		Seeder:  seeder,
		DB:      pool,
		Cache:   appCache,
		Config:  cfg,
		Metrics: m,
		Logger:  logger,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.PokeAPITimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Pokedex Data API",
			"addr", addr,
			"environment", cfg.Environment,
			"refresh_mode", cfg.RefreshMode,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

// newLogger logs text in development and JSON in production.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Debug {
		opts.Level = slog.LevelDebug
	}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
