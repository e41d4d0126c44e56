// Package handler provides HTTP handlers for all API endpoints.
// Listings are serialized once and served from the ETag cache until the next
// refresh; every failure collapses to a generic 500 after being logged.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/albapepper/pokedex-data/internal/api/respond"
	"github.com/albapepper/pokedex-data/internal/cache"
	"github.com/albapepper/pokedex-data/internal/config"
	"github.com/albapepper/pokedex-data/internal/metrics"
	"github.com/albapepper/pokedex-data/internal/pokemon"
	"github.com/albapepper/pokedex-data/internal/provider/pokeapi"
	"github.com/albapepper/pokedex-data/internal/seed"
)

// Store reads stored Pokémon. Implemented by *pokemon.Repository.
type Store interface {
	QueryAll(ctx context.Context) ([]pokemon.Pokemon, error)
	Count(ctx context.Context) (int, error)
	Version(ctx context.Context) (string, error)
}

// Refresher runs one fetch-and-insert pass. Implemented by *seed.Seeder.
type Refresher interface {
	Refresh(ctx context.Context, mode string) (seed.SeedResult, error)
}

// Pinger checks database connectivity. Implemented by *db.Pool.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators a Handler needs. Metrics and Logger may be nil.
type Deps struct {
	Store   Store
	Seeder  Refresher
	DB      Pinger
	Cache   *cache.Cache
	Config  *config.Config
	Metrics *metrics.Manager
	Logger  *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store   Store
	seeder  Refresher
	db      Pinger
	cache   *cache.Cache
	cfg     *config.Config
	metrics *metrics.Manager
	logger  *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := d.Cache
	if c == nil {
		c = cache.New(false)
	}
	return &Handler{
		store:   d.Store,
		seeder:  d.Seeder,
		db:      d.DB,
		cache:   c,
		cfg:     d.Config,
		metrics: d.Metrics,
		logger:  logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the configured refresh mode.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":         "Pokedex Data API",
		"version":      "1.0.0",
		"status":       "running",
		"docs":         "/docs",
		"refresh_mode": h.cfg.RefreshMode,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity and reports the row count.
// @Summary Database health check
// @Description Verifies Postgres connectivity and returns the number of stored Pokémon.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	unhealthy := func(err error) {
		h.logger.Warn("Database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}

	if err := h.db.HealthCheck(r.Context()); err != nil {
		unhealthy(err)
		return
	}
	n, err := h.store.Count(r.Context())
	if err != nil {
		unhealthy(err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"database":       "connected",
		"stored_pokemon": n,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// internalError logs err with its kind and request id, then writes the
// generic 500 body.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("Request failed",
		"op", op,
		"kind", errorKind(err),
		"request_id", middleware.GetReqID(r.Context()),
		"error", err)
	respond.WriteInternalError(w)
}

func errorKind(err error) string {
	var (
		fe *pokeapi.FetchError
		ie *pokemon.InsertError
		qe *pokemon.QueryError
	)
	switch {
	case errors.As(err, &fe):
		return "fetch"
	case errors.As(err, &ie):
		return "insert"
	case errors.As(err, &qe):
		return "query"
	default:
		return "internal"
	}
}
