// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Refresh modes: how a refresh picks the upstream page
// --------------------------------------------------------------------------

const (
	RefreshModeFixed  = "fixed"  // first page, REFRESH_FIXED_LIMIT entries
	RefreshModeRandom = "random" // random offset, REFRESH_RANDOM_LIMIT entries
)

// --------------------------------------------------------------------------
// Table names, must match schema.sql
// --------------------------------------------------------------------------

const (
	PokemonTable = "pokemon"
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting (inbound only)
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Upstream (PokeAPI)
	PokeAPIBaseURL string
	PokeAPITimeout time.Duration

	// Refresh
	RefreshMode            string
	RefreshFixedLimit      int
	RefreshRandomLimit     int
	RefreshRandomMaxOffset int

	// Maintenance tickers (zero disables)
	RefreshInterval time.Duration
	StatsInterval   time.Duration

	// Cache
	CacheEnabled bool

	// Metrics
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   []float64 // latency histogram buckets in seconds; nil = Prometheus defaults
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 5000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		PokeAPIBaseURL: strings.TrimRight(envOr("POKEAPI_BASE_URL", "https://pokeapi.co/api/v2"), "/"),
		PokeAPITimeout: time.Duration(envInt("POKEAPI_TIMEOUT_SECONDS", 30)) * time.Second,

		RefreshMode:            strings.ToLower(envOr("REFRESH_MODE", RefreshModeFixed)),
		RefreshFixedLimit:      envInt("REFRESH_FIXED_LIMIT", 50),
		RefreshRandomLimit:     envInt("REFRESH_RANDOM_LIMIT", 3),
		RefreshRandomMaxOffset: envInt("REFRESH_RANDOM_MAX_OFFSET", 1000),

		RefreshInterval: time.Duration(envInt("REFRESH_INTERVAL_MINUTES", 0)) * time.Minute,
		StatsInterval:   time.Duration(envInt("STATS_INTERVAL_SECONDS", 60)) * time.Second,

		CacheEnabled:     envBool("CACHE_ENABLED", true),
		MetricsEnabled:   envBool("METRICS_ENABLED", true),
		MetricsNamespace: envOr("METRICS_NAMESPACE", "pokedex"),
		MetricsBuckets:   envFloatList("METRICS_HISTOGRAM_BUCKETS", nil),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ValidRefreshMode reports whether mode names a known page-selection strategy.
func ValidRefreshMode(mode string) bool {
	return mode == RefreshModeFixed || mode == RefreshModeRandom
}

func (c *Config) validate() error {
	if !ValidRefreshMode(c.RefreshMode) {
		return fmt.Errorf("REFRESH_MODE must be %q or %q, got %q", RefreshModeFixed, RefreshModeRandom, c.RefreshMode)
	}
	if c.RefreshFixedLimit < 1 || c.RefreshRandomLimit < 1 {
		return fmt.Errorf("refresh limits must be positive")
	}
	if c.RefreshRandomMaxOffset < 0 {
		return fmt.Errorf("REFRESH_RANDOM_MAX_OFFSET must not be negative")
	}
	if !slices.IsSorted(c.MetricsBuckets) {
		return fmt.Errorf("METRICS_HISTOGRAM_BUCKETS must be in increasing order")
	}
	if c.DBPoolMinConns > c.DBPoolMaxConns {
		return fmt.Errorf("DB_POOL_MIN_CONNS (%d) exceeds DB_POOL_MAX_CONNS (%d)", c.DBPoolMinConns, c.DBPoolMaxConns)
	}
	return nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envFloatList parses a comma-separated list of numbers. Any unparsable
// entry discards the whole value in favor of fallback.
func envFloatList(key string, fallback []float64) []float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var result []float64
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return fallback
		}
		result = append(result, f)
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
