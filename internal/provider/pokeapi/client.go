// Package pokeapi fetches Pokémon batches from PokeAPI and normalizes them
// into provider.PokemonRecord.
//
// A batch is one listing call followed by one detail call per listed entry.
// Detail calls fan out concurrently and join once; the first failure cancels
// the rest and the whole batch is discarded.
package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/albapepper/pokedex-data/internal/metrics"
	"github.com/albapepper/pokedex-data/internal/provider"
)

// DefaultBaseURL is the public PokeAPI v2 root.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// Client is the HTTP client for the PokeAPI listing and detail endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *metrics.Manager
}

// NewClient creates a PokeAPI client. A zero timeout leaves requests bounded
// only by the caller's context. m may be nil.
func NewClient(baseURL string, timeout time.Duration, m *metrics.Manager, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
		metrics:    m,
	}
}

// namedResource is an entry of the paginated listing.
type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type listResponse struct {
	Count   int             `json:"count"`
	Results []namedResource `json:"results"`
}

type pokemonRaw struct {
	Name   string `json:"name"`
	Height int    `json:"height"`
	Weight int    `json:"weight"`
	Stats  []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
	Sprites struct {
		FrontDefault *string `json:"front_default"`
	} `json:"sprites"`
}

// FetchBatch retrieves the page chosen by sel and the detail record of every
// entry on it. Records come back in listing order.
func (c *Client) FetchBatch(ctx context.Context, sel PageSelector) ([]provider.PokemonRecord, error) {
	limit, offset := sel.Page()

	params := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	var listing listResponse
	if err := c.get(ctx, "listing", c.baseURL+"/pokemon?"+params.Encode(), &listing); err != nil {
		return nil, err
	}

	c.logger.Debug("PokeAPI listing fetched",
		"limit", limit, "offset", offset, "results", len(listing.Results))

	records := make([]provider.PokemonRecord, len(listing.Results))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range listing.Results {
		g.Go(func() error {
			var raw pokemonRaw
			if err := c.get(gctx, "detail", entry.URL, &raw); err != nil {
				return err
			}
			records[i] = normalize(raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func normalize(raw pokemonRaw) provider.PokemonRecord {
	stats := make([]provider.Stat, len(raw.Stats))
	for i, s := range raw.Stats {
		stats[i] = provider.Stat{Name: s.Stat.Name, BaseStat: s.BaseStat}
	}
	rec := provider.PokemonRecord{
		Name:   raw.Name,
		Height: raw.Height,
		Weight: raw.Weight,
		Stats:  stats,
	}
	if raw.Sprites.FrontDefault != nil {
		rec.ImageURL = *raw.Sprites.FrontDefault
	}
	return rec
}

// get performs a GET and decodes a 2xx JSON body into v. Every failure is
// returned as a *FetchError.
func (c *Client) get(ctx context.Context, endpoint, u string, v any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		c.metrics.ObserveUpstream(endpoint, status, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &FetchError{URL: u, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{URL: u, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{URL: u, StatusCode: status, Err: fmt.Errorf("read response body: %w", err)}
	}

	if status < 200 || status > 299 {
		return &FetchError{URL: u, StatusCode: status, Err: fmt.Errorf("unexpected response: %s", truncate(body, 200))}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &FetchError{URL: u, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
