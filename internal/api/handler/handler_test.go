package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/pokedex-data/internal/cache"
	"github.com/albapepper/pokedex-data/internal/config"
	"github.com/albapepper/pokedex-data/internal/pokemon"
	"github.com/albapepper/pokedex-data/internal/provider/pokeapi"
	"github.com/albapepper/pokedex-data/internal/seed"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    []pokemon.Pokemon
	err     error
	queries int
	// afterSnapshot runs once, after QueryAll has copied the rows.
	afterSnapshot func()
}

func (s *fakeStore) QueryAll(ctx context.Context) ([]pokemon.Pokemon, error) {
	s.mu.Lock()
	s.queries++
	rows := slices.Clone(s.rows)
	hook := s.afterSnapshot
	s.afterSnapshot = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return rows, s.err
}

func (s *fakeStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), s.err
}

func (s *fakeStore) Version(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%d", len(s.rows)), s.err
}

func (s *fakeStore) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

type fakeSeeder struct {
	store *fakeStore
	add   []pokemon.Pokemon
	err   error
	modes []string
}

func (f *fakeSeeder) Refresh(ctx context.Context, mode string) (seed.SeedResult, error) {
	f.modes = append(f.modes, mode)
	if f.err != nil {
		return seed.SeedResult{}, f.err
	}
	f.store.mu.Lock()
	f.store.rows = append(slices.Clone(f.add), f.store.rows...)
	f.store.mu.Unlock()
	return seed.SeedResult{Fetched: len(f.add), Inserted: len(f.add)}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) HealthCheck(ctx context.Context) error { return p.err }

func newTestHandler(t *testing.T, store *fakeStore, seeder *fakeSeeder) *Handler {
	t.Helper()
	c := cache.New(true)
	t.Cleanup(c.Close)
	return New(Deps{
		Store:  store,
		Seeder: seeder,
		DB:     fakePinger{},
		Cache:  c,
		Config: &config.Config{RefreshMode: config.RefreshModeFixed},
	})
}

func img(s string) *string { return &s }

func TestListPokemonEmpty(t *testing.T) {
	h := newTestHandler(t, &fakeStore{}, nil)

	rec := httptest.NewRecorder()
	h.ListPokemon(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListPokemonShape(t *testing.T) {
	store := &fakeStore{rows: []pokemon.Pokemon{
		{ID: 2, Name: "mewtwo", Height: 20, Weight: 1220, StrengthIndex: 306, ImageURL: img("https://img.example/150.png")},
		{ID: 1, Name: "missingno", Height: 0, Weight: 0, StrengthIndex: 0},
	}}
	h := newTestHandler(t, store, nil)

	rec := httptest.NewRecorder()
	h.ListPokemon(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"id":2,"name":"mewtwo","height":20,"weight":1220,"strength_index":306,"image_url":"https://img.example/150.png"},
		{"id":1,"name":"missingno","height":0,"weight":0,"strength_index":0,"image_url":null}
	]`, rec.Body.String())
}

func TestListPokemonCachesAndRevalidates(t *testing.T) {
	store := &fakeStore{rows: []pokemon.Pokemon{{ID: 1, Name: "mew", StrengthIndex: 300}}}
	h := newTestHandler(t, store, nil)

	first := httptest.NewRecorder()
	h.ListPokemon(first, httptest.NewRequest(http.MethodGet, "/", nil))
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := httptest.NewRecorder()
	h.ListPokemon(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	third := httptest.NewRecorder()
	h.ListPokemon(third, req)
	assert.Equal(t, http.StatusNotModified, third.Code)

	assert.Equal(t, 1, store.queryCount())
}

func TestListPokemonQueryFailure(t *testing.T) {
	store := &fakeStore{err: &pokemon.QueryError{Err: errors.New("connection refused")}}
	h := newTestHandler(t, store, nil)

	rec := httptest.NewRecorder()
	h.ListPokemon(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestRefreshPokemonReturnsListing(t *testing.T) {
	store := &fakeStore{rows: []pokemon.Pokemon{{ID: 1, Name: "pidgey", StrengthIndex: 120}}}
	seeder := &fakeSeeder{store: store, add: []pokemon.Pokemon{{ID: 2, Name: "onix", StrengthIndex: 200}}}
	h := newTestHandler(t, store, seeder)

	// Prime the cache with the pre-refresh listing.
	h.ListPokemon(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	h.RefreshPokemon(rec, httptest.NewRequest(http.MethodPost, "/?mode=random", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"random"}, seeder.modes)
	assert.Equal(t, "1", rec.Header().Get("X-Refresh-Inserted"))
	assert.JSONEq(t, `[
		{"id":2,"name":"onix","height":0,"weight":0,"strength_index":200,"image_url":null},
		{"id":1,"name":"pidgey","height":0,"weight":0,"strength_index":120,"image_url":null}
	]`, rec.Body.String())

	after := httptest.NewRecorder()
	h.ListPokemon(after, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, rec.Body.String(), after.Body.String(), "refresh replaces the cached listing")
}

func TestListPokemonDoesNotRecacheAfterConcurrentRefresh(t *testing.T) {
	store := &fakeStore{rows: []pokemon.Pokemon{{ID: 1, Name: "pidgey", StrengthIndex: 120}}}
	seeder := &fakeSeeder{store: store, add: []pokemon.Pokemon{{ID: 2, Name: "onix", StrengthIndex: 200}}}
	h := newTestHandler(t, store, seeder)

	// Hold the first GET after it has read the pre-refresh rows.
	snapshotted := make(chan struct{})
	release := make(chan struct{})
	store.afterSnapshot = func() {
		close(snapshotted)
		<-release
	}

	slow := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ListPokemon(slow, httptest.NewRequest(http.MethodGet, "/", nil))
	}()
	<-snapshotted

	refresh := httptest.NewRecorder()
	h.RefreshPokemon(refresh, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, refresh.Code)
	require.Contains(t, refresh.Body.String(), "onix")

	close(release)
	<-done
	assert.NotContains(t, slow.Body.String(), "onix", "the held GET answers from its own snapshot")

	after := httptest.NewRecorder()
	h.ListPokemon(after, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, refresh.Body.String(), after.Body.String())
	assert.Contains(t, after.Body.String(), "onix")
}

func TestListPokemonSeesRowsWrittenElsewhere(t *testing.T) {
	store := &fakeStore{rows: []pokemon.Pokemon{{ID: 1, Name: "pidgey", StrengthIndex: 120}}}
	h := newTestHandler(t, store, nil)

	first := httptest.NewRecorder()
	h.ListPokemon(first, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotContains(t, first.Body.String(), "onix")

	// Another process (the ingest CLI) inserts without touching this cache.
	store.mu.Lock()
	store.rows = append([]pokemon.Pokemon{{ID: 2, Name: "onix", StrengthIndex: 200}}, store.rows...)
	store.mu.Unlock()

	second := httptest.NewRecorder()
	h.ListPokemon(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "MISS", second.Header().Get("X-Cache"))
	assert.Contains(t, second.Body.String(), "onix")
	assert.NotEqual(t, first.Header().Get("ETag"), second.Header().Get("ETag"))
}

func TestListPokemonCacheDisabled(t *testing.T) {
	store := &fakeStore{rows: []pokemon.Pokemon{{ID: 1, Name: "mew", StrengthIndex: 300}}}
	h := New(Deps{
		Store:  store,
		DB:     fakePinger{},
		Cache:  cache.New(false),
		Config: &config.Config{RefreshMode: config.RefreshModeFixed},
	})

	for range 3 {
		rec := httptest.NewRecorder()
		h.ListPokemon(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, store.queryCount())
}

func TestRefreshPokemonFetchFailure(t *testing.T) {
	store := &fakeStore{}
	seeder := &fakeSeeder{store: store, err: &pokeapi.FetchError{URL: "https://pokeapi.co/api/v2/pokemon/4/", StatusCode: 502, Err: errors.New("bad gateway")}}
	h := newTestHandler(t, store, seeder)

	rec := httptest.NewRecorder()
	h.RefreshPokemon(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	assert.Zero(t, store.queryCount())
}

func TestRefreshPokemonInsertFailure(t *testing.T) {
	store := &fakeStore{}
	seeder := &fakeSeeder{store: store, err: &pokemon.InsertError{Name: "glitch", Err: errors.New("check violation")}}
	h := newTestHandler(t, store, seeder)

	rec := httptest.NewRecorder()
	h.RefreshPokemon(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}

func TestRefreshPokemonInvalidMode(t *testing.T) {
	store := &fakeStore{}
	seeder := &fakeSeeder{store: store}
	h := newTestHandler(t, store, seeder)

	rec := httptest.NewRecorder()
	h.RefreshPokemon(rec, httptest.NewRequest(http.MethodPost, "/?mode=sometimes", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, seeder.modes)
}

func TestHealthCheckDB(t *testing.T) {
	store := &fakeStore{rows: []pokemon.Pokemon{{Name: "ditto"}}}
	h := newTestHandler(t, store, nil)

	rec := httptest.NewRecorder()
	h.HealthCheckDB(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stored_pokemon":1`)

	h.db = fakePinger{err: errors.New("down")}
	rec = httptest.NewRecorder()
	h.HealthCheckDB(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "fetch", errorKind(&pokeapi.FetchError{Err: errors.New("x")}))
	assert.Equal(t, "insert", errorKind(&pokemon.InsertError{Err: errors.New("x")}))
	assert.Equal(t, "query", errorKind(&pokemon.QueryError{Err: errors.New("x")}))
	assert.Equal(t, "internal", errorKind(errors.New("x")))
}
