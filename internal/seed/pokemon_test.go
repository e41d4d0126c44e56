package seed

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/pokedex-data/internal/config"
	"github.com/albapepper/pokedex-data/internal/metrics"
	"github.com/albapepper/pokedex-data/internal/provider"
	"github.com/albapepper/pokedex-data/internal/provider/pokeapi"
)

type fakeFetcher struct {
	records []provider.PokemonRecord
	err     error
	pages   []pokeapi.FixedPage
}

func (f *fakeFetcher) FetchBatch(ctx context.Context, sel pokeapi.PageSelector) ([]provider.PokemonRecord, error) {
	limit, offset := sel.Page()
	f.pages = append(f.pages, pokeapi.FixedPage{Limit: limit, Offset: offset})
	return f.records, f.err
}

type fakeStore struct {
	calls    int
	inserted int
	err      error
}

func (s *fakeStore) InsertBatch(ctx context.Context, records []provider.PokemonRecord) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.inserted, nil
}

func testConfig() *config.Config {
	return &config.Config{
		RefreshMode:            config.RefreshModeFixed,
		RefreshFixedLimit:      50,
		RefreshRandomLimit:     3,
		RefreshRandomMaxOffset: 1000,
	}
}

func TestRefreshStoresFetchedBatch(t *testing.T) {
	f := &fakeFetcher{records: []provider.PokemonRecord{{Name: "bulbasaur"}, {Name: "ivysaur"}}}
	s := &fakeStore{inserted: 1}
	seeder := NewSeeder(f, s, testConfig(), metrics.NewManager(), nil)

	result, err := seeder.Refresh(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, s.calls)
	assert.Equal(t, []pokeapi.FixedPage{{Limit: 50, Offset: 0}}, f.pages)
	assert.Equal(t, config.RefreshModeFixed, result.Mode)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped())
	assert.Contains(t, result.Summary(), "fetched=2 inserted=1 skipped=1")
}

func TestRefreshFetchFailureSkipsInsert(t *testing.T) {
	fetchErr := &pokeapi.FetchError{URL: "https://pokeapi.co/api/v2/pokemon/2/", StatusCode: 500, Err: errors.New("boom")}
	f := &fakeFetcher{err: fetchErr}
	s := &fakeStore{}

	_, err := NewSeeder(f, s, testConfig(), nil, nil).Refresh(context.Background(), config.RefreshModeFixed)

	var fe *pokeapi.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, s.calls, "insert is never invoked after a failed fetch")
}

func TestRefreshInsertFailure(t *testing.T) {
	insertErr := errors.New("insert failed")
	f := &fakeFetcher{records: []provider.PokemonRecord{{Name: "eevee"}}}
	s := &fakeStore{err: insertErr}

	result, err := NewSeeder(f, s, testConfig(), nil, nil).Refresh(context.Background(), "")
	assert.ErrorIs(t, err, insertErr)
	assert.Zero(t, result.Inserted)
}

func TestRefreshRandomModeUsesRandomLimit(t *testing.T) {
	f := &fakeFetcher{}
	_, err := NewSeeder(f, &fakeStore{}, testConfig(), nil, nil).Refresh(context.Background(), config.RefreshModeRandom)
	require.NoError(t, err)

	require.Len(t, f.pages, 1)
	assert.Equal(t, 3, f.pages[0].Limit)
	assert.LessOrEqual(t, f.pages[0].Offset, 1000)
}

func TestRefreshPagePinsDrawnOffset(t *testing.T) {
	f := &fakeFetcher{}
	sel := pokeapi.RandomPage{Limit: 3, MaxOffset: 1000, Rand: rand.New(rand.NewPCG(3, 4))}
	_, want := pokeapi.RandomPage{Limit: 3, MaxOffset: 1000, Rand: rand.New(rand.NewPCG(3, 4))}.Page()

	result, err := NewSeeder(f, &fakeStore{}, testConfig(), nil, nil).RefreshPage(context.Background(), config.RefreshModeRandom, sel)
	require.NoError(t, err)
	assert.Equal(t, want, result.Offset)
	assert.Equal(t, want, f.pages[0].Offset)
}

func TestRefreshUnknownMode(t *testing.T) {
	f := &fakeFetcher{}
	_, err := NewSeeder(f, &fakeStore{}, testConfig(), nil, nil).Refresh(context.Background(), "sometimes")
	assert.Error(t, err)
	assert.Empty(t, f.pages)
}
