package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/albapepper/pokedex-data/internal/api/respond"
	"github.com/albapepper/pokedex-data/internal/cache"
	"github.com/albapepper/pokedex-data/internal/config"
	"github.com/albapepper/pokedex-data/internal/pokemon"
)

// ListPokemon returns every stored Pokémon, strongest first.
// @Summary List stored Pokémon
// @Description Returns all stored Pokémon ordered by strength index (attack + defense + hp) descending. Supports If-None-Match.
// @Tags pokemon
// @Produce json
// @Success 200 {array} pokemon.Pokemon
// @Success 304 {string} string "Not modified"
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/pokemon/ [get]
func (h *Handler) ListPokemon(w http.ResponseWriter, r *http.Request) {
	ttl := cache.TTLPokemonList

	version, err := h.store.Version(r.Context())
	if err != nil {
		h.internalError(w, r, "list pokemon", err)
		return
	}
	key := cache.PokemonListKey(version)

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	data, etag, err := h.loadList(r.Context(), key)
	if err != nil {
		h.internalError(w, r, "list pokemon", err)
		return
	}
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}

// RefreshPokemon fetches a page from PokeAPI, stores new entries and returns
// the full listing.
// @Summary Refresh from PokeAPI
// @Description Fetches one page of Pokémon from PokeAPI (fixed first page or random offset), stores names not seen before, then returns all stored Pokémon ordered by strength index descending.
// @Tags pokemon
// @Produce json
// @Param mode query string false "Page selection" Enums(fixed, random)
// @Success 200 {array} pokemon.Pokemon
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/pokemon/ [post]
func (h *Handler) RefreshPokemon(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode != "" && !config.ValidRefreshMode(mode) {
		respond.WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("mode must be %q or %q", config.RefreshModeFixed, config.RefreshModeRandom))
		return
	}

	result, err := h.seeder.Refresh(r.Context(), mode)
	if err != nil {
		h.internalError(w, r, "refresh pokemon", err)
		return
	}
	h.cache.Invalidate()

	version, err := h.store.Version(r.Context())
	if err != nil {
		h.internalError(w, r, "list pokemon", err)
		return
	}
	data, etag, err := h.loadList(r.Context(), cache.PokemonListKey(version))
	if err != nil {
		h.internalError(w, r, "list pokemon", err)
		return
	}
	w.Header().Set("X-Refresh-Fetched", strconv.Itoa(result.Fetched))
	w.Header().Set("X-Refresh-Inserted", strconv.Itoa(result.Inserted))
	respond.WriteJSON(w, data, etag, cache.TTLPokemonList, false)
}

// loadList queries the store, serializes the listing and caches it under
// key. A load that overlaps an invalidation is served but not cached.
func (h *Handler) loadList(ctx context.Context, key string) ([]byte, string, error) {
	gen := h.cache.Generation()
	all, err := h.store.QueryAll(ctx)
	if err != nil {
		return nil, "", err
	}
	if all == nil {
		all = []pokemon.Pokemon{}
	}
	data, err := json.Marshal(all)
	if err != nil {
		return nil, "", fmt.Errorf("encode pokemon: %w", err)
	}
	h.metrics.SetStored(len(all))
	etag, _ := h.cache.SetIfCurrent(key, data, cache.TTLPokemonList, gen)
	return data, etag, nil
}
