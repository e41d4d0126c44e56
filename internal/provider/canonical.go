// Package provider defines the canonical Pokémon record that upstream
// clients normalize into. The seed runner and repository only ever see these
// types, never raw upstream payloads.
package provider

// Stat is a single base stat entry, e.g. {Name: "attack", BaseStat: 49}.
type Stat struct {
	Name     string `json:"name"`
	BaseStat int    `json:"base_stat"`
}

// PokemonRecord is one entry as received from upstream.
// Stats keeps upstream order. ImageURL is empty when no sprite exists.
type PokemonRecord struct {
	Name     string `json:"name"`
	Height   int    `json:"height"`
	Weight   int    `json:"weight"`
	Stats    []Stat `json:"stats"`
	ImageURL string `json:"image_url,omitempty"`
}
