// Package strength derives the strength index stored with every Pokémon.
package strength

import "github.com/albapepper/pokedex-data/internal/provider"

// Stat names that contribute to the index.
const (
	StatHP      = "hp"
	StatAttack  = "attack"
	StatDefense = "defense"
)

// Index returns attack + defense + hp. A missing stat counts as 0; when a
// name appears more than once the first entry wins.
func Index(stats []provider.Stat) int {
	return baseStat(stats, StatAttack) + baseStat(stats, StatDefense) + baseStat(stats, StatHP)
}

func baseStat(stats []provider.Stat, name string) int {
	for _, s := range stats {
		if s.Name == name {
			return s.BaseStat
		}
	}
	return 0
}
