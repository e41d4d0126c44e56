package pokeapi

import "math/rand/v2"

// PageSelector chooses which listing page a batch covers.
type PageSelector interface {
	Page() (limit, offset int)
}

// FixedPage always requests the same page.
type FixedPage struct {
	Limit  int
	Offset int
}

func (p FixedPage) Page() (int, int) { return p.Limit, p.Offset }

// RandomPage requests Limit entries starting at an offset drawn uniformly
// from [0, MaxOffset]. Rand may be nil to use the global source.
type RandomPage struct {
	Limit     int
	MaxOffset int
	Rand      *rand.Rand
}

func (p RandomPage) Page() (int, int) {
	if p.MaxOffset <= 0 {
		return p.Limit, 0
	}
	if p.Rand != nil {
		return p.Limit, p.Rand.IntN(p.MaxOffset + 1)
	}
	return p.Limit, rand.IntN(p.MaxOffset + 1)
}
