// Package seed runs the refresh pipeline: fetch a page from upstream, then
// store it in one transaction.
package seed

import (
	"fmt"
	"time"
)

// SeedResult tracks counts from a refresh.
type SeedResult struct {
	Mode     string
	Limit    int
	Offset   int
	Fetched  int
	Inserted int
	Duration time.Duration
}

// Skipped is the number of fetched records whose name was already stored.
func (r *SeedResult) Skipped() int {
	return r.Fetched - r.Inserted
}

// Summary returns a human-readable summary of the refresh.
func (r *SeedResult) Summary() string {
	return fmt.Sprintf(
		"mode=%s limit=%d offset=%d fetched=%d inserted=%d skipped=%d dur=%s",
		r.Mode, r.Limit, r.Offset,
		r.Fetched, r.Inserted, r.Skipped(),
		r.Duration.Round(time.Millisecond),
	)
}
