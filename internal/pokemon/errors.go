package pokemon

import "fmt"

// InsertError is returned when a batch insert fails and was rolled back.
// Name is the record whose statement failed; empty when the failure came
// from begin or commit.
type InsertError struct {
	Name string
	Err  error
}

func (e *InsertError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("insert pokemon %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("insert pokemon batch: %v", e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// QueryError is returned when reading stored Pokémon fails.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("query pokemon: %v", e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }
