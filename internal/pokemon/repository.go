// Package pokemon stores strength-indexed Pokémon and lists them strongest
// first.
//
// Rows are insert-only: a name already present is skipped, never updated,
// so the first stored stats for a Pokémon are the ones that persist.
package pokemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/pokedex-data/internal/db"
	"github.com/albapepper/pokedex-data/internal/provider"
	"github.com/albapepper/pokedex-data/internal/strength"
)

// Pokemon is a stored row. ImageURL is nil when upstream had no sprite.
type Pokemon struct {
	ID            int     `json:"id" db:"id"`
	Name          string  `json:"name" db:"name"`
	Height        int     `json:"height" db:"height"`
	Weight        int     `json:"weight" db:"weight"`
	StrengthIndex int     `json:"strength_index" db:"strength_index"`
	ImageURL      *string `json:"image_url" db:"image_url"`
}

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	db.Beginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads and writes the pokemon table.
type Repository struct {
	db     DB
	logger *slog.Logger
}

// NewRepository creates a Repository backed by conn.
func NewRepository(conn DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: conn, logger: logger}
}

// InsertBatch stores records in a single transaction and returns how many
// rows were new. Names already stored are skipped. The first failing insert
// rolls back the whole batch and is returned as an *InsertError.
func (r *Repository) InsertBatch(ctx context.Context, records []provider.PokemonRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	inserted := 0
	err := db.WithTx(ctx, r.db, r.logger, func(tx pgx.Tx) error {
		for _, rec := range records {
			tag, err := tx.Exec(ctx, "pokemon_insert",
				rec.Name, rec.Height, rec.Weight,
				strength.Index(rec.Stats), nilEmpty(rec.ImageURL),
			)
			if err != nil {
				return &InsertError{Name: rec.Name, Err: err}
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		var ie *InsertError
		if errors.As(err, &ie) {
			return 0, err
		}
		return 0, &InsertError{Err: err}
	}
	return inserted, nil
}

// QueryAll returns every stored Pokémon ordered by strength index, highest
// first. Order among equal indexes is whatever Postgres returns.
func (r *Repository) QueryAll(ctx context.Context) ([]Pokemon, error) {
	rows, err := r.db.Query(ctx, "pokemon_list")
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	all, err := pgx.CollectRows(rows, pgx.RowToStructByName[Pokemon])
	if err != nil {
		return nil, &QueryError{Err: fmt.Errorf("scan pokemon: %w", err)}
	}
	return all, nil
}

// Count returns the number of stored rows.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "pokemon_count").Scan(&n); err != nil {
		return 0, &QueryError{Err: err}
	}
	return n, nil
}

// Version identifies the committed contents of the table. It changes
// whenever a row is inserted by any process, so it can key cached listings.
func (r *Repository) Version(ctx context.Context) (string, error) {
	var count, maxID int
	if err := r.db.QueryRow(ctx, "pokemon_version").Scan(&count, &maxID); err != nil {
		return "", &QueryError{Err: err}
	}
	return fmt.Sprintf("%d-%d", count, maxID), nil
}

// nilEmpty returns nil for empty strings (maps to SQL NULL).
func nilEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
