package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// Beginner starts a transaction on a pooled connection. *pgxpool.Pool
// satisfies it; the connection goes back to the pool when the transaction
// commits or rolls back.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTx runs fn inside one transaction.
//
// Commit happens only when fn returns nil. If fn returns an error or panics,
// the transaction is rolled back before the error (or panic) reaches the
// caller. The rollback is deferred, so the connection is released on every
// exit path.
//
//	err := db.WithTx(ctx, pool, logger, func(tx pgx.Tx) error {
//	    _, err := tx.Exec(ctx, "pokemon_insert", ...)
//	    return err // non-nil triggers rollback
//	})
func WithTx(ctx context.Context, b Beginner, logger *slog.Logger, fn func(tx pgx.Tx) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		// No-op after a successful commit.
		rbErr := tx.Rollback(context.WithoutCancel(ctx))
		if rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error("Failed to rollback transaction", "error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
