package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

// TxKey carries the active transaction through a request context so that
// repositories participating in the same unit of work share it.
const TxKey contextKey = "db_tx"

// TxFromContext retrieves the active transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(TxKey).(pgx.Tx)
	return tx
}

// WithTx runs fn inside a single transaction. The transaction is stored in the
// context passed to fn, so every repository call inside fn joins it. fn
// returning an error rolls the whole unit back.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		// Already inside a unit of work; join it.
		return fn(ctx)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, TxKey, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
