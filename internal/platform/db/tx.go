package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool and pgx.Tx.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn in a read-committed transaction.
func WithTx(ctx context.Context, b Beginner, fn func(context.Context, pgx.Tx) error) error {
	return WithTxOptions(ctx, b, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// WithTxOptions runs fn in a transaction and rolls back when fn fails. Begin
// and commit failures are mapped like any other driver error, so a unique
// violation deferred to commit still surfaces as a duplicate.
func WithTxOptions(ctx context.Context, b Beginner, opts pgx.TxOptions, fn func(context.Context, pgx.Tx) error) error {
	tx, err := b.BeginTx(ctx, opts)
	if err != nil {
		return Wrap("platform/db: begin tx", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return Wrap("platform/db: commit tx", err)
	}
	committed = true
	return nil
}
