package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	householdcontext "fridge/frontend/shared/context"
)

var (
	errWriteNotReady = errors.New("write db is not initialized")
	errReadNotReady  = errors.New("read db is not initialized")
)

// WithWriteTx runs fn in an immediate write transaction on the single writer.
// A failing fn rolls the transaction back and is logged against the household
// in ctx.
func (db *DB) WithWriteTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	if db == nil || db.W == nil {
		return errWriteNotReady
	}
	return runTx(ctx, db.W, "write", &sql.TxOptions{}, fn)
}

// WithReadTx runs fn in a read-only transaction on the reader pool.
func (db *DB) WithReadTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	if db == nil || db.R == nil {
		return errReadNotReady
	}
	return runTx(ctx, db.R, "read", &sql.TxOptions{ReadOnly: true}, fn)
}

func runTx(ctx context.Context, conn *bun.DB, mode string, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	started := time.Now()
	err := conn.RunInTx(ctx, opts, fn)
	if err != nil {
		household := "system"
		if h, ok := householdcontext.GetHouseholdFromContext(ctx); ok && h.ID != "" {
			household = h.ID
		}
		slog.Warn("sqlite transaction rolled back",
			slog.String("mode", mode),
			slog.String("household_id", household),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("err", err),
		)
	}
	return err
}
