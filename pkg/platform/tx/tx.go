// Package tx carries the active unit of work through context so stores can
// join it without the service layer knowing which backend is in use.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Manager runs fn inside one atomic unit of work. fn receives a context that
// stores must use for every read and write belonging to the unit.
//
// RunInSavepoint isolates a best-effort step inside an open unit: if fn fails
// only its own writes are undone and the surrounding unit stays usable.
type Manager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error
}
