// Package tx carries a SQL transaction through context so stores taking part
// in one unit of work share it without changing their signatures.
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

// Execer is the subset of *sql.DB and *sql.Tx the stores need.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Pick returns the context's transaction when one is open, db otherwise.
func Pick(ctx context.Context, db *sql.DB) Execer {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

type hooksKey struct{}

type hooks struct {
	fns []func()
}

// WithHooks opens an after-commit hook list on ctx. Runners call it for the
// outermost unit of work and invoke the returned func once committed.
func WithHooks(ctx context.Context) (context.Context, func()) {
	h := &hooks{}
	return context.WithValue(ctx, hooksKey{}, h), func() {
		for _, fn := range h.fns {
			fn()
		}
	}
}

// AfterCommit defers fn until the enclosing unit of work commits. Outside a
// unit of work fn runs immediately. A rolled-back unit of work drops it.
func AfterCommit(ctx context.Context, fn func()) {
	if h, ok := ctx.Value(hooksKey{}).(*hooks); ok {
		h.fns = append(h.fns, fn)
		return
	}
	fn()
}
