// Package postgres stores tenant data in PostgreSQL. Units of work run at
// REPEATABLE READ and lock touched products in ascending id order; conflicts
// restart the whole unit of work.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epsum/epsumstock/internal/platform/db"
	"github.com/epsum/epsumstock/internal/tenant"
)

const defaultMaxAttempts = 5

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Options tunes the store.
type Options struct {
	// MaxAttempts bounds how often a conflicting unit of work is restarted.
	MaxAttempts int
}

// Store implements tenant.Store on a pgx pool.
type Store struct {
	reader
	pool        *pgxpool.Pool
	maxAttempts int
}

var _ tenant.Store = (*Store)(nil)

// NewStore wraps pool. Call Migrate first on a fresh database.
func NewStore(pool *pgxpool.Pool, opts Options) *Store {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &Store{reader: reader{q: pool}, pool: pool, maxAttempts: attempts}
}

// WithTx runs fn in a REPEATABLE READ transaction, restarting it on
// serialization failures and deadlocks.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, tenant.Tx) error) error {
	return db.WithRetryTx(ctx, s.pool, s.maxAttempts, func(t pgx.Tx) error {
		return fn(ctx, &tx{reader: reader{q: t}})
	})
}
