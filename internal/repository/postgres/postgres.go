package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExecutor abstracts over pgxpool.Pool and pgx.Tx so repositories can
// run inside or outside a transaction.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgPool extends pgExecutor with transaction support for repositories that
// need multi-statement atomicity.
type pgPool interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store wraps pgx pool for repositories.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a new Store instance.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases resources associated with the store.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
