// Package store is the database gateway for the voices and voice_mappings
// tables. It is the only package in the repo that issues SQL.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConn is the subset of pgxpool.Pool / pgx.Tx the store queries through.
// pgxmock pools satisfy it in tests.
type DBConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ctxKey struct{}

var connKey = ctxKey{}

// WithConn returns a context carrying an explicit connection (a transaction,
// or a mock in tests). Store methods use it in preference to the pool.
func WithConn(ctx context.Context, conn DBConn) context.Context {
	return context.WithValue(ctx, connKey, conn)
}

// GetConn returns the connection bound to ctx, or the pool.
func GetConn(ctx context.Context, pool *pgxpool.Pool) DBConn {
	if conn, ok := ctx.Value(connKey).(DBConn); ok && conn != nil {
		return conn
	}
	return pool
}

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) conn(ctx context.Context) DBConn {
	return GetConn(ctx, s.pool)
}

// WithTx runs fn inside a transaction unless ctx already carries one.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(connKey).(DBConn); ok {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return WrapError("begin transaction", err)
	}

	ctx = WithConn(ctx, tx)

	if err := fn(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}
