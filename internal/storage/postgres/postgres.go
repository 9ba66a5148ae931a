// Package postgres implements the domain repositories on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/db"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

// queryTimeout bounds every single-statement repository operation.
const queryTimeout = 5 * time.Second

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

const (
	txAttempts = 3
	txBackoff  = 50 * time.Millisecond
)

// inTx runs fn inside a transaction, retrying serialization failures,
// deadlocks, and lock timeouts up to txAttempts times with backoff. When the
// retry budget is spent (or the deadline expires) it surfaces
// order.ErrStorageUnavailable so callers know no partial state was left
// behind and the operation is safe to resubmit.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context, tx pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(txBackoff << attempt):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", order.ErrStorageUnavailable, ctx.Err())
			}
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			return fn(ctx, tx)
		})
		if err == nil || !retryable(err) {
			break
		}
	}

	if err != nil && (retryable(err) || errors.Is(err, context.DeadlineExceeded)) {
		return fmt.Errorf("%w: %v", order.ErrStorageUnavailable, err)
	}
	return err
}

// retryable reports whether the error is a transient concurrency conflict:
// serialization failure, deadlock, or lock-not-available.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}
