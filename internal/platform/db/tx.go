package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxConfig controls isolation, lock waiting and retry for a transaction.
type TxConfig struct {
	IsoLevel    pgx.TxIsoLevel
	LockTimeout time.Duration
	MaxAttempts int
}

// DefaultTx mirrors the repeatable-read transactions used for plain writes.
var DefaultTx = TxConfig{IsoLevel: pgx.RepeatableRead, MaxAttempts: 3}

// StockTx is used wherever product stock is checked and changed. Rows are
// locked with SELECT ... FOR UPDATE, so read committed always sees the latest
// committed stock after the lock is granted.
var StockTx = TxConfig{IsoLevel: pgx.ReadCommitted, LockTimeout: 5 * time.Second, MaxAttempts: 3}

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return WithTxConfig(ctx, pool, DefaultTx, fn)
}

// WithTxConfig runs fn inside a transaction and retries the whole callback on
// serialization failures and deadlocks, up to cfg.MaxAttempts times.
func WithTxConfig(ctx context.Context, pool *pgxpool.Pool, cfg TxConfig, fn func(pgx.Tx) error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = runTx(ctx, pool, cfg, fn)
		if err == nil || !IsRetryable(err) {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if IsRetryable(err) || IsLockTimeout(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func runTx(ctx context.Context, pool *pgxpool.Pool, cfg TxConfig, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: cfg.IsoLevel})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if cfg.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", cfg.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: set lock timeout: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxCommitRollback) {
			return err
		}
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
