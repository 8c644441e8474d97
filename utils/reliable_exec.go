package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

const (
	reliableExecMaxElapsed = time.Second * 30
	pgSerializationFailure = "40001"
)

// ReliableExec acquires a pool connection and runs f, retrying with exponential backoff
// while the failure is a timeout or a serialization conflict.
// Each attempt gets its own tryTimeout.
func ReliableExec(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, conn *pgxpool.Conn) error) error {
	return retry(ctx, func() error {
		tryCtx, cancel := context.WithTimeout(ctx, tryTimeout)
		defer cancel()
		conn, err := pool.Acquire(tryCtx)
		if err != nil {
			return fmt.Errorf("error in pool.Acquire: %w", err)
		}
		defer conn.Release()
		return f(tryCtx, conn)
	})
}

// ReliableExecInTx is ReliableExec where f runs inside a transaction that cockroach-go
// restarts on retryable errors.
func ReliableExecInTx(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, tx pgx.Tx) error) error {
	return ReliableExec(ctx, pool, tryTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		return crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
			return f(ctx, tx)
		})
	})
}

func retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = reliableExecMaxElapsed
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !IsRetryableDBError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("backoff", d.String()).Msg("retrying db operation")
	})
}

func IsRetryableDBError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var permErr PermError
	if errors.As(err, &permErr) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure
	}
	return pgconn.Timeout(err)
}
