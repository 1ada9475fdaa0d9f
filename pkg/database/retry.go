package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/safari-bookings/pkg/resilience"
)

// Execer is satisfied by pgxpool.Pool and pgx.Tx
type Execer interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
}

// RowQuerier is satisfied by pgxpool.Pool and pgx.Tx
type RowQuerier interface {
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// RetryConfig returns the retry policy used for database writes
func RetryConfig() resilience.RetryConfig {
	config := resilience.DefaultRetryConfig()
	config.InitialBackoff = 100 * time.Millisecond
	config.MaxBackoff = 2 * time.Second
	config.RetryableChecker = IsRetryable
	return config
}

// RetryableExec executes a database command with retry logic for transient failures
func RetryableExec(ctx context.Context, db Execer, query string, args ...interface{}) (pgconn.CommandTag, error) {
	result, err := resilience.RetryWithName(ctx, RetryConfig(), func(ctx context.Context) (interface{}, error) {
		return db.Exec(ctx, query, args...)
	}, "database.exec")
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return result.(pgconn.CommandTag), nil
}

// RetryableQueryRow executes a single-row query with retry logic for transient failures
func RetryableQueryRow[T any](ctx context.Context, db RowQuerier, query string, args []interface{}, scanner func(pgx.Row) (T, error)) (T, error) {
	result, err := resilience.RetryWithName(ctx, RetryConfig(), func(ctx context.Context) (interface{}, error) {
		return scanner(db.QueryRow(ctx, query, args...))
	}, "database.query_row")
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// IsRetryable reports whether a PostgreSQL error is transient
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"53000", // insufficient_resources
			"53300", // too_many_connections
			"57P01", // admin_shutdown
			"57P03", // cannot_connect_now
			"08000", "08003", "08006":
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"too many connections",
		"server closed",
		"unexpected eof",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
