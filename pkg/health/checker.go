package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checker is a health check function that returns an error if unhealthy
type Checker func(ctx context.Context) error

// Pinger is satisfied by pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker verifies PostgreSQL connectivity through the pool
func DatabaseChecker(pool Pinger) Checker {
	return func(ctx context.Context) error {
		if pool == nil {
			return errors.New("database pool is nil")
		}
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	}
}

// RedisChecker verifies Redis connectivity
func RedisChecker(client *redis.Client) Checker {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	}
}

// NATSChecker reports the event bus connection state
func NATSChecker(connected func() bool) Checker {
	return func(context.Context) error {
		if connected == nil || !connected() {
			return errors.New("nats not connected")
		}
		return nil
	}
}

// WithTimeout bounds a checker's runtime
func WithTimeout(checker Checker, timeout time.Duration) Checker {
	return func(ctx context.Context) error {
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		errCh := make(chan error, 1)
		go func() { errCh <- checker(checkCtx) }()

		select {
		case err := <-errCh:
			return err
		case <-checkCtx.Done():
			return fmt.Errorf("health check timeout after %v", timeout)
		}
	}
}
