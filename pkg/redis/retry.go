package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/safari-bookings/pkg/resilience"
)

// RetryableOperation executes a Redis operation with retry logic for transient failures
func RetryableOperation[T any](ctx context.Context, operation func(context.Context) (T, error), operationName string) (T, error) {
	config := resilience.DefaultRetryConfig()
	config.InitialBackoff = 50 * time.Millisecond
	config.MaxBackoff = time.Second
	config.RetryableChecker = isRedisRetryable

	result, err := resilience.RetryWithName(ctx, config, func(ctx context.Context) (interface{}, error) {
		return operation(ctx)
	}, operationName)
	if err != nil {
		var zero T
		return zero, err
	}

	return result.(T), nil
}

// RetryableSetIfAbsent runs SetIfAbsent with retry logic
func (c *Client) RetryableSetIfAbsent(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return RetryableOperation(ctx, func(ctx context.Context) (bool, error) {
		return c.SetIfAbsent(ctx, key, value, expiration)
	}, "redis.setnx")
}

func isRedisRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// key not found is an answer, not a failure
	if errors.Is(err, redis.Nil) {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	for _, msg := range []string{"wrongtype", "err syntax", "noauth", "wrongpass", "noperm", "err unknown"} {
		if strings.Contains(errMsg, msg) {
			return false
		}
	}
	return true
}
