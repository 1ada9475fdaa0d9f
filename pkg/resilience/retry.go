package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/richxcame/safari-bookings/pkg/logger"
	"go.uber.org/zap"
)

// RetryConfig defines the configuration for retry behavior
type RetryConfig struct {
	// MaxAttempts includes the initial attempt
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	EnableJitter      bool
	// RetryableChecker decides whether an error is worth another attempt.
	// Nil retries everything except context and breaker errors.
	RetryableChecker func(error) bool
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
	}
}

// RetryWithName executes the operation with retry logic and records metrics under operationName
func RetryWithName(ctx context.Context, config RetryConfig, operation Operation, operationName string) (interface{}, error) {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	startTime := time.Now()
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			RecordRetryOperation(operationName, time.Since(startTime).Seconds(), false)
			return nil, err
		}

		result, err := operation(ctx)
		RecordRetryAttempt(operationName, err == nil)
		if err == nil {
			RecordRetryOperation(operationName, time.Since(startTime).Seconds(), true)
			if attempt > 1 {
				logger.WithContext(ctx).Info("operation succeeded after retry",
					zap.String("operation", operationName),
					zap.Int("attempt", attempt),
				)
			}
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err, config) || attempt == config.MaxAttempts {
			break
		}

		backoff := calculateBackoff(attempt, config)
		logger.WithContext(ctx).Warn("retrying operation after backoff",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			RecordRetryOperation(operationName, time.Since(startTime).Seconds(), false)
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	RecordRetryOperation(operationName, time.Since(startTime).Seconds(), false)
	return nil, lastErr
}

// RetryWithBreaker combines retry logic with circuit breaker.
// Retries stop as soon as the breaker opens. A nil breaker only retries.
func RetryWithBreaker(ctx context.Context, config RetryConfig, breaker *CircuitBreaker, operation Operation) (interface{}, error) {
	name := breaker.Name()
	if name == "" {
		name = "unnamed"
	}
	return RetryWithName(ctx, config, func(ctx context.Context) (interface{}, error) {
		return breaker.Execute(ctx, operation)
	}, name)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	multiplier := config.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	backoff := float64(config.InitialBackoff) * math.Pow(multiplier, float64(attempt-1))
	if config.MaxBackoff > 0 && backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	duration := time.Duration(backoff)
	if config.EnableJitter && duration > 0 {
		// full jitter
		duration = time.Duration(rand.Int63n(int64(duration)))
	}
	return duration
}

func shouldRetry(err error, config RetryConfig) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if config.RetryableChecker != nil {
		return config.RetryableChecker(err)
	}
	return true
}
