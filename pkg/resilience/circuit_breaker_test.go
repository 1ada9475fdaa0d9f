package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richxcame/safari-bookings/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerTripsAndReturnsOpenError(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-breaker",
		Timeout:          50 * time.Millisecond,
		Interval:         50 * time.Millisecond,
		FailureThreshold: 2,
		SuccessThreshold: 1,
	}, nil)

	ctx := context.Background()
	failingOp := func(context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	}

	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(ctx, failingOp)
		require.Error(t, err)
	}

	assert.False(t, breaker.Allow())

	_, err := breaker.Execute(ctx, func(context.Context) (interface{}, error) {
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerUsesFallbackWhenOpen(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "fallback-breaker",
		Timeout:          time.Minute,
		FailureThreshold: 1,
	}, func(context.Context, error) (interface{}, error) {
		return "cached", nil
	})

	ctx := context.Background()
	_, err := breaker.Execute(ctx, func(context.Context) (interface{}, error) {
		return nil, errors.New("down")
	})
	require.Error(t, err)

	result, err := breaker.Execute(ctx, func(context.Context) (interface{}, error) {
		t.Fatal("operation must not run while breaker is open")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", result)
}

func TestCircuitBreakerPassesThroughOnSuccess(t *testing.T) {
	breaker := NewCircuitBreaker(SettingsFromConfig("success-breaker", config.CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		TimeoutSeconds:   1,
		IntervalSeconds:  1,
	}), nil)

	result, err := breaker.Execute(context.Background(), func(context.Context) (interface{}, error) {
		return "response", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "response", result)
	assert.Equal(t, "success-breaker", breaker.Name())
}

func TestNilBreakerRunsOperation(t *testing.T) {
	var breaker *CircuitBreaker
	result, err := breaker.Execute(context.Background(), func(context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.True(t, breaker.Allow())
}

func TestRetryWithNameStopsOnNonRetryable(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	permanent := errors.New("constraint violation")
	cfg.RetryableChecker = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	_, err := RetryWithName(context.Background(), cfg, func(context.Context) (interface{}, error) {
		calls++
		return nil, permanent
	}, "test.permanent")

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryWithNameSucceedsAfterTransientFailures(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond

	calls := 0
	result, err := RetryWithName(context.Background(), cfg, func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return "saved", nil
	}, "test.transient")

	require.NoError(t, err)
	assert.Equal(t, "saved", result)
	assert.Equal(t, 3, calls)
}

func TestRetryWithNameHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryWithName(ctx, DefaultRetryConfig(), func(context.Context) (interface{}, error) {
		return "never", nil
	}, "test.cancelled")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithBreakerStopsOnceBreakerOpens(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "retry-breaker",
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, nil)
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 5
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond

	calls := 0
	_, err := RetryWithBreaker(context.Background(), cfg, breaker, func(context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("connection reset")
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestRetryWithNilBreakerOnlyRetries(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond

	calls := 0
	result, err := RetryWithBreaker(context.Background(), cfg, nil, func(context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection reset")
		}
		return "found", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "found", result)
	assert.Equal(t, 2, calls)
}
