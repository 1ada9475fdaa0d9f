package resilience

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	breakerStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "safari_circuit_breaker_state",
		Help: "Current state of circuit breakers (0=closed, 0.5=half-open, 1=open)",
	}, []string{"breaker"})

	breakerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safari_circuit_breaker_requests_total",
		Help: "Operations executed through a circuit breaker",
	}, []string{"breaker"})

	breakerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safari_circuit_breaker_failures_total",
		Help: "Breaker executions that returned an error",
	}, []string{"breaker"})

	breakerFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safari_circuit_breaker_fallbacks_total",
		Help: "Requests short-circuited because the breaker was open",
	}, []string{"breaker"})

	breakerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safari_circuit_breaker_state_changes_total",
		Help: "Circuit breaker state transitions",
	}, []string{"breaker", "from", "to"})

	retryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safari_retry_attempts_total",
		Help: "Retry attempts across all operations",
	}, []string{"operation", "result"})

	retryOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "safari_retry_operation_duration_seconds",
		Help:    "Duration of retried operations including all attempts",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"operation", "result"})

	breakerIDCounter uint64
)

func nextBreakerName(base string) string {
	if base != "" {
		return base
	}
	id := atomic.AddUint64(&breakerIDCounter, 1)
	return "breaker-" + strconv.FormatUint(id, 10)
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}

func recordBreakerState(name string, state gobreaker.State) {
	breakerStateGauge.WithLabelValues(name).Set(breakerStateValue(state))
}

func recordBreakerStateChange(name string, from, to gobreaker.State) {
	breakerStateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	recordBreakerState(name, to)
}

func recordBreakerRequest(name string) {
	breakerRequestsTotal.WithLabelValues(name).Inc()
}

func recordBreakerFailure(name string) {
	breakerFailuresTotal.WithLabelValues(name).Inc()
}

func recordBreakerFallback(name string) {
	breakerFallbacksTotal.WithLabelValues(name).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordRetryAttempt records a single attempt outcome
func RecordRetryAttempt(operation string, success bool) {
	retryAttemptsTotal.WithLabelValues(operation, resultLabel(success)).Inc()
}

// RecordRetryOperation records the overall duration of a retried operation
func RecordRetryOperation(operation string, durationSeconds float64, success bool) {
	retryOperationDuration.WithLabelValues(operation, resultLabel(success)).Observe(durationSeconds)
}
