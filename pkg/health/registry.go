package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/safari-bookings/pkg/resilience"
)

// Status values reported by the readiness endpoint
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Report is the readiness payload
type Report struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Version      string                      `json:"version"`
	Uptime       string                      `json:"uptime"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
	OpenBreakers []string                    `json:"open_breakers,omitempty"`
	CheckedAt    time.Time                   `json:"checked_at"`
}

// Registry runs named dependency checks concurrently.
// A failed check makes the service unhealthy; an open breaker only degrades it,
// since breakers have fallbacks.
type Registry struct {
	service   string
	version   string
	startTime time.Time
	timeout   time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	breakers map[string]*resilience.CircuitBreaker
}

// NewRegistry creates an empty registry
func NewRegistry(service, version string, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Registry{
		service:   service,
		version:   version,
		startTime: time.Now(),
		timeout:   timeout,
		checkers:  make(map[string]Checker),
		breakers:  make(map[string]*resilience.CircuitBreaker),
	}
}

// Register adds a named dependency check
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = WithTimeout(checker, r.timeout)
}

// AddCircuitBreaker adds a breaker to report on
func (r *Registry) AddCircuitBreaker(breaker *resilience.CircuitBreaker) {
	if breaker == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers[breaker.Name()] = breaker
}

// Check runs every registered check
func (r *Registry) Check(ctx context.Context) Report {
	r.mu.RLock()
	checkers := make(map[string]Checker, len(r.checkers))
	for name, c := range r.checkers {
		checkers[name] = c
	}
	breakers := make(map[string]*resilience.CircuitBreaker, len(r.breakers))
	for name, b := range r.breakers {
		breakers[name] = b
	}
	r.mu.RUnlock()

	report := Report{
		Status:       StatusHealthy,
		Service:      r.service,
		Version:      r.version,
		Uptime:       time.Since(r.startTime).Round(time.Second).String(),
		Dependencies: make(map[string]DependencyStatus, len(checkers)),
		CheckedAt:    time.Now().UTC(),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()
			start := time.Now()
			err := checker(ctx)
			dep := DependencyStatus{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				dep.Status = StatusUnhealthy
				dep.Message = err.Error()
			}

			mu.Lock()
			report.Dependencies[name] = dep
			if err != nil {
				report.Status = StatusUnhealthy
			}
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	for name, breaker := range breakers {
		if !breaker.Allow() {
			report.OpenBreakers = append(report.OpenBreakers, name)
		}
	}
	sort.Strings(report.OpenBreakers)
	if len(report.OpenBreakers) > 0 && report.Status == StatusHealthy {
		report.Status = StatusDegraded
	}

	return report
}

// LivenessHandler always answers 200 while the process runs
func (r *Registry) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "alive",
			"service": r.service,
			"version": r.version,
			"uptime":  time.Since(r.startTime).Round(time.Second).String(),
		})
	}
}

// ReadinessHandler answers 503 when any dependency is unhealthy
func (r *Registry) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := r.Check(c.Request.Context())
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}
