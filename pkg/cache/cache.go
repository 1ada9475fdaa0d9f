package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/richxcame/safari-bookings/pkg/logger"
	"go.uber.org/zap"
)

// Store is the subset of the Redis client the manager relies on
type Store interface {
	GetString(ctx context.Context, key string) (string, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Manager handles caching operations with JSON serialization
type Manager struct {
	store Store
}

// NewManager creates a new cache manager
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Get retrieves a cached value and unmarshals it into result
func (m *Manager) Get(ctx context.Context, key string, result interface{}) error {
	data, err := m.store.GetString(ctx, key)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

// Set marshals and caches a value with expiration
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return m.store.SetWithExpiration(ctx, key, string(data), ttl)
}

// GetOrSet fills result from cache, or from fn on a miss and caches that value.
// Cache write failures are logged and never fail the call.
func (m *Manager) GetOrSet(ctx context.Context, key string, ttl time.Duration, result interface{}, fn func(ctx context.Context) (interface{}, error)) error {
	if err := m.Get(ctx, key, result); err == nil {
		return nil
	}

	data, err := fn(ctx)
	if err != nil {
		return err
	}

	if err := m.Set(ctx, key, data, ttl); err != nil {
		logger.WarnContext(ctx, "failed to cache value", zap.String("key", key), zap.Error(err))
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

// Delete removes keys from cache
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	return m.store.Delete(ctx, keys...)
}

// CacheKeys defines cache key patterns
type CacheKeys struct{}

var Keys = CacheKeys{}

// FraudStatistics returns the key for a statistics report over the given window
func (k CacheKeys) FraudStatistics(timeRangeHours int) string {
	return fmt.Sprintf("fraud:stats:%dh", timeRangeHours)
}

// ContentFingerprint returns the key marking a review fingerprint as seen
func (k CacheKeys) ContentFingerprint(fingerprint string) string {
	return fmt.Sprintf("fraud:fp:%s", fingerprint)
}
