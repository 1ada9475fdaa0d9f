package fraud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/richxcame/safari-bookings/pkg/cache"
	redisclient "github.com/richxcame/safari-bookings/pkg/redis"
)

// Fingerprint returns a 64-bit hash of the normalised content, hex encoded.
// Case and whitespace differences do not change the fingerprint.
func Fingerprint(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalized))
}

// MemoryFingerprintStore keeps fingerprints in a bounded in-process cache
type MemoryFingerprintStore struct {
	seen *cache.Local[string, struct{}]
}

// NewMemoryFingerprintStore creates a store holding at most size fingerprints for ttl
func NewMemoryFingerprintStore(size int, ttl time.Duration) *MemoryFingerprintStore {
	return &MemoryFingerprintStore{seen: cache.NewLocal[string, struct{}](size, ttl)}
}

// CheckAndRemember implements FingerprintStore
func (m *MemoryFingerprintStore) CheckAndRemember(_ context.Context, fp string) (bool, error) {
	stored := m.seen.SetIfAbsent(fp, struct{}{})
	return !stored, nil
}

// Forget implements FingerprintStore
func (m *MemoryFingerprintStore) Forget(_ context.Context, fp string) error {
	m.seen.Delete(fp)
	return nil
}

// Len returns the number of remembered fingerprints
func (m *MemoryFingerprintStore) Len() int {
	return m.seen.Len()
}

// RedisFingerprintStore shares fingerprints between replicas through Redis
type RedisFingerprintStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisFingerprintStore creates a Redis-backed store
func NewRedisFingerprintStore(client *redisclient.Client, ttl time.Duration) *RedisFingerprintStore {
	return &RedisFingerprintStore{client: client, ttl: ttl}
}

// CheckAndRemember implements FingerprintStore with SETNX
func (r *RedisFingerprintStore) CheckAndRemember(ctx context.Context, fp string) (bool, error) {
	stored, err := r.client.RetryableSetIfAbsent(ctx, cache.Keys.ContentFingerprint(fp), 1, r.ttl)
	if err != nil {
		return false, fmt.Errorf("remember fingerprint: %w", err)
	}
	return !stored, nil
}

// Forget implements FingerprintStore
func (r *RedisFingerprintStore) Forget(ctx context.Context, fp string) error {
	if err := r.client.Delete(ctx, cache.Keys.ContentFingerprint(fp)); err != nil {
		return fmt.Errorf("forget fingerprint: %w", err)
	}
	return nil
}
