package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Local is a bounded in-process cache with per-entry TTL.
// Expired entries are purged by a background sweep, so memory stays bounded
// even for keys that are never read again.
type Local[K comparable, V any] struct {
	mu  sync.Mutex
	lru *expirable.LRU[K, V]
}

// NewLocal creates a cache holding at most size entries for ttl each.
func NewLocal[K comparable, V any](size int, ttl time.Duration) *Local[K, V] {
	if size <= 0 {
		size = 1
	}
	return &Local[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

// Get returns the cached value for key
func (l *Local[K, V]) Get(key K) (V, bool) {
	return l.lru.Get(key)
}

// Set stores value under key, evicting the oldest entry when full
func (l *Local[K, V]) Set(key K, value V) {
	l.lru.Add(key, value)
}

// SetIfAbsent stores value only when key is not cached.
// Returns true when the value was stored.
func (l *Local[K, V]) SetIfAbsent(key K, value V) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lru.Contains(key) {
		return false
	}
	l.lru.Add(key, value)
	return true
}

// Delete removes key
func (l *Local[K, V]) Delete(key K) {
	l.lru.Remove(key)
}

// Len returns the number of live entries
func (l *Local[K, V]) Len() int {
	return l.lru.Len()
}

// Purge drops every entry
func (l *Local[K, V]) Purge() {
	l.lru.Purge()
}
