package cache

import (
	"time"
)

// TTLLRU wraps an LRU with an expiry applied at read time: Get treats an
// entry older than ttl as a miss and evicts it, per spec §4.2's
// query-to-results cache.
type TTLLRU[K comparable, V any] struct {
	lru *LRU[K, ttlEntry[V]]
	ttl time.Duration
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTL creates a TTLLRU with the given capacity and time-to-live.
func NewTTL[K comparable, V any](capacity int, ttl time.Duration) *TTLLRU[K, V] {
	return &TTLLRU[K, V]{lru: New[K, ttlEntry[V]](capacity), ttl: ttl}
}

// Put inserts k with a fresh expiry.
func (c *TTLLRU[K, V]) Put(k K, v V) {
	c.lru.Put(k, ttlEntry[V]{value: v, expiresAt: time.Now().Add(c.ttl)})
}

// Get returns the value if present and not expired. An expired entry counts
// as a miss and is removed.
func (c *TTLLRU[K, V]) Get(k K) (V, bool) {
	e, ok := c.lru.Get(k)
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.lru.Remove(k)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Remove deletes k.
func (c *TTLLRU[K, V]) Remove(k K) { c.lru.Remove(k) }

// Clear empties the cache.
func (c *TTLLRU[K, V]) Clear() { c.lru.Clear() }

// Resize changes capacity.
func (c *TTLLRU[K, V]) Resize(n int) { c.lru.Resize(n) }

// Len returns the current entry count, including expired entries not yet
// removed.
func (c *TTLLRU[K, V]) Len() int { return c.lru.Len() }

// Stats returns hit/miss/eviction counters.
func (c *TTLLRU[K, V]) Stats() Stats { return c.lru.Stats() }
