package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // a is now MRU, b is LRU
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestLRUHitMissRatio(t *testing.T) {
	c := New[string, int](10)
	c.Put("a", 1)
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 0.5, s.HitRatio)
}

func TestLRUResizeEvicts(t *testing.T) {
	c := New[int, int](5)
	for i := 0; i < 5; i++ {
		c.Put(i, i)
	}
	c.Resize(2)
	assert.Equal(t, 2, c.Len())
}

func TestTTLExpiresEntries(t *testing.T) {
	c := NewTTL[string, int](10, 10*time.Millisecond)
	c.Put("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should expire after ttl")
}

func TestPutReplacesAndMovesToFront(t *testing.T) {
	c := New[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 100) // replace + move to front
	c.Put("c", 3)   // should evict b, not a

	_, ok := c.Get("b")
	assert.False(t, ok)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 100, v)
}
