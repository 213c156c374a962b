package memindex

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// BitmapIndex is a simple key -> roaring.Bitmap posting map, used for the
// extension index and the drive index in spec §4.3 (both are single-valued
// attribute indexes, unlike the multi-token InvertedIndex).
type BitmapIndex[K comparable] struct {
	mu       sync.RWMutex
	postings map[K]*roaring.Bitmap
}

// NewBitmapIndex creates an empty bitmap index.
func NewBitmapIndex[K comparable]() *BitmapIndex[K] {
	return &BitmapIndex[K]{postings: make(map[K]*roaring.Bitmap)}
}

// Add inserts id under key.
func (b *BitmapIndex[K]) Add(key K, id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bm, ok := b.postings[key]
	if !ok {
		bm = roaring.New()
		b.postings[key] = bm
	}
	bm.Add(id)
}

// Remove deletes id from key's bucket, dropping the bucket if empty.
func (b *BitmapIndex[K]) Remove(key K, id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bm, ok := b.postings[key]
	if !ok {
		return
	}
	bm.Remove(id)
	if bm.IsEmpty() {
		delete(b.postings, key)
	}
}

// Get returns a copy of key's id-set.
func (b *BitmapIndex[K]) Get(key K) *roaring.Bitmap {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bm, ok := b.postings[key]
	if !ok {
		return roaring.New()
	}
	c := roaring.New()
	c.Or(bm)
	return c
}

// Has reports whether key has any members.
func (b *BitmapIndex[K]) Has(key K) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bm, ok := b.postings[key]
	return ok && !bm.IsEmpty()
}

// Keys returns a snapshot of all populated keys.
func (b *BitmapIndex[K]) Keys() []K {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]K, 0, len(b.postings))
	for k := range b.postings {
		out = append(out, k)
	}
	return out
}
