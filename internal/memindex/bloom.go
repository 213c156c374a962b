package memindex

import (
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// BloomFilter is a probabilistic, additive-only set over strings. False
// positives are possible; false negatives are not. Sized per spec §4.3 for
// an expected element count n at false-positive rate p=0.01:
// m = ceil(-n*ln(p)/(ln2)^2), k = ceil(m/n * ln2).
type BloomFilter struct {
	mu      sync.RWMutex
	bits    []uint64
	numBits uint64
	numHash uint64
	count   uint64
}

// NewBloomFilter sizes a filter for expectedItems elements at false-positive
// rate falsePositive (e.g. 0.01).
func NewBloomFilter(expectedItems uint64, falsePositive float64) *BloomFilter {
	if expectedItems == 0 {
		expectedItems = 1
	}
	if falsePositive <= 0 || falsePositive >= 1 {
		falsePositive = 0.01
	}

	n := float64(expectedItems)
	m := math.Ceil(-n * math.Log(falsePositive) / (math.Ln2 * math.Ln2))
	k := math.Ceil((m / n) * math.Ln2)
	if k < 1 {
		k = 1
	}

	numBits := uint64(m)
	if numBits == 0 {
		numBits = 1
	}

	return &BloomFilter{
		bits:    make([]uint64, (numBits+63)/64),
		numBits: numBits,
		numHash: uint64(k),
	}
}

// positions derives k independent bit positions from a single base hash and
// a salted second hash, per the double-hashing scheme in spec §4.3:
// pos_i = (h1 + i*h2) mod m.
func (b *BloomFilter) positions(s string) []uint64 {
	h1 := xxhash.Sum64String(s)
	h2 := xxhash.Sum64String(s + "\x00salt")
	if h2%b.numBits == 0 {
		h2 |= 1
	}
	pos := make([]uint64, b.numHash)
	for i := uint64(0); i < b.numHash; i++ {
		pos[i] = (h1 + i*h2) % b.numBits
	}
	return pos
}

// Add inserts s into the set.
func (b *BloomFilter) Add(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.positions(s) {
		b.bits[p/64] |= 1 << (p % 64)
	}
	b.count++
}

// MightContain returns false only if s was definitely never added.
func (b *BloomFilter) MightContain(s string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, p := range b.positions(s) {
		if b.bits[p/64]&(1<<(p%64)) == 0 {
			return false
		}
	}
	return true
}

// Clear resets the filter to empty, keeping its sizing.
func (b *BloomFilter) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bits {
		b.bits[i] = 0
	}
	b.count = 0
}

// Count returns the number of Add calls since the last Clear/rebuild. This
// is an upper bound on distinct members.
func (b *BloomFilter) Count() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Rebuild replaces the filter's contents with a fresh population derived
// from members, in a filter sized for len(members) at falsePositive. Used
// when deletions have piled up
// enough that the filter's false-positive rate has likely drifted.
func (b *BloomFilter) Rebuild(members []string, falsePositive float64) {
	fresh := NewBloomFilter(uint64(len(members)), falsePositive)
	for _, m := range members {
		fresh.Add(m)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.bits = fresh.bits
	b.numBits = fresh.numBits
	b.numHash = fresh.numHash
	b.count = fresh.count
}
