package memindex

import (
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// CombineMode selects how search_multiple combines per-token postings.
type CombineMode int

const (
	CombineAND CombineMode = iota
	CombineOR
)

// InvertedIndex maps tokens to posting lists (roaring bitmaps of ids) and
// tracks each id's token set so update_document can remove the old
// postings before adding the new ones, per spec §4.3.
type InvertedIndex struct {
	mu       sync.RWMutex
	postings map[string]*roaring.Bitmap
	tokensOf map[model.ID]map[string]struct{}
}

// NewInvertedIndex creates an empty inverted index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		postings: make(map[string]*roaring.Bitmap),
		tokensOf: make(map[model.ID]map[string]struct{}),
	}
}

// UpdateDocument removes every prior (token, id) posting for id and installs
// postings for newTokens, atomically from the caller's point of view (the
// index's own lock serializes this against readers).
func (idx *InvertedIndex) UpdateDocument(id model.ID, newTokens []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if old, ok := idx.tokensOf[id]; ok {
		for tok := range old {
			if bm, ok := idx.postings[tok]; ok {
				bm.Remove(uint32(id))
				if bm.IsEmpty() {
					delete(idx.postings, tok)
				}
			}
		}
	}

	fresh := make(map[string]struct{}, len(newTokens))
	for _, tok := range newTokens {
		fresh[tok] = struct{}{}
		bm, ok := idx.postings[tok]
		if !ok {
			bm = roaring.New()
			idx.postings[tok] = bm
		}
		bm.Add(uint32(id))
	}
	if len(fresh) == 0 {
		delete(idx.tokensOf, id)
	} else {
		idx.tokensOf[id] = fresh
	}
}

// Remove drops every posting for id.
func (idx *InvertedIndex) Remove(id model.ID) {
	idx.UpdateDocument(id, nil)
}

// SearchMultiple intersects (AND) or unions (OR) the posting lists for the
// given tokens.
func (idx *InvertedIndex) SearchMultiple(tokens []string, mode CombineMode) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(tokens) == 0 {
		return roaring.New()
	}

	result := idx.cloneLocked(tokens[0])
	for _, tok := range tokens[1:] {
		next := idx.cloneLocked(tok)
		if mode == CombineAND {
			result.And(next)
		} else {
			result.Or(next)
		}
	}
	return result
}

func (idx *InvertedIndex) cloneLocked(tok string) *roaring.Bitmap {
	bm, ok := idx.postings[tok]
	if !ok {
		return roaring.New()
	}
	c := roaring.New()
	c.Or(bm)
	return c
}

// TokensForID returns the token set recorded for id.
func (idx *InvertedIndex) TokensForID(id model.ID) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	toks, ok := idx.tokensOf[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(toks))
	for t := range toks {
		out = append(out, t)
	}
	return out
}

// Postings returns the id-set for a single token, or an empty bitmap.
func (idx *InvertedIndex) Postings(token string) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.cloneLocked(token)
}
