package memindex

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/armon/go-radix"

	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// Trie indexes FileRecord.NormalizedName for prefix search. It is backed by
// a radix tree (a compressed trie): every distinct normalized name is a key
// whose value is the roaring bitmap of ids that terminate there, and
// prefix search is the tree's native WalkPrefix.
type Trie struct {
	tree *radix.Tree
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{tree: radix.New()}
}

// Insert records id as terminating at normalizedName, creating the key if
// it is new.
// Insert truncates id to 32 bits, as roaring.Bitmap does throughout this
// package: ids past 2^32-1 alias with lower ids here.
func (t *Trie) Insert(normalizedName string, id model.ID) {
	if v, ok := t.tree.Get(normalizedName); ok {
		v.(*roaring.Bitmap).Add(uint32(id))
		return
	}
	bm := roaring.New()
	bm.Add(uint32(id))
	t.tree.Insert(normalizedName, bm)
}

// Remove deletes id from normalizedName's id-set, dropping the key entirely
// once it is empty.
func (t *Trie) Remove(normalizedName string, id model.ID) {
	v, ok := t.tree.Get(normalizedName)
	if !ok {
		return
	}
	bm := v.(*roaring.Bitmap)
	bm.Remove(uint32(id))
	if bm.IsEmpty() {
		t.tree.Delete(normalizedName)
	}
}

// PrefixSearch returns every id whose normalized name starts with prefix.
// An empty prefix matches the whole trie.
func (t *Trie) PrefixSearch(prefix string) *roaring.Bitmap {
	result := roaring.New()
	t.tree.WalkPrefix(prefix, func(_ string, v interface{}) bool {
		result.Or(v.(*roaring.Bitmap))
		return false
	})
	return result
}

// Exact returns the id-set stored exactly at normalizedName, if any.
func (t *Trie) Exact(normalizedName string) *roaring.Bitmap {
	if v, ok := t.tree.Get(normalizedName); ok {
		return v.(*roaring.Bitmap)
	}
	return roaring.New()
}

// Len returns the number of distinct normalized names stored.
func (t *Trie) Len() int { return t.tree.Len() }
