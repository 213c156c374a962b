package memindex

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

func makeRecord(idx *Index, path, name string, parent model.ID, size int64) *model.FileRecord {
	norm := model.NormalizeName(name)
	return &model.FileRecord{
		ID:             idx.NextID(),
		FullPath:       path,
		FileName:       name,
		Extension:      "txt",
		NormalizedName: norm,
		Tokens:         model.Tokenize(norm, "txt"),
		Size:           size,
		LastModified:   time.Unix(1000, 0),
		LastAccessed:   time.Unix(1000, 0),
		Kind:           model.KindFile,
		ParentID:       parent,
		DriveID:        1,
	}
}

func TestBijectionOverAddsAndRemoves(t *testing.T) {
	idx := New(100, nil)
	var ids []model.ID
	for i := 0; i < 20; i++ {
		rec := makeRecord(idx, fmt.Sprintf("/a/f%d.txt", i), fmt.Sprintf("f%d.txt", i), 0, int64(i))
		idx.Add(rec)
		ids = append(ids, rec.ID)
	}
	for i := 0; i < 20; i += 2 {
		idx.Remove(ids[i])
	}

	assert.Empty(t, idx.ValidateIntegrity())

	for i, id := range ids {
		rec, ok := idx.GetByID(id)
		if i%2 == 0 {
			assert.False(t, ok)
		} else {
			require.True(t, ok)
			got, ok2 := idx.GetByPath(rec.FullPath)
			require.True(t, ok2)
			assert.Equal(t, id, got.ID)
		}
	}
}

func TestHierarchySymmetry(t *testing.T) {
	idx := New(10, nil)
	root := makeRecord(idx, "/root", "root", 0, 0)
	root.Kind = model.KindDirectory
	idx.Add(root)

	child := makeRecord(idx, "/root/child.txt", "child.txt", root.ID, 10)
	idx.Add(child)

	children := idx.Children(root.ID)
	assert.Contains(t, children, child.ID)
	assert.Empty(t, idx.ValidateIntegrity())
}

func TestInvertedIndexConsistency(t *testing.T) {
	idx := New(10, nil)
	rec := makeRecord(idx, "/a/document.txt", "document.txt", 0, 100)
	idx.Add(rec)

	for _, tok := range rec.Tokens {
		ids := idx.SearchTokens([]string{tok}, CombineOR)
		assert.Contains(t, ids, rec.ID)
	}
	assert.Empty(t, idx.ValidateIntegrity())
}

func TestTrieRoundTrip(t *testing.T) {
	idx := New(10, nil)
	rec := makeRecord(idx, "/a/hello world.txt", "hello world.txt", 0, 0)
	idx.Add(rec)

	for _, prefix := range []string{"h", "he", "hello", "hello w"} {
		ids := idx.PrefixSearch(prefix)
		assert.Contains(t, ids, rec.ID)
	}
}

func TestBloomOneSided(t *testing.T) {
	idx := New(1000, nil)
	names := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		rec := makeRecord(idx, fmt.Sprintf("/a/f%d.txt", i), fmt.Sprintf("f%d.txt", i), 0, 0)
		idx.Add(rec)
		names = append(names, rec.NormalizedName)
	}
	for _, n := range names {
		assert.True(t, idx.MightContainName(n))
	}

	falsePositives := 0
	const trials = 5000
	for i := 0; i < trials; i++ {
		if idx.MightContainName(fmt.Sprintf("definitely-absent-%d", i)) {
			falsePositives++
		}
	}
	rate := float64(falsePositives) / float64(trials)
	assert.Less(t, rate, 0.02, "false-positive rate should stay near the 1%% design target")
}

func TestSizeRangeIndex(t *testing.T) {
	idx := New(10, nil)
	var ids []model.ID
	for i := 0; i < 10; i++ {
		rec := makeRecord(idx, fmt.Sprintf("/a/f%d.txt", i), fmt.Sprintf("f%d.txt", i), 0, int64(i*100))
		idx.Add(rec)
		ids = append(ids, rec.ID)
	}
	got := idx.SearchSizeRange(200, 500)
	assert.ElementsMatch(t, []model.ID{ids[2], ids[3], ids[4], ids[5]}, got)
}

func TestUpdateReplacesIndexedAttributesAtomically(t *testing.T) {
	idx := New(10, nil)
	rec := makeRecord(idx, "/a/old.txt", "old.txt", 0, 10)
	idx.Add(rec)

	updated := *rec
	updated.FileName = "new.txt"
	updated.NormalizedName = model.NormalizeName("new.txt")
	updated.Tokens = model.Tokenize(updated.NormalizedName, "txt")
	updated.FullPath = "/a/old.txt" // same path, renamed content
	idx.Update(&updated)

	ids := idx.PrefixSearch("new")
	assert.Contains(t, ids, rec.ID)
	ids = idx.PrefixSearch("old")
	assert.NotContains(t, ids, rec.ID)
	assert.Empty(t, idx.ValidateIntegrity())
}

func TestRemoveSubtreeCascades(t *testing.T) {
	idx := New(10, nil)
	root := makeRecord(idx, "/a", "a", 0, 0)
	root.Kind = model.KindDirectory
	idx.Add(root)
	child := makeRecord(idx, "/a/b", "b", root.ID, 0)
	child.Kind = model.KindDirectory
	idx.Add(child)
	grandchild := makeRecord(idx, "/a/b/c.txt", "c.txt", child.ID, 5)
	idx.Add(grandchild)

	idx.RemoveSubtree(root.ID)

	_, ok := idx.GetByID(root.ID)
	assert.False(t, ok)
	_, ok = idx.GetByID(child.ID)
	assert.False(t, ok)
	_, ok = idx.GetByID(grandchild.ID)
	assert.False(t, ok)
	assert.Empty(t, idx.ValidateIntegrity())
}

func TestTotalsMatchLiveRecords(t *testing.T) {
	idx := New(10, nil)
	for i := 0; i < 5; i++ {
		idx.Add(makeRecord(idx, fmt.Sprintf("/a/f%d.txt", i), fmt.Sprintf("f%d.txt", i), 0, 10))
	}
	totals := idx.Totals()
	assert.Equal(t, uint64(5), totals.TotalFiles)
	assert.Equal(t, uint64(50), totals.TotalSize)
}
