package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlestackOverglow/koe-no-search/internal/config"
	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
	"github.com/AlestackOverglow/koe-no-search/internal/persistence"
)

func TestExclusionRulesHiddenAndSystemPolicy(t *testing.T) {
	r := NewExclusionRules(nil, nil, false, false)
	assert.True(t, r.ShouldSkipDir("/home/user/.cache", true, false))
	assert.False(t, r.ShouldSkipDir("/home/user/docs", false, false))
	assert.True(t, r.ShouldSkipDir("/mnt/Windows", false, false))
}

func TestExclusionRulesUserPatternsAndExtensions(t *testing.T) {
	r := NewExclusionRules([]string{"scratch.txt"}, []string{".tmp", "log"}, true, true)
	assert.True(t, r.ShouldSkipFile("/tmp/scratch.txt", false, false))
	assert.True(t, r.ShouldSkipFile("/home/user/a.tmp", false, false))
	assert.True(t, r.ShouldSkipFile("/home/user/a.log", false, false))
	assert.False(t, r.ShouldSkipFile("/home/user/a.txt", false, false))
}

func TestBatchProcessorFlushesAtThreshold(t *testing.T) {
	idx := memindex.New(100, logging.NewDiscard())
	bp := newBatchProcessor(idx, nil)

	makeRecord := func() *model.FileRecord {
		id := idx.NextID()
		return &model.FileRecord{ID: id, FullPath: filepath.Join("/x", string(rune('a'+int(id)%26))), Kind: model.KindFile}
	}

	for i := 0; i < batchSize-1; i++ {
		bp.add(context.Background(), makeRecord())
	}
	assert.Equal(t, batchSize-1, len(bp.records))

	bp.add(context.Background(), makeRecord())
	assert.Equal(t, 0, len(bp.records), "batch should have auto-flushed at threshold")
	assert.Equal(t, uint64(batchSize), idx.Totals().TotalFiles)
}

func TestCrawlerWalksTempTreeAndIndexesEverything(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep", "c.txt"), []byte("world"), 0644))

	idx := memindex.New(100, logging.NewDiscard())
	gw := persistence.NewMemoryGateway("", logging.NewDiscard())
	cfg := config.Default()
	cfg.IndexingThreads = 2

	c := New(idx, gw, cfg, logging.NewDiscard())
	// Skip the priority phase's home-directory walk for test determinism by
	// driving the bulk-phase code path directly.
	c.phase.Store(int32(PhaseBulk))
	c.walkRoot(context.Background(), root)
	c.batch.flush(context.Background())

	totals := idx.Totals()
	assert.Equal(t, uint64(3), totals.TotalFiles)
	assert.Equal(t, uint64(3), totals.TotalDirs) // root, sub, deep

	rec, ok := idx.GetByPath(filepath.Join(root, "sub", "deep", "c.txt"))
	require.True(t, ok)
	assert.Equal(t, "c.txt", rec.FileName)
	assert.Equal(t, int64(5), rec.Size)
}

func TestPauseBlocksWalkerUntilResume(t *testing.T) {
	idx := memindex.New(10, logging.NewDiscard())
	cfg := config.Default()
	c := New(idx, nil, cfg, logging.NewDiscard())

	c.Pause()
	assert.True(t, c.IsPaused())
	c.Resume()
	assert.False(t, c.IsPaused())
}
