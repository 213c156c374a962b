package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlestackOverglow/koe-no-search/internal/config"
	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.IndexHiddenFiles = true
	return New(cfg, logging.NewDiscard(), nil, filepath.Join(t.TempDir(), "snapshot.gob"))
}

func TestIndexThenSearchFindsCrawledFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "invoice.pdf"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("y"), 0644))

	e := newTestEngine(t)

	var complete bool
	e.SetCallbacks(Callbacks{
		IndexingComplete: func(success bool, _ string) { complete = success },
	})

	require.NoError(t, e.Index(context.Background(), []string{root}))
	assert.True(t, complete)

	results, err := e.Search(context.Background(), model.SearchQuery{Text: "invoice", Mode: model.ModeExact})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "invoice.pdf", results[0].Record.FileName)
}

func TestSearchCacheServesRepeatedQueryWithoutRescoring(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha.txt"), []byte("x"), 0644))

	e := newTestEngine(t)
	require.NoError(t, e.Index(context.Background(), []string{root}))

	q := model.SearchQuery{Text: "alpha", Mode: model.ModeExact}
	first, err := e.Search(context.Background(), q)
	require.NoError(t, err)

	second, err := e.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(1), e.caches.QueryResults.Stats().Hits, "the second search should be served from the query cache")
}

func TestWatchPicksUpNewlyCreatedFile(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t)
	require.NoError(t, e.Index(context.Background(), []string{root}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, e.Watch(ctx, []string{root}, nil))
	defer e.StopWatch()

	path := filepath.Join(root, "fresh.txt")
	require.NoError(t, os.WriteFile(path, []byte("new"), 0644))

	require.Eventually(t, func() bool {
		results, err := e.Search(context.Background(), model.SearchQuery{Text: "fresh", Mode: model.ModeExact})
		return err == nil && len(results) == 1
	}, 2*time.Second, 20*time.Millisecond, "watcher should index the new file")
}

func TestRestoreFastForwardsIDCounterPastPersistedRecords(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.gateway.Upsert(context.Background(), []model.FileRecord{
		{ID: 500, FullPath: "/a", FileName: "a", NormalizedName: "a", Kind: model.KindFile},
	}))

	require.NoError(t, e.Restore(context.Background()))

	rec, ok := e.index.GetByID(500)
	require.True(t, ok)
	assert.Equal(t, "a", rec.FileName)

	nextID := e.index.NextID()
	assert.Greater(t, uint64(nextID), uint64(500))
}

func TestStatsReflectsIndexedTotals(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0644))

	e := newTestEngine(t)
	require.NoError(t, e.Index(context.Background(), []string{root}))

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.Index.TotalFiles)
}

func TestShutdownStopsWatchAndClosesGateway(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t)
	require.NoError(t, e.Index(context.Background(), []string{root}))
	require.NoError(t, e.Watch(context.Background(), []string{root}, nil))

	require.NoError(t, e.Shutdown())
}
