package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlestackOverglow/koe-no-search/internal/crawler"
)

func TestBrowseListsDirectoryWithoutIndexing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "child"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "leaf.txt"), []byte("x"), 0644))

	e := newTestEngine(t)
	b := e.Browse()
	defer b.Close()

	b.Expand(root)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && b.State(root) != crawler.Loaded {
		time.Sleep(5 * time.Millisecond)
	}

	dirs, files, loaded := b.Listing(root)
	require.True(t, loaded)
	require.Len(t, dirs, 1)
	require.Len(t, files, 1)
	assert.Equal(t, "leaf.txt", files[0].FileName)

	b.Preload(context.Background(), root, crawler.PreloadBFS)
	require.Eventually(t, func() bool {
		return b.State(dirs[0]) == crawler.Loaded
	}, 2*time.Second, 5*time.Millisecond, "preload should eventually load the child directory")

	stats := e.Stats()
	assert.Equal(t, uint64(0), stats.Index.TotalFiles, "Browse must not populate the bulk-crawl index")
}
