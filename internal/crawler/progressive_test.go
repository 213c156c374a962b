package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlestackOverglow/koe-no-search/internal/logging"
)

func waitForLoaded(t *testing.T, pl *ProgressiveLoader, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pl.State(path) == Loaded {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to load", path)
}

func TestProgressiveLoaderLoadsChildrenAndFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644))

	pl := NewProgressiveLoader(nil, logging.NewDiscard(), 100, 2)
	defer pl.Close()

	assert.Equal(t, NotLoaded, pl.State(root))
	pl.Load(root)
	waitForLoaded(t, pl, root)

	dirs, files, loaded := pl.Listing(root)
	require.True(t, loaded)
	require.Len(t, dirs, 1)
	assert.Equal(t, filepath.Join(root, "sub"), dirs[0])
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].FileName)
}

func TestProgressiveLoaderEvictsBeyondCapacity(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 3; i++ {
		require.NoError(t, os.Mkdir(filepath.Join(root, string(rune('a'+i))), 0755))
	}

	pl := NewProgressiveLoader(nil, logging.NewDiscard(), 2, 2)
	defer pl.Close()

	paths := []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "b"),
		filepath.Join(root, "c"),
	}
	for _, p := range paths {
		pl.Load(p)
		waitForLoaded(t, pl, p)
	}

	assert.Equal(t, NotLoaded, pl.State(paths[0]), "oldest node must be evicted once capacity is exceeded")
}

func TestProgressiveLoaderPreloadBFSLoadsSiblings(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub1"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub2"), 0755))

	pl := NewProgressiveLoader(nil, logging.NewDiscard(), 100, 2)
	defer pl.Close()

	pl.Load(root)
	waitForLoaded(t, pl, root)

	pl.Preload(context.Background(), root, PreloadBFS)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pl.State(filepath.Join(root, "sub1")) == Loaded && pl.State(filepath.Join(root, "sub2")) == Loaded {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, Loaded, pl.State(filepath.Join(root, "sub1")))
	assert.Equal(t, Loaded, pl.State(filepath.Join(root, "sub2")))
}
