package core

import (
	"context"

	"github.com/AlestackOverglow/koe-no-search/internal/crawler"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// DefaultProgressiveCacheSize bounds how many directory nodes the lazy
// browser keeps loaded at once before evicting the least recently used
// back to NotLoaded.
const DefaultProgressiveCacheSize = 10000

// Browse lazily exposes a single directory tree for interactive
// navigation (spec §4.5's progressive loading mode), as an alternative to
// waiting on a full bulk crawl. It shares this Engine's exclusion rules but
// keeps its own node cache and worker pool, independent of Index/Search.
type Browse struct {
	loader *crawler.ProgressiveLoader
}

// Browse starts a progressive loader using this Engine's configured
// exclusion rules. Callers must Close it when done browsing.
func (e *Engine) Browse() *Browse {
	rules := crawler.NewExclusionRules(e.cfg.ExcludePaths, e.cfg.ExcludeExtensions, e.cfg.IndexHiddenFiles, e.cfg.IndexSystemFiles)
	return &Browse{loader: crawler.NewProgressiveLoader(rules, e.log, DefaultProgressiveCacheSize, crawler.DefaultProgressiveWorkers)}
}

// Expand loads path's immediate children, or touches its LRU recency if
// already loaded.
func (b *Browse) Expand(path string) {
	b.loader.Load(path)
	b.loader.RecordAccess(path)
}

// Preload schedules path's not-yet-loaded neighbours to load in the
// background per strategy. path must already be Loaded; call after State
// reports Loaded, not immediately after Expand.
func (b *Browse) Preload(ctx context.Context, path string, strategy crawler.PreloadStrategy) {
	b.loader.Preload(ctx, path, strategy)
}

// State reports a path's current lazy-load state.
func (b *Browse) State(path string) crawler.NodeState {
	return b.loader.State(path)
}

// Listing returns the child directories and files loaded under path, and
// whether the node has finished loading.
func (b *Browse) Listing(path string) (dirs []string, files []*model.FileRecord, loaded bool) {
	return b.loader.Listing(path)
}

// Close stops the loader's worker pool.
func (b *Browse) Close() {
	b.loader.Close()
}
