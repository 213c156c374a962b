package core

import (
	"context"

	"github.com/AlestackOverglow/koe-no-search/internal/matcher"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// Search executes q against the memory index via the matcher, then warms
// the FileByID cache with every returned record and fires SearchComplete.
// A coarse pass through cache.Manager's own QueryResults TTL cache sits in
// front of the matcher's epoch-aware cache, so a repeated identical query
// within DefaultQueryCacheTTL never re-enters the matcher at all. It keys on
// the same (query, mode, filters) identity as the matcher's own cache, so a
// hit here is exactly as precise as a hit there — only staler, bounded by
// DefaultQueryCacheTTL rather than the index epoch.
func (e *Engine) Search(ctx context.Context, q model.SearchQuery) ([]model.SearchResult, error) {
	q.Normalize()
	if q.MaxResults <= 0 || q.MaxResults > e.cfg.MaxSearchResults && e.cfg.MaxSearchResults > 0 {
		q.MaxResults = e.cfg.MaxSearchResults
	}

	key := matcher.CacheKey(q)
	if e.cfg.EnableCache {
		if cached, ok := e.caches.QueryResults.Get(key); ok {
			e.fireSearchComplete(q, cached)
			return cached, nil
		}
	}

	results, err := e.match.Search(ctx, e.index, q)
	if err != nil {
		return nil, err
	}

	for i := range results {
		if results[i].Record != nil {
			e.caches.FileByID.Put(results[i].Record.ID, *results[i].Record)
		}
	}
	if e.cfg.EnableCache {
		e.caches.QueryResults.Put(key, results)
	}

	e.fireSearchComplete(q, results)
	e.checkEvictions()
	return results, nil
}

func (e *Engine) fireSearchComplete(q model.SearchQuery, results []model.SearchResult) {
	if cb := e.callback().SearchComplete; cb != nil {
		cb(q, results)
	}
}

// DriveIDForPath resolves path (expected to be a crawl root) to the
// DriveID the crawler assigned it, so callers (cmd/cli's `search
// --drives`) can translate a list of root paths into the DriveID set
// SearchQuery.IncludeDrives actually filters on.
func (e *Engine) DriveIDForPath(path string) (model.DriveID, bool) {
	rec, ok := e.index.GetByPath(path)
	if !ok {
		return 0, false
	}
	return rec.DriveID, true
}

// RecordAccess marks id as opened, feeding the access-frequency term of the
// relevance ranking for future searches.
func (e *Engine) RecordAccess(id model.ID) {
	e.index.RecordAccess(id)
	e.caches.FileByID.Remove(id) // stale AccessCount; next Search repopulates it
}

// Children returns the direct children of the record at parentPath, preferring the path-to-children
// cache before falling back to the memory index's hierarchy.
func (e *Engine) Children(parentPath string) []model.FileRecord {
	if ids, ok := e.caches.ChildrenByPath.Get(parentPath); ok {
		return e.resolve(ids)
	}
	rec, ok := e.index.GetByPath(parentPath)
	if !ok {
		return nil
	}
	ids := e.index.Children(rec.ID)
	e.caches.ChildrenByPath.Put(parentPath, ids)
	return e.resolve(ids)
}

func (e *Engine) resolve(ids []model.ID) []model.FileRecord {
	out := make([]model.FileRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := e.caches.FileByID.Get(id); ok {
			out = append(out, rec)
			continue
		}
		if rec, ok := e.index.GetByID(id); ok {
			e.caches.FileByID.Put(id, rec)
			out = append(out, rec)
		}
	}
	return out
}

func (e *Engine) checkEvictions() {
	cb := e.callback().CacheEviction
	if cb == nil {
		return
	}
	stats := e.caches.FileByID.Stats()
	total := stats.Evictions
	if qs := e.caches.QueryResults.Stats(); qs.Evictions > 0 {
		total += qs.Evictions
	}
	if cs := e.caches.ChildrenByPath.Stats(); cs.Evictions > 0 {
		total += cs.Evictions
	}

	e.mu.Lock()
	changed := total > e.lastEvict
	e.lastEvict = total
	e.mu.Unlock()

	if changed {
		cb(stats)
	}
}
