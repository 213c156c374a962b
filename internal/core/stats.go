package core

import (
	"github.com/AlestackOverglow/koe-no-search/internal/cache"
	"github.com/AlestackOverglow/koe-no-search/internal/crawler"
	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
)

// Stats is the `stats` command's payload: index totals, cache hit ratios
// and the crawl's last-known progress snapshot.
type Stats struct {
	Index    memindex.Totals
	Progress crawler.Progress
	FileByID cache.Stats
	Queries  cache.Stats
	Children cache.Stats
	Memory   uint64 // estimated bytes held by the memory index
}

// Stats snapshots every component's counters without blocking live
// indexing or search traffic.
func (e *Engine) Stats() Stats {
	return Stats{
		Index:    e.index.Totals(),
		Progress: e.crawl.Progress(),
		FileByID: e.caches.FileByID.Stats(),
		Queries:  e.caches.QueryResults.Stats(),
		Children: e.caches.ChildrenByPath.Stats(),
		Memory:   e.index.EstimatedMemoryUsage(),
	}
}

// ValidateIntegrity runs the memory index's consistency checks, per spec
// §7's integrity_violation error kind.
func (e *Engine) ValidateIntegrity() []string {
	return e.index.ValidateIntegrity()
}
