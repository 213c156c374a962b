package cache

import (
	"time"

	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// Split describes how the total entry budget divides across the three
// composed LRUs. The default matches spec §4.2: 50/30/20 by entry count.
type Split struct {
	FileByID       float64
	QueryToResults float64
	PathToChildren float64
}

// DefaultSplit is the 50/30/20 split named in spec §4.2.
var DefaultSplit = Split{FileByID: 0.5, QueryToResults: 0.3, PathToChildren: 0.2}

// Manager composes the three caches internal/core's Engine reads through:
// FileByID (record lookups), QueryResults (TTL'd search results), and
// ChildrenByPath (directory listings).
type Manager struct {
	FileByID       *LRU[model.ID, model.FileRecord]
	QueryResults   *TTLLRU[string, []model.SearchResult]
	ChildrenByPath *LRU[string, []model.ID]
}

// NewManager builds a Manager from a total entry budget, a split ratio, and
// the TTL applied to cached query results (spec default: a few seconds to a
// few minutes depending on how aggressively the index mutates).
func NewManager(totalEntries int, split Split, resultTTL time.Duration) *Manager {
	if totalEntries <= 0 {
		totalEntries = 10000
	}
	fileCap := int(float64(totalEntries) * split.FileByID)
	queryCap := int(float64(totalEntries) * split.QueryToResults)
	childrenCap := int(float64(totalEntries) * split.PathToChildren)

	return &Manager{
		FileByID:       New[model.ID, model.FileRecord](fileCap),
		QueryResults:   NewTTL[string, []model.SearchResult](queryCap, resultTTL),
		ChildrenByPath: New[string, []model.ID](childrenCap),
	}
}

// InvalidateAll clears every composed cache. Callers do this on an index
// epoch bump that is too broad to invalidate selectively (e.g. a rebuild).
func (m *Manager) InvalidateAll() {
	m.FileByID.Clear()
	m.QueryResults.Clear()
	m.ChildrenByPath.Clear()
}
