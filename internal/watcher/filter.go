package watcher

import (
	"os"
	"path/filepath"
	"strings"
)

// FilterRules narrows the coalesced event stream before it reaches the
// index, mirroring the crawler's exclusion rules (spec §4.6) but evaluated
// per-event rather than per-directory-walk.
type FilterRules struct {
	excludePaths      []string
	excludeExtensions map[string]bool
	allowedKinds      map[EventKind]bool // nil means allow everything
	minSize           int64
	maxSize           int64 // 0 means unbounded
}

// NewFilterRules builds a FilterRules. allowedKinds == nil allows every
// EventKind. maxSize <= 0 means unbounded.
func NewFilterRules(excludePaths, excludeExtensions []string, allowedKinds []EventKind, minSize, maxSize int64) *FilterRules {
	extSet := make(map[string]bool, len(excludeExtensions))
	for _, e := range excludeExtensions {
		extSet[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	var kindSet map[EventKind]bool
	if len(allowedKinds) > 0 {
		kindSet = make(map[EventKind]bool, len(allowedKinds))
		for _, k := range allowedKinds {
			kindSet[k] = true
		}
	}

	return &FilterRules{
		excludePaths:      excludePaths,
		excludeExtensions: extSet,
		allowedKinds:      kindSet,
		minSize:           minSize,
		maxSize:           maxSize,
	}
}

// Allow reports whether ev should be dispatched to the index.
func (f *FilterRules) Allow(ev Event) bool {
	if f.allowedKinds != nil && !f.allowedKinds[ev.Kind] {
		return false
	}

	path := ev.Path
	for _, prefix := range f.excludePaths {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if f.excludeExtensions[ext] {
		return false
	}

	if f.minSize <= 0 && f.maxSize <= 0 {
		return true
	}

	// a size range is only meaningful for events whose target still
	// exists; deletions always pass the size gate untouched.
	if ev.Kind == EventDeleted {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return true // can't evaluate the range; don't block on a stat race
	}
	if f.minSize > 0 && info.Size() < f.minSize {
		return false
	}
	if f.maxSize > 0 && info.Size() > f.maxSize {
		return false
	}
	return true
}
