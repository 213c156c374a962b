package crawler

import (
	"path/filepath"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
)

// hardExcludedDirs is the hard-coded system-root exclusion list from
// spec §4.5's per-directory rule.
var hardExcludedDirs = map[string]bool{
	"Windows": true, "Program Files": true, "Program Files (x86)": true,
	"ProgramData": true, "System Volume Information": true, "$Recycle.Bin": true,
}

// ExclusionRules encodes the per-directory and per-file rules of spec §4.5:
// hidden/system attribute policy, the hard-coded system roots, a
// user-configured exclude-path pattern set (gitignore-style, grounded on
// virtual-vectorfs's use of go-gitignore), and an excluded-extensions set.
type ExclusionRules struct {
	IndexHidden bool
	IndexSystem bool

	excludeExtensions map[string]bool

	mu      sync.RWMutex
	matcher *ignore.GitIgnore
}

// NewExclusionRules compiles excludePatterns (gitignore syntax: "/tmp/",
// "*.cache", etc.) and the excluded-extensions set.
func NewExclusionRules(excludePatterns, excludeExtensions []string, indexHidden, indexSystem bool) *ExclusionRules {
	r := &ExclusionRules{
		IndexHidden:       indexHidden,
		IndexSystem:       indexSystem,
		excludeExtensions: make(map[string]bool, len(excludeExtensions)),
	}
	for _, ext := range excludeExtensions {
		r.excludeExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	if len(excludePatterns) > 0 {
		r.matcher = ignore.CompileIgnoreLines(excludePatterns...)
	}
	return r
}

// ShouldSkipDir reports whether dir should be pruned from the crawl.
// A dir whose base name is "." or ".." is always skipped; otherwise the
// attribute/name/pattern rules decide.
func (r *ExclusionRules) ShouldSkipDir(dir string, hidden, system bool) bool {
	base := filepath.Base(dir)
	if base == "." || base == ".." {
		return true
	}
	if !r.IndexHidden && hidden {
		return true
	}
	if !r.IndexSystem && system {
		return true
	}
	if hardExcludedDirs[base] {
		return true
	}
	return r.matchesUserPattern(dir)
}

// ShouldSkipFile reports whether a file should be dropped from the index
// per its extension or attribute policy.
func (r *ExclusionRules) ShouldSkipFile(path string, hidden, system bool) bool {
	if !r.IndexHidden && hidden {
		return true
	}
	if !r.IndexSystem && system {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if r.excludeExtensions[ext] {
		return true
	}
	return r.matchesUserPattern(path)
}

func (r *ExclusionRules) matchesUserPattern(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.matcher == nil {
		return false
	}
	return r.matcher.MatchesPath(path)
}
