package matcher

import (
	"regexp"

	"github.com/AlestackOverglow/koe-no-search/internal/cache"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// DefaultRegexCacheSize bounds the compiled-pattern LRU from spec §4.7.
const DefaultRegexCacheSize = 128

// regexCache compiles and caches *regexp.Regexp by pattern text, reusing
// the generic LRU built for the cache layer (spec §4.2) rather than a
// bespoke map+mutex.
type regexCache struct {
	lru *cache.LRU[string, *regexp.Regexp]
}

func newRegexCache(size int) *regexCache {
	if size <= 0 {
		size = DefaultRegexCacheSize
	}
	return &regexCache{lru: cache.New[string, *regexp.Regexp](size)}
}

// compile returns the cached or freshly compiled *regexp.Regexp for
// pattern, or a model.ErrInvalidQuery CoreError if it doesn't parse.
func (r *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := r.lru.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidQuery, "matcher.compileRegex", err)
	}
	r.lru.Put(pattern, re)
	return re, nil
}
