package matcher

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/AlestackOverglow/koe-no-search/internal/cache"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// DefaultResultCacheSize and DefaultResultCacheTTL size the matcher's own
// query-result cache, per spec §4.7.
const (
	DefaultResultCacheSize = 2048
	DefaultResultCacheTTL  = 30 * time.Second
)

type cachedResults struct {
	epoch   uint64
	results []model.SearchResult
}

// resultCache maps (normalized_query, mode, filters_hash) to a cached
// SearchResults value, expiring entries by TTL and by index epoch: a hit
// whose epoch no longer matches the index's current epoch is treated as a
// miss, satisfying spec §4.7's "any index mutation invalidates" rule
// without needing to flush the whole cache on every write.
type resultCache struct {
	lru *cache.TTLLRU[string, cachedResults]
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	if size <= 0 {
		size = DefaultResultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultResultCacheTTL
	}
	return &resultCache{lru: cache.NewTTL[string, cachedResults](size, ttl)}
}

func (c *resultCache) get(key string, currentEpoch uint64) ([]model.SearchResult, bool) {
	entry, ok := c.lru.Get(key)
	if !ok || entry.epoch != currentEpoch {
		return nil, false
	}
	return entry.results, true
}

func (c *resultCache) put(key string, epoch uint64, results []model.SearchResult) {
	c.lru.Put(key, cachedResults{epoch: epoch, results: results})
}

// CacheKey derives the (normalized_query, mode, filters_hash) string a
// SearchQuery hashes to. Exported so core.Engine's outer query cache can
// key on the exact same identity as the matcher's own result cache.
func CacheKey(q model.SearchQuery) string {
	return cacheKey(q)
}

// cacheKey derives the (normalized_query, mode, filters_hash) string the
// result cache is keyed on.
func cacheKey(q model.SearchQuery) string {
	h := xxhash.New()
	fmt.Fprintf(h, "drives:%v|types:%v|exclude:%v|size:%d-%d|date:%d-%d|case:%t|thresh:%.4f|sort:%d|max:%d",
		q.IncludeDrives, q.FileTypes, q.ExcludePaths,
		q.SizeRange.Min, q.SizeRange.Max,
		q.DateRange.From.Unix(), q.DateRange.To.Unix(),
		q.CaseSensitive, q.FuzzyThreshold, q.SortOrder, q.MaxResults)
	filtersHash := h.Sum64()

	return model.NormalizeName(q.Text) + "\x00" + q.Mode.String() + "\x00" + strconv.FormatUint(filtersHash, 16)
}
