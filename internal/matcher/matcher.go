// Package matcher implements the exact/fuzzy/wildcard/regex search engine
// described in spec §4.7: a full scan of the memory index's live ids
// narrowed by its drive bitmap and size/date range indexes, mode-specific
// scoring and highlighting, a
// weighted relevance ranking, optional parallel partitioning, and a
// result cache keyed on the query and its filters.
package matcher

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// DefaultParallelThreshold is the candidate-set size above which Search
// partitions scoring across a worker pool instead of running serially.
const DefaultParallelThreshold = 2000

// Matcher dispatches a SearchQuery to the mode-specific scorer, narrows
// candidates against idx's sub-indexes, ranks, and caches results.
type Matcher struct {
	rankWeights  RankWeights
	fuzzyWeights FuzzyWeights
	regex        *regexCache
	results      *resultCache
	log          *logging.Logger

	// Parallel enables the bounded worker-pool scoring path for candidate
	// sets of at least DefaultParallelThreshold ids. Threads <= 0 selects
	// DefaultParallelThreshold/500 workers; fewer than 2 is raised to 2.
	Parallel bool
	Threads  int
}

// Option configures a Matcher at construction time.
type Option func(*Matcher)

// WithRankWeights overrides the default relevance blend.
func WithRankWeights(w RankWeights) Option { return func(m *Matcher) { m.rankWeights = w } }

// WithFuzzyWeights overrides the default fuzzy similarity blend.
func WithFuzzyWeights(w FuzzyWeights) Option { return func(m *Matcher) { m.fuzzyWeights = w } }

// WithParallel enables partitioned scoring with the given worker count.
func WithParallel(threads int) Option {
	return func(m *Matcher) {
		m.Parallel = true
		m.Threads = threads
	}
}

// New builds a Matcher with its own regex-compile cache and result cache.
func New(log *logging.Logger, opts ...Option) *Matcher {
	if log == nil {
		log = logging.Default()
	}
	m := &Matcher{
		rankWeights:  DefaultRankWeights,
		fuzzyWeights: DefaultFuzzyWeights,
		regex:        newRegexCache(DefaultRegexCacheSize),
		results:      newResultCache(DefaultResultCacheSize, DefaultResultCacheTTL),
		log:          log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Search executes q against idx, returning ranked results. It does not
// observe ctx cancellation: both the serial and the parallel path score
// every candidate before returning.
func (m *Matcher) Search(ctx context.Context, idx *memindex.Index, q model.SearchQuery) ([]model.SearchResult, error) {
	q.Normalize()

	key := cacheKey(q)
	epoch := idx.Epoch()
	if cached, ok := m.results.get(key, epoch); ok {
		return cached, nil
	}

	// Every mode scans the full id set before scoring: exact mode's score
	// (exactScorer) is a substring match, which neither the prefix trie nor
	// the bloom filter can narrow without dropping real matches (a name
	// bloom can't rule out the query being a substring of a longer indexed
	// name), and fuzzy/wildcard/regex were never narrowable by either to
	// begin with. See DESIGN.md.
	candidates := applyDeclarativeFilters(idx, q, newIDSet(idx.AllIDs())).sorted()

	scorer, err := m.scorerFor(q)
	if err != nil {
		return nil, err
	}

	maxAccess := idx.MaxAccessCount()
	now := time.Now()

	var results []model.SearchResult
	if m.Parallel && len(candidates) >= DefaultParallelThreshold {
		results = m.scoreParallel(ctx, idx, q, candidates, scorer, maxAccess, now)
	} else {
		results = m.scoreSerial(idx, q, candidates, scorer, maxAccess, now)
	}

	sortResults(results, q.SortOrder)
	if q.MaxResults > 0 && len(results) > q.MaxResults {
		results = results[:q.MaxResults]
	}

	m.results.put(key, epoch, results)
	return results, nil
}

// scorer computes a mode-specific (score, highlights) pair for one record,
// returning ok=false if the record should be dropped entirely (below
// threshold, no match).
type scorer func(rec *model.FileRecord) (score float64, highlights []span, ok bool)

func (m *Matcher) scorerFor(q model.SearchQuery) (scorer, error) {
	switch q.Mode {
	case model.ModeExact:
		return m.exactScorer(q), nil
	case model.ModeWildcard:
		return m.wildcardScorer(q), nil
	case model.ModeRegex:
		return m.regexScorer(q)
	case model.ModeFuzzy:
		return m.fuzzyScorer(q), nil
	default:
		return m.exactScorer(q), nil
	}
}

func (m *Matcher) exactScorer(q model.SearchQuery) scorer {
	normalizedQuery := model.NormalizeName(q.Text)
	rawQuery := q.Text
	return func(rec *model.FileRecord) (float64, []span, bool) {
		haystack := rec.NormalizedName
		needle := normalizedQuery
		if q.CaseSensitive {
			haystack = rec.FileName
			needle = rawQuery
		}
		if needle == "" {
			return 0, nil, false
		}
		idx := strings.Index(haystack, needle)
		if idx < 0 {
			return 0, nil, false
		}
		sp := []span{{offset: idx, length: len(needle)}}
		switch {
		case idx == 0:
			return 1.0, sp, true
		case isWholeWordMatch(haystack, idx, len(needle)):
			return 0.9, sp, true
		default:
			return 0.8, sp, true
		}
	}
}

func isWholeWordMatch(haystack string, offset, length int) bool {
	before := offset == 0 || !isWordChar(haystack[offset-1])
	after := offset+length >= len(haystack) || !isWordChar(haystack[offset+length])
	return before && after
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func (m *Matcher) wildcardScorer(q model.SearchQuery) scorer {
	pattern := strings.ToLower(q.Text)
	return func(rec *model.FileRecord) (float64, []span, bool) {
		name := strings.ToLower(rec.FileName)
		if wildcardMatch(pattern, name) {
			return 1.0, wildcardHighlight(pattern, name), true
		}
		if wildcardSegmentMatch(pattern, strings.ToLower(rec.FullPath)) {
			return 0.6, nil, true
		}
		return 0, nil, false
	}
}

func (m *Matcher) regexScorer(q model.SearchQuery) (scorer, error) {
	re, err := m.regex.compile(q.Text)
	if err != nil {
		return nil, err
	}
	return func(rec *model.FileRecord) (float64, []span, bool) {
		if loc := re.FindStringIndex(rec.FileName); loc != nil {
			if loc[0] == 0 && loc[1] == len(rec.FileName) {
				return 1.0, []span{{offset: loc[0], length: loc[1] - loc[0]}}, true
			}
			return 0.5, []span{{offset: loc[0], length: loc[1] - loc[0]}}, true
		}
		return 0, nil, false
	}, nil
}

func (m *Matcher) fuzzyScorer(q model.SearchQuery) scorer {
	normalizedQuery := model.NormalizeName(q.Text)
	threshold := q.FuzzyThreshold
	weights := m.fuzzyWeights
	return func(rec *model.FileRecord) (float64, []span, bool) {
		score := fuzzyScore(normalizedQuery, rec.NormalizedName, weights)
		if score < threshold {
			return 0, nil, false
		}
		return score, jaroWinklerMatchSpans(normalizedQuery, rec.NormalizedName), true
	}
}

func toHighlights(spans []span) []model.HighlightSpan {
	if len(spans) == 0 {
		return nil
	}
	out := make([]model.HighlightSpan, len(spans))
	for i, s := range spans {
		out[i] = model.HighlightSpan{Offset: s.offset, Length: s.length}
	}
	return out
}

func (m *Matcher) scoreSerial(idx *memindex.Index, q model.SearchQuery, candidates []model.ID, score scorer, maxAccess uint64, now time.Time) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(candidates))
	for _, id := range candidates {
		rec, ok := idx.GetByID(id)
		if !ok || !passesRecordFilters(&rec, q) {
			continue
		}
		nameScore, spans, matched := score(&rec)
		if !matched {
			continue
		}
		results = append(results, model.SearchResult{
			Record:     &rec,
			Score:      relevance(m.rankWeights, &rec, q.Text, nameScore, maxAccess, now),
			Highlights: toHighlights(spans),
		})
	}
	return results
}

// scoreParallel partitions candidates across a bounded worker pool and
// merges partial result slices, per spec §4.7's "parallel search is
// optional" clause. The serial and parallel paths must agree modulo tie
// ordering, which sortResults' id tie-break guarantees.
func (m *Matcher) scoreParallel(ctx context.Context, idx *memindex.Index, q model.SearchQuery, candidates []model.ID, score scorer, maxAccess uint64, now time.Time) []model.SearchResult {
	threads := m.Threads
	if threads <= 0 {
		threads = DefaultParallelThreshold / 500
	}
	if threads < 2 {
		threads = 2
	}

	chunkSize := (len(candidates) + threads - 1) / threads
	if chunkSize == 0 {
		chunkSize = len(candidates)
	}

	var mu sync.Mutex
	var all []model.SearchResult

	p := pool.New().WithMaxGoroutines(threads).WithContext(ctx)
	for start := 0; start < len(candidates); start += chunkSize {
		end := start + chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		chunk := candidates[start:end]
		p.Go(func(ctx context.Context) error {
			partial := m.scoreSerial(idx, q, chunk, score, maxAccess, now)
			if len(partial) > 0 {
				mu.Lock()
				all = append(all, partial...)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = p.Wait()
	return all
}

func sortResults(results []model.SearchResult, order model.SortOrder) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch order {
		case model.SortName:
			if a.Record.NormalizedName != b.Record.NormalizedName {
				return a.Record.NormalizedName < b.Record.NormalizedName
			}
		case model.SortSize:
			if a.Record.Size != b.Record.Size {
				return a.Record.Size > b.Record.Size
			}
		case model.SortModified:
			if !a.Record.LastModified.Equal(b.Record.LastModified) {
				return a.Record.LastModified.After(b.Record.LastModified)
			}
		case model.SortAccessed:
			if !a.Record.LastAccessed.Equal(b.Record.LastAccessed) {
				return a.Record.LastAccessed.After(b.Record.LastAccessed)
			}
		default: // SortRelevance
			if a.Score != b.Score {
				return a.Score > b.Score
			}
		}
		if a.Record.NormalizedName != b.Record.NormalizedName {
			return a.Record.NormalizedName < b.Record.NormalizedName
		}
		return a.Record.ID < b.Record.ID
	})
}
