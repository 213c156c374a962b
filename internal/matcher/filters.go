package matcher

import (
	"sort"

	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// idSet is a map-backed id set used to intersect the full id scan Search
// starts from with the declarative filters from spec §4.7's
// candidate-narrowing step 3.
type idSet map[model.ID]struct{}

func newIDSet(ids []model.ID) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet) intersect(ids []model.ID) idSet {
	if s == nil {
		return newIDSet(ids)
	}
	other := newIDSet(ids)
	out := make(idSet, min(len(s), len(other)))
	for id := range s {
		if _, ok := other[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s idSet) sorted() []model.ID {
	out := make([]model.ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// applyDeclarativeFilters narrows candidates by drive set against the
// index's drive bitmap index, and by size and modified-date range via the
// index's sorted range indexes, per spec §4.7 step 3. A nil/empty filter of
// a given kind is a no-op. File-kind and exclude-path filters are applied
// per record in passesRecordFilters.
func applyDeclarativeFilters(idx *memindex.Index, q model.SearchQuery, candidates idSet) idSet {
	if len(q.IncludeDrives) > 0 {
		var union []model.ID
		for drive := range q.IncludeDrives {
			union = append(union, idx.SearchDrive(drive)...)
		}
		candidates = candidates.intersect(union)
	}

	if q.SizeRange.Min != 0 || q.SizeRange.Max != 0 {
		hi := q.SizeRange.Max
		if hi == 0 {
			hi = 1<<63 - 1
		}
		candidates = candidates.intersect(idx.SearchSizeRange(q.SizeRange.Min, hi))
	}

	if !q.DateRange.From.IsZero() || !q.DateRange.To.IsZero() {
		lo := int64(0)
		if !q.DateRange.From.IsZero() {
			lo = q.DateRange.From.Unix()
		}
		hi := int64(1<<63 - 1)
		if !q.DateRange.To.IsZero() {
			hi = q.DateRange.To.Unix()
		}
		candidates = candidates.intersect(idx.SearchModifiedRange(lo, hi))
	}

	return candidates
}

// passesRecordFilters applies the per-record checks that aren't expressed
// as index-level set intersections: file-kind membership and exclude-path
// prefixes.
func passesRecordFilters(rec *model.FileRecord, q model.SearchQuery) bool {
	if len(q.FileTypes) > 0 {
		if _, ok := q.FileTypes[rec.Kind]; !ok {
			return false
		}
	}
	for _, prefix := range q.ExcludePaths {
		if len(rec.FullPath) >= len(prefix) && rec.FullPath[:len(prefix)] == prefix {
			return false
		}
	}
	return true
}
