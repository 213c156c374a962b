// Package memindex implements the in-memory multi-index described in spec
// §4.3: a trie, bloom filter, inverted index, extension/size/date/drive
// indexes and the hierarchy maps, all mutated atomically under one
// reader-writer lock.
package memindex

import (
	"sync"
	"sync/atomic"

	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

const (
	falsePositiveRate  = 0.01
	bloomRebuildFactor = 4 // rebuild once deletions reach 4x the live count or 10000
)

// Index owns every FileRecord value and the substructures indexed over
// them. Readers take the shared lock; writers (Add/Update/Remove and their
// batch variants) take the exclusive lock and either commit every sub-map
// mutation or none of it.
type Index struct {
	mu sync.RWMutex

	records   map[model.ID]*model.FileRecord
	pathToID  map[string]model.ID
	nextID    uint64 // atomic; monotonically increasing, never reused

	trie      *Trie
	bloom     *BloomFilter
	inverted  *InvertedIndex
	extension *BitmapIndex[string]
	drive     *BitmapIndex[model.DriveID]
	size      *RangeIndex
	modified  *RangeIndex
	accessed  *RangeIndex
	hierarchy *Hierarchy

	totalFiles uint64
	totalDirs  uint64
	totalSize  uint64

	// epoch increments on every mutation; the matcher's result cache
	// compares the epoch it cached against against the current one to
	// decide whether a cached SearchResults value is still valid.
	epoch uint64

	deletesSinceRebuild uint64

	log *logging.Logger
}

// New creates an empty Index sized for an expected number of records.
func New(expectedRecords uint64, log *logging.Logger) *Index {
	if log == nil {
		log = logging.Default()
	}
	return &Index{
		records:   make(map[model.ID]*model.FileRecord),
		pathToID:  make(map[string]model.ID),
		trie:      NewTrie(),
		bloom:     NewBloomFilter(expectedRecords, falsePositiveRate),
		inverted:  NewInvertedIndex(),
		extension: NewBitmapIndex[string](),
		drive:     NewBitmapIndex[model.DriveID](),
		size:      NewRangeIndex(),
		modified:  NewRangeIndex(),
		accessed:  NewRangeIndex(),
		hierarchy: NewHierarchy(),
		log:       log,
	}
}

// NextID allocates a fresh, never-reused id for a record about to be
// inserted for the first time.
func (idx *Index) NextID() model.ID {
	return model.ID(atomic.AddUint64(&idx.nextID, 1))
}

// Epoch returns the current mutation epoch.
func (idx *Index) Epoch() uint64 {
	return atomic.LoadUint64(&idx.epoch)
}

func (idx *Index) bumpEpoch() {
	atomic.AddUint64(&idx.epoch, 1)
}

// FastForward bumps the id counter so a subsequent NextID never collides
// with a record restored from persistence with id >= next.
func (idx *Index) FastForward(next model.ID) {
	for {
		cur := atomic.LoadUint64(&idx.nextID)
		if uint64(next) <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&idx.nextID, cur, uint64(next)) {
			return
		}
	}
}

// Add inserts a brand-new record. The caller must have assigned rec.ID via
// NextID. Add takes the writer lock.
func (idx *Index) Add(rec *model.FileRecord) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.addLocked(rec)
	idx.bumpEpoch()
}

// AddBatch inserts many records under a single lock acquisition, per spec
// §4.3's batching guidance.
func (idx *Index) AddBatch(recs []*model.FileRecord) {
	if len(recs) == 0 {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, rec := range recs {
		idx.addLocked(rec)
	}
	idx.bumpEpoch()
}

func (idx *Index) addLocked(rec *model.FileRecord) {
	idx.records[rec.ID] = rec
	idx.pathToID[rec.FullPath] = rec.ID

	idx.trie.Insert(rec.NormalizedName, rec.ID)
	idx.bloom.Add(rec.NormalizedName)
	idx.inverted.UpdateDocument(rec.ID, rec.Tokens)
	// Roaring bitmaps are 32-bit: ids above 2^32-1 alias here despite rec.ID
	// being a 64-bit monotonic counter.
	if rec.Extension != "" {
		idx.extension.Add(rec.Extension, uint32(rec.ID))
	}
	idx.drive.Add(rec.DriveID, uint32(rec.ID))
	idx.size.Add(rec.Size, uint32(rec.ID))
	idx.modified.Add(rec.LastModified.Unix(), uint32(rec.ID))
	idx.accessed.Add(rec.LastAccessed.Unix(), uint32(rec.ID))
	idx.hierarchy.Link(rec.ID, rec.ParentID)

	if rec.Kind == model.KindDirectory {
		idx.totalDirs++
	} else {
		idx.totalFiles++
	}
	idx.totalSize += uint64(rec.Size)
}

// Update replaces an existing record's indexed attributes atomically:
// stale token/extension/size/date entries are removed before the new ones
// are added.
func (idx *Index) Update(rec *model.FileRecord) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	old, ok := idx.records[rec.ID]
	if !ok {
		idx.addLocked(rec)
		idx.bumpEpoch()
		return
	}
	idx.removeLocked(old)
	idx.addLocked(rec)
	idx.bumpEpoch()
}

// Remove deletes id and all of its indexed attributes.
func (idx *Index) Remove(id model.ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	rec, ok := idx.records[id]
	if !ok {
		return
	}
	idx.removeLocked(rec)
	idx.deletesSinceRebuild++
	idx.maybeRebuildBloomLocked()
	idx.bumpEpoch()
}

// RemoveBatch deletes many ids under a single lock acquisition.
func (idx *Index) RemoveBatch(ids []model.ID) {
	if len(ids) == 0 {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range ids {
		if rec, ok := idx.records[id]; ok {
			idx.removeLocked(rec)
			idx.deletesSinceRebuild++
		}
	}
	idx.maybeRebuildBloomLocked()
	idx.bumpEpoch()
}

// RemoveSubtree deletes id and every descendant tracked in the hierarchy,
// matching the watcher's "deleted" handling in spec §4.6 (a deleted
// directory takes its OS-confirmed-gone descendants with it).
func (idx *Index) RemoveSubtree(id model.ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, victim := range idx.hierarchy.Descendants(id) {
		if rec, ok := idx.records[victim]; ok {
			idx.removeLocked(rec)
			idx.deletesSinceRebuild++
		}
	}
	idx.maybeRebuildBloomLocked()
	idx.bumpEpoch()
}

func (idx *Index) removeLocked(rec *model.FileRecord) {
	delete(idx.records, rec.ID)
	delete(idx.pathToID, rec.FullPath)

	idx.trie.Remove(rec.NormalizedName, rec.ID)
	idx.inverted.Remove(rec.ID)
	if rec.Extension != "" {
		idx.extension.Remove(rec.Extension, uint32(rec.ID))
	}
	idx.drive.Remove(rec.DriveID, uint32(rec.ID))
	idx.size.Remove(rec.Size, uint32(rec.ID))
	idx.modified.Remove(rec.LastModified.Unix(), uint32(rec.ID))
	idx.accessed.Remove(rec.LastAccessed.Unix(), uint32(rec.ID))
	idx.hierarchy.Unlink(rec.ID)

	if rec.Kind == model.KindDirectory {
		idx.totalDirs--
	} else {
		idx.totalFiles--
	}
	idx.totalSize -= uint64(rec.Size)
}

// maybeRebuildBloomLocked rebuilds the bloom filter from the live record
// set once enough deletions have accumulated that its false-positive rate
// has likely drifted upward (the filter itself never removes bits).
func (idx *Index) maybeRebuildBloomLocked() {
	if idx.deletesSinceRebuild < uint64(len(idx.records))*bloomRebuildFactor && idx.deletesSinceRebuild < 10000 {
		return
	}
	names := make([]string, 0, len(idx.records))
	for _, rec := range idx.records {
		names = append(names, rec.NormalizedName)
	}
	idx.bloom.Rebuild(names, falsePositiveRate)
	idx.deletesSinceRebuild = 0
	idx.log.Debug("rebuilt bloom filter after accumulated deletions (live=%d)", len(names))
}

// --- Readers (shared lock) ---

// GetByID returns a copy of id's record.
func (idx *Index) GetByID(id model.ID) (model.FileRecord, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rec, ok := idx.records[id]
	if !ok {
		return model.FileRecord{}, false
	}
	return *rec, true
}

// GetByPath returns a copy of the record at fullPath.
func (idx *Index) GetByPath(fullPath string) (model.FileRecord, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	id, ok := idx.pathToID[fullPath]
	if !ok {
		return model.FileRecord{}, false
	}
	rec := idx.records[id]
	return *rec, true
}

// MightContainName reports whether normalizedName could be present,
// per the bloom filter's one-sided guarantee.
func (idx *Index) MightContainName(normalizedName string) bool {
	return idx.bloom.MightContain(normalizedName)
}

// PrefixSearch returns every id whose normalized name starts with prefix.
func (idx *Index) PrefixSearch(prefix string) []model.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return toIDs(idx.trie.PrefixSearch(prefix))
}

// SearchTokens intersects or unions the posting lists for tokens.
func (idx *Index) SearchTokens(tokens []string, mode CombineMode) []model.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return toIDs(idx.inverted.SearchMultiple(tokens, mode))
}

// SearchExtension returns every id with the given (lowercase) extension.
func (idx *Index) SearchExtension(ext string) []model.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return toIDs(idx.extension.Get(ext))
}

// SearchDrive returns every id on the given drive.
func (idx *Index) SearchDrive(drive model.DriveID) []model.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return toIDs(idx.drive.Get(drive))
}

// SearchSizeRange returns every id with size in [lo, hi].
func (idx *Index) SearchSizeRange(lo, hi int64) []model.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return toIDs(idx.size.Range(lo, hi))
}

// SearchModifiedRange returns every id with LastModified (unix seconds) in
// [lo, hi].
func (idx *Index) SearchModifiedRange(lo, hi int64) []model.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return toIDs(idx.modified.Range(lo, hi))
}

// SearchAccessedRange returns every id with LastAccessed (unix seconds) in
// [lo, hi].
func (idx *Index) SearchAccessedRange(lo, hi int64) []model.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return toIDs(idx.accessed.Range(lo, hi))
}

// AllIDs returns every live record id. The matcher scans this full set for
// every query mode.
func (idx *Index) AllIDs() []model.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]model.ID, 0, len(idx.records))
	for id := range idx.records {
		ids = append(ids, id)
	}
	return ids
}

// Children returns parentID's direct children ids.
func (idx *Index) Children(parentID model.ID) []model.ID {
	return idx.hierarchy.Children(parentID)
}

// MaxAccessCount returns the highest AccessCount across all live records,
// used by the matcher's access_score normalization.
func (idx *Index) MaxAccessCount() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var max uint64
	for _, rec := range idx.records {
		if rec.AccessCount > max {
			max = rec.AccessCount
		}
	}
	return max
}

// RecordAccess increments a record's access counter, used when a search
// result is opened.
func (idx *Index) RecordAccess(id model.ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if rec, ok := idx.records[id]; ok {
		rec.AccessCount++
	}
}

// Totals is a snapshot of the aggregate counters from spec §3 invariant 8.
type Totals struct {
	TotalFiles uint64
	TotalDirs  uint64
	TotalSize  uint64
}

// Totals returns the current aggregate counters.
func (idx *Index) Totals() Totals {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Totals{TotalFiles: idx.totalFiles, TotalDirs: idx.totalDirs, TotalSize: idx.totalSize}
}

// EstimatedMemoryUsage sums entry counts across sub-maps weighted by a
// per-entry constant, per spec §4.3.
func (idx *Index) EstimatedMemoryUsage() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	const (
		perRecord  = 256 // FileRecord + its strings, rough estimate
		perPosting = 8   // one roaring-bitmap membership slot
	)

	usage := uint64(len(idx.records)) * perRecord
	usage += uint64(idx.trie.Len()) * perPosting
	usage += uint64(len(idx.pathToID)) * perPosting
	return usage
}

// ValidateIntegrity checks the spec §3.1-§3.8 invariants from each live
// record outward and returns the list of violations found. It never
// mutates. It does not look for stray entries (an inverted-index or
// extension posting for an id whose record no longer carries that token or
// extension), and it does not check the size/date index key ordering of
// §3.7.
func (idx *Index) ValidateIntegrity() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var violations []string

	// §3.1 pathToId bijection over live records.
	seen := make(map[model.ID]struct{}, len(idx.pathToID))
	for path, id := range idx.pathToID {
		rec, ok := idx.records[id]
		if !ok || rec.FullPath != path {
			violations = append(violations, "pathToID entry does not point back to a matching live record")
			continue
		}
		if _, dup := seen[id]; dup {
			violations = append(violations, "pathToID is not injective: two paths map to the same id")
		}
		seen[id] = struct{}{}
	}
	if len(seen) != len(idx.records) {
		violations = append(violations, "pathToID does not cover every live record")
	}

	// §3.2/§3.3/§3.4/§3.5/§3.6 per-record membership checks.
	for id, rec := range idx.records {
		if _, ok := idx.pathToID[rec.FullPath]; !ok {
			violations = append(violations, "live record missing from pathToID")
		}
		if !containsID(idx.drive.Get(rec.DriveID), id) {
			violations = append(violations, "live record missing from driveToFiles")
		}
		if !idx.bloom.MightContain(rec.NormalizedName) {
			violations = append(violations, "bloom filter reports a live record's name as absent")
		}
		for _, tok := range rec.Tokens {
			if !containsID(idx.inverted.Postings(tok), id) {
				violations = append(violations, "token missing id in inverted index")
			}
		}
		if rec.Extension != "" && !containsID(idx.extension.Get(rec.Extension), id) {
			violations = append(violations, "extension index missing id")
		}
	}

	violations = append(violations, idx.hierarchy.Validate()...)

	// §3.8 aggregate totals.
	var files, dirs uint64
	var size uint64
	for _, rec := range idx.records {
		if rec.Kind == model.KindDirectory {
			dirs++
		} else {
			files++
		}
		size += uint64(rec.Size)
	}
	if files != idx.totalFiles || dirs != idx.totalDirs || size != idx.totalSize {
		violations = append(violations, "aggregate totals do not match the sums over live records")
	}

	return violations
}

func containsID(bm interface{ Contains(uint32) bool }, id model.ID) bool {
	return bm.Contains(uint32(id))
}

func toIDs(bm interface{ ToArray() []uint32 }) []model.ID {
	arr := bm.ToArray()
	out := make([]model.ID, len(arr))
	for i, v := range arr {
		out[i] = model.ID(v)
	}
	return out
}
