package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/google/uuid"

	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

const currentSchemaVersion = 1

type snapshot struct {
	SchemaVersion int
	Records       map[model.ID]model.FileRecord
	Drives        map[model.DriveID]model.DriveRecord
}

// MemoryGateway is the reference Gateway implementation: the authority
// during a session is the in-memory map (per spec §4.4's failure policy),
// and Commit checkpoints it to a gob-encoded snapshot file that
// LoadAllRecords later memory-maps back in, grounded on the teacher's use
// of mmap-go for large-file reads.
type MemoryGateway struct {
	mu sync.Mutex

	committed map[model.ID]model.FileRecord
	drives    map[model.DriveID]model.DriveRecord

	staging    map[model.ID]*model.FileRecord // nil value == pending delete
	activeTx   *Tx
	txSnapshot map[model.ID]model.FileRecord // committed state at BeginTx, for Rollback

	snapshotPath string
	log          *logging.Logger
}

// NewMemoryGateway creates a gateway that checkpoints to snapshotPath.
func NewMemoryGateway(snapshotPath string, log *logging.Logger) *MemoryGateway {
	if log == nil {
		log = logging.Default()
	}
	return &MemoryGateway{
		committed:    make(map[model.ID]model.FileRecord),
		drives:       make(map[model.DriveID]model.DriveRecord),
		snapshotPath: snapshotPath,
		log:          log,
	}
}

func (g *MemoryGateway) target() map[model.ID]*model.FileRecord {
	if g.activeTx != nil {
		return g.staging
	}
	return nil
}

// Upsert writes records, staging them if a transaction is open or applying
// them directly otherwise.
func (g *MemoryGateway) Upsert(_ context.Context, records []model.FileRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if staging := g.target(); staging != nil {
		for i := range records {
			r := records[i]
			staging[r.ID] = &r
		}
		return nil
	}
	for _, r := range records {
		g.committed[r.ID] = r
	}
	return nil
}

// Delete removes ids, staging the deletion if a transaction is open.
func (g *MemoryGateway) Delete(_ context.Context, ids []model.ID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if staging := g.target(); staging != nil {
		for _, id := range ids {
			staging[id] = nil
		}
		return nil
	}
	for _, id := range ids {
		delete(g.committed, id)
	}
	return nil
}

// UpsertDrives writes drive records directly; drives are not part of the
// file transaction log.
func (g *MemoryGateway) UpsertDrives(_ context.Context, drives []model.DriveRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range drives {
		g.drives[d.ID] = d
	}
	return nil
}

// BeginTx opens a staging area over the committed state. Only one
// transaction may be open at a time, matching the gateway serializing its
// own writes.
func (g *MemoryGateway) BeginTx(_ context.Context) (Tx, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.activeTx != nil {
		return Tx{}, model.NewError(model.ErrPersistence, "BeginTx", fmt.Errorf("a transaction is already open"))
	}

	tx := Tx(uuid.New())
	g.activeTx = &tx
	g.staging = make(map[model.ID]*model.FileRecord)
	g.txSnapshot = make(map[model.ID]model.FileRecord, len(g.committed))
	for id, rec := range g.committed {
		g.txSnapshot[id] = rec
	}
	return tx, nil
}

// Commit applies the staged writes to the committed map and checkpoints to
// disk.
func (g *MemoryGateway) Commit(_ context.Context, tx Tx) error {
	g.mu.Lock()
	if g.activeTx == nil || *g.activeTx != tx {
		g.mu.Unlock()
		return model.NewError(model.ErrPersistence, "Commit", fmt.Errorf("unknown or stale transaction"))
	}
	for id, rec := range g.staging {
		if rec == nil {
			delete(g.committed, id)
			continue
		}
		g.committed[id] = *rec
	}
	g.activeTx = nil
	g.staging = nil
	g.txSnapshot = nil
	snap := g.snapshotLocked()
	g.mu.Unlock()

	if g.snapshotPath == "" {
		return nil
	}
	if err := writeSnapshot(g.snapshotPath, snap); err != nil {
		g.log.Warn("persistence: failed to checkpoint snapshot: %v", err)
		return model.NewError(model.ErrPersistence, "Commit", err)
	}
	return nil
}

// Rollback discards the staged writes, restoring the pre-BeginTx state.
func (g *MemoryGateway) Rollback(_ context.Context, tx Tx) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.activeTx == nil || *g.activeTx != tx {
		return model.NewError(model.ErrPersistence, "Rollback", fmt.Errorf("unknown or stale transaction"))
	}
	g.committed = g.txSnapshot
	g.activeTx = nil
	g.staging = nil
	g.txSnapshot = nil
	return nil
}

func (g *MemoryGateway) snapshotLocked() snapshot {
	s := snapshot{
		SchemaVersion: currentSchemaVersion,
		Records:       make(map[model.ID]model.FileRecord, len(g.committed)),
		Drives:        make(map[model.DriveID]model.DriveRecord, len(g.drives)),
	}
	for k, v := range g.committed {
		s.Records[k] = v
	}
	for k, v := range g.drives {
		s.Drives[k] = v
	}
	return s
}

// LoadAllRecords returns an iterator over the persisted records, preferring
// the memory-mapped on-disk snapshot if one exists so a cold start does not
// have to page in the whole file through buffered reads.
func (g *MemoryGateway) LoadAllRecords(_ context.Context) (RecordIterator, error) {
	if g.snapshotPath != "" {
		if _, err := os.Stat(g.snapshotPath); err == nil {
			snap, err := readSnapshotMmap(g.snapshotPath)
			if err != nil {
				return nil, model.NewError(model.ErrPersistence, "LoadAllRecords", err)
			}
			return newSliceIterator(snap.Records), nil
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return newSliceIterator(g.committed), nil
}

// SchemaVersion returns the schema version the last checkpoint was written
// with, or the current version if nothing has been persisted yet.
func (g *MemoryGateway) SchemaVersion(_ context.Context) (int, error) {
	if g.snapshotPath != "" {
		if snap, err := readSnapshotMmap(g.snapshotPath); err == nil {
			return snap.SchemaVersion, nil
		}
	}
	return currentSchemaVersion, nil
}

// Upgrade is a no-op for the single-version reference gateway; real
// backends would migrate the on-disk schema here.
func (g *MemoryGateway) Upgrade(_ context.Context, from, to int) (bool, error) {
	return from == to, nil
}

// Close flushes a final checkpoint.
func (g *MemoryGateway) Close() error {
	g.mu.Lock()
	snap := g.snapshotLocked()
	g.mu.Unlock()
	if g.snapshotPath == "" {
		return nil
	}
	return writeSnapshot(g.snapshotPath, snap)
}

func writeSnapshot(path string, snap snapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

func readSnapshotMmap(path string) (snapshot, error) {
	var snap snapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return snap, fmt.Errorf("stat snapshot: %w", err)
	}
	if fi.Size() == 0 {
		return snap, nil
	}

	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return snap, fmt.Errorf("mmap snapshot: %w", err)
	}
	defer mapped.Unmap()

	if err := gob.NewDecoder(bytes.NewReader(mapped)).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

type sliceIterator struct {
	records []model.FileRecord
	pos     int
}

func newSliceIterator(m map[model.ID]model.FileRecord) *sliceIterator {
	recs := make([]model.FileRecord, 0, len(m))
	for _, r := range m {
		recs = append(recs, r)
	}
	return &sliceIterator{records: recs}
}

func (it *sliceIterator) Next() (model.FileRecord, bool) {
	if it.pos >= len(it.records) {
		return model.FileRecord{}, false
	}
	r := it.records[it.pos]
	it.pos++
	return r, true
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }
