// Package persistence defines the narrow gateway contract the core depends
// on (spec §4.4/§6): batched upserts/deletes, transaction discipline, and a
// schema version. It is deliberately backend-agnostic — no specific SQL
// engine is named or required; see SPEC_FULL.md and DESIGN.md.
package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// DefaultBatchSize is the default group size for batched upserts, per spec
// §4.4. The crawler's batch processor flushes groups of the same size with
// Upsert outside any transaction; it does not call Commit per group.
const DefaultBatchSize = 1000

// Tx identifies an in-flight transaction started by BeginTx.
type Tx uuid.UUID

// Gateway is the persistence contract the core consumes. Implementations
// serialize their own writes; the core is responsible for batching.
type Gateway interface {
	Upsert(ctx context.Context, records []model.FileRecord) error
	Delete(ctx context.Context, ids []model.ID) error
	UpsertDrives(ctx context.Context, drives []model.DriveRecord) error

	BeginTx(ctx context.Context) (Tx, error)
	Commit(ctx context.Context, tx Tx) error
	Rollback(ctx context.Context, tx Tx) error

	LoadAllRecords(ctx context.Context) (RecordIterator, error)

	SchemaVersion(ctx context.Context) (int, error)
	Upgrade(ctx context.Context, from, to int) (bool, error)

	Close() error
}

// RecordIterator streams persisted records without materializing the whole
// table in memory.
type RecordIterator interface {
	Next() (model.FileRecord, bool)
	Err() error
	Close() error
}
