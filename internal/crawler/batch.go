package crawler

import (
	"context"
	"sync"

	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
	"github.com/AlestackOverglow/koe-no-search/internal/persistence"
)

// batchSize is the number of FileRecords a BatchProcessor accumulates
// before flushing, per spec §4.5.
const batchSize = 1000

// BatchProcessor accumulates FileRecords from many concurrent walker
// goroutines and flushes them into the memory index and the persistence
// gateway together, so the index only takes its writer lock once per batch
// instead of once per file.
type BatchProcessor struct {
	mu      sync.Mutex
	records []*model.FileRecord
	index   *memindex.Index
	gateway persistence.Gateway
}

func newBatchProcessor(index *memindex.Index, gateway persistence.Gateway) *BatchProcessor {
	return &BatchProcessor{
		records: make([]*model.FileRecord, 0, batchSize),
		index:   index,
		gateway: gateway,
	}
}

// add appends rec to the pending batch, flushing if it has reached
// batchSize.
func (bp *BatchProcessor) add(ctx context.Context, rec *model.FileRecord) {
	bp.mu.Lock()
	bp.records = append(bp.records, rec)
	full := len(bp.records) >= batchSize
	bp.mu.Unlock()
	if full {
		bp.flush(ctx)
	}
}

// flush commits whatever is pending. Safe to call with an empty batch.
func (bp *BatchProcessor) flush(ctx context.Context) {
	bp.mu.Lock()
	if len(bp.records) == 0 {
		bp.mu.Unlock()
		return
	}
	pending := bp.records
	bp.records = make([]*model.FileRecord, 0, batchSize)
	bp.mu.Unlock()

	bp.index.AddBatch(pending)

	if bp.gateway == nil {
		return
	}
	flat := make([]model.FileRecord, len(pending))
	for i, r := range pending {
		flat[i] = *r
	}
	if err := bp.gateway.Upsert(ctx, flat); err != nil {
		// The memory index already has these records and remains the
		// session's authority per spec §4.4. The failed batch is not retried
		// or re-sent, so the gateway misses these writes.
		return
	}
}
