package core

import (
	"context"

	"github.com/AlestackOverglow/koe-no-search/internal/crawler"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// ApplyFileOp performs a copy/move/delete (spec-supplemented file
// operations) on the record at id, as resolved against the live index
// rather than a raw filesystem path, so a caller can only act on files
// this Engine actually knows about. A delete or successful move drops the
// record from the index and gateway immediately, since the watcher would
// otherwise only notice the change on its next filesystem event.
func (e *Engine) ApplyFileOp(ctx context.Context, id model.ID, opts crawler.FileOpOptions) error {
	rec, ok := e.index.GetByID(id)
	if !ok {
		return model.NewError(model.ErrInvalidQuery, "core.ApplyFileOp", nil)
	}

	if err := crawler.Apply(rec.FullPath, opts); err != nil {
		return model.NewError(model.ErrIO, "core.ApplyFileOp", err)
	}

	switch opts.Operation {
	case crawler.OpDelete, crawler.OpMove:
		e.index.Remove(id)
		if err := e.gateway.Delete(ctx, []model.ID{id}); err != nil {
			e.log.Warn("core: gateway delete for %s failed after file op: %v", rec.FullPath, err)
		}
	}
	e.caches.InvalidateAll()
	return nil
}
