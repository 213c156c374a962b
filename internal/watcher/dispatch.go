package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
	"github.com/AlestackOverglow/koe-no-search/internal/persistence"
	"github.com/AlestackOverglow/koe-no-search/internal/queue"
)

// Counters is a snapshot of a Dispatcher's lifetime event tallies, per spec
// §4.6.
type Counters struct {
	EventsProcessed   uint64
	EventsFiltered    uint64
	ErrorsEncountered uint64
}

// Dispatcher drains a coalesced, filtered event stream and applies each
// surviving event to the memory index and persistence gateway.
type Dispatcher struct {
	in      *queue.Queue[Event]
	index   *memindex.Index
	gateway persistence.Gateway
	rules   *FilterRules
	log     *logging.Logger
	drive   model.DriveID

	processed atomic.Uint64
	filtered  atomic.Uint64
	errors    atomic.Uint64

	// OnApplied, if set, is called after each event is successfully applied
	// to the index. Used by core.Engine to drive the file_change callback
	// and invalidate the outer query cache without coupling this package to
	// either.
	OnApplied func(Event)
}

// NewDispatcher builds a Dispatcher. drive is the DriveID newly discovered
// paths are attributed to (watchers are registered per included root, which
// in turn corresponds to one drive).
func NewDispatcher(in *queue.Queue[Event], index *memindex.Index, gateway persistence.Gateway, rules *FilterRules, drive model.DriveID, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Default()
	}
	if rules == nil {
		rules = NewFilterRules(nil, nil, nil, 0, 0)
	}
	return &Dispatcher{in: in, index: index, gateway: gateway, rules: rules, drive: drive, log: log}
}

// Run drains in until in is shut down and drained, or until ctx is
// cancelled. Cancellation is checked between events only: a Run blocked in
// Pop on an empty queue returns once in is shut down.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, ok := d.in.Pop()
		if !ok {
			return // queue shut down and empty
		}

		if !d.rules.Allow(ev) {
			d.filtered.Add(1)
			continue
		}

		if err := d.apply(ctx, ev); err != nil {
			d.errors.Add(1)
			d.log.Warn("watcher: failed to apply %s event for %s: %v", ev.Kind, ev.Path, err)
			continue
		}
		d.processed.Add(1)
		if d.OnApplied != nil {
			d.OnApplied(ev)
		}
	}
}

// Counters returns a snapshot of the running tallies.
func (d *Dispatcher) Counters() Counters {
	return Counters{
		EventsProcessed:   d.processed.Load(),
		EventsFiltered:    d.filtered.Load(),
		ErrorsEncountered: d.errors.Load(),
	}
}

func (d *Dispatcher) apply(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventCreated, EventModified:
		return d.upsertPath(ctx, ev.Path)
	case EventDeleted:
		return d.deletePath(ctx, ev.Path)
	case EventRenamed, EventMoved:
		return d.movePath(ctx, ev.OldPath, ev.Path)
	default:
		return nil
	}
}

// upsertPath stats path and either updates the existing record (preserving
// its ID, parent and drive) or adds a new one, per spec §4.6.
func (d *Dispatcher) upsertPath(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d.deletePath(ctx, path) // modified-then-removed race
		}
		return err
	}

	if existing, ok := d.index.GetByPath(path); ok {
		rec := existing
		d.fillRecord(&rec, path, info)
		d.index.Update(&rec)
		return d.upsertGateway(ctx, rec)
	}

	parentID, drive := d.resolveParent(path)
	rec := model.FileRecord{ID: d.index.NextID(), ParentID: parentID, DriveID: drive}
	d.fillRecord(&rec, path, info)
	d.index.Add(&rec)
	return d.upsertGateway(ctx, rec)
}

func (d *Dispatcher) deletePath(ctx context.Context, path string) error {
	existing, ok := d.index.GetByPath(path)
	if !ok {
		return nil
	}
	d.index.RemoveSubtree(existing.ID)
	if d.gateway != nil {
		return d.gateway.Delete(ctx, []model.ID{existing.ID})
	}
	return nil
}

// movePath reuses the old record's ID when one existed, so the rest of the
// index (children's ParentID, cached results) stays consistent across the
// rename, per spec §4.6's "preserving id" requirement.
func (d *Dispatcher) movePath(ctx context.Context, oldPath, newPath string) error {
	info, err := os.Lstat(newPath)
	if err != nil {
		if os.IsNotExist(err) {
			return d.deletePath(ctx, oldPath)
		}
		return err
	}

	if existing, ok := d.index.GetByPath(oldPath); ok {
		rec := existing
		d.fillRecord(&rec, newPath, info)
		d.index.Update(&rec)
		return d.upsertGateway(ctx, rec)
	}

	parentID, drive := d.resolveParent(newPath)
	rec := model.FileRecord{ID: d.index.NextID(), ParentID: parentID, DriveID: drive}
	d.fillRecord(&rec, newPath, info)
	d.index.Add(&rec)
	return d.upsertGateway(ctx, rec)
}

func (d *Dispatcher) resolveParent(path string) (model.ID, model.DriveID) {
	if parent, ok := d.index.GetByPath(filepath.Dir(path)); ok {
		return parent.ID, parent.DriveID
	}
	return 0, d.drive
}

func (d *Dispatcher) fillRecord(rec *model.FileRecord, path string, info os.FileInfo) {
	name := info.Name()
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	normalized := model.NormalizeName(name)

	var attrs model.Attribute
	if strings.HasPrefix(name, ".") {
		attrs |= model.AttrHidden
	}
	if info.Mode()&0o200 == 0 {
		attrs |= model.AttrReadonly
	}

	kind := model.KindFile
	switch {
	case info.IsDir():
		kind = model.KindDirectory
	case info.Mode()&os.ModeSymlink != 0:
		kind = model.KindSymlink
	}

	rec.FullPath = path
	rec.FileName = name
	rec.Extension = ext
	rec.NormalizedName = normalized
	rec.Tokens = model.Tokenize(normalized, ext)
	rec.Size = info.Size()
	rec.LastModified = info.ModTime()
	rec.LastAccessed = info.ModTime()
	rec.Kind = kind
	rec.Attributes = attrs
}

func (d *Dispatcher) upsertGateway(ctx context.Context, rec model.FileRecord) error {
	if d.gateway == nil {
		return nil
	}
	return d.gateway.Upsert(ctx, []model.FileRecord{rec})
}
