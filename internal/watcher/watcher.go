package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/queue"
)

// DefaultQueueCapacity bounds the single MPMC queue raw, normalized events
// land on before coalescing, per spec §4.6.
const DefaultQueueCapacity = 10000

// Watcher wraps one fsnotify.Watcher, recursively registering every
// subdirectory of each watched root (fsnotify itself is not recursive), and
// normalizing raw OS events onto a shared queue. Grounded on
// virtual-vectorfs's FSNotifyWatcher.
type Watcher struct {
	fs  *fsnotify.Watcher
	raw *queue.Queue[Event]
	log *logging.Logger

	mu    sync.Mutex
	roots map[string]bool

	errorsEncountered atomic.Uint64
}

// New creates a Watcher. Call Run in its own goroutine to start draining
// fsnotify's channels.
func New(log *logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fs:    fsw,
		raw:   queue.New[Event](DefaultQueueCapacity),
		log:   log,
		roots: make(map[string]bool),
	}, nil
}

// Events exposes the raw normalized event queue for a Coalescer to drain.
func (w *Watcher) Events() *queue.Queue[Event] { return w.raw }

// AddRoot recursively registers root and every subdirectory beneath it.
func (w *Watcher) AddRoot(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.roots[root] {
		return nil
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort: skip unreadable subtrees rather than aborting
		}
		if info.IsDir() {
			if addErr := w.fs.Add(path); addErr != nil {
				w.log.Warn("watcher: failed to watch %s: %v", path, addErr)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk root %s: %w", root, err)
	}
	w.roots[root] = true
	return nil
}

// RemoveRoot stops watching root (its subdirectories' individual watches
// are left to fsnotify's own cleanup on deletion).
func (w *Watcher) RemoveRoot(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.roots, root)
	return w.fs.Remove(root)
}

// Run drains fsnotify's raw channels until ctx is cancelled, pushing
// normalized events onto the shared queue.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if norm := normalize(ev); norm != nil {
				w.raw.Push(*norm)
			}
			// a newly created directory needs its own watch registered so
			// its children are observed too.
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.fs.Add(ev.Name); err != nil {
						w.log.Warn("watcher: failed to watch new directory %s: %v", ev.Name, err)
					}
				}
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.errorsEncountered.Add(1)
			w.log.Warn("watcher: fsnotify error: %v", err)
		}
	}
}

// ErrorsEncountered is the count of I/O errors surfaced by fsnotify itself
// (as distinct from Dispatcher.Counters().ErrorsEncountered, which counts
// stat failures while building FileRecords).
func (w *Watcher) ErrorsEncountered() uint64 { return w.errorsEncountered.Load() }

// Close stops the underlying fsnotify watcher and shuts down the raw queue.
func (w *Watcher) Close() error {
	w.raw.Shutdown()
	return w.fs.Close()
}

func normalize(ev fsnotify.Event) *Event {
	var kind EventKind
	switch {
	case ev.Has(fsnotify.Create):
		kind = EventCreated
	case ev.Has(fsnotify.Write):
		kind = EventModified
	case ev.Has(fsnotify.Remove):
		kind = EventDeleted
	case ev.Has(fsnotify.Rename):
		kind = EventRenamed
	default:
		return nil // Chmod and anything else carries no indexable change
	}
	return &Event{Kind: kind, Path: ev.Name, Timestamp: time.Now()}
}
