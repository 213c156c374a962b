package core

import (
	"context"

	"github.com/AlestackOverglow/koe-no-search/internal/queue"
	"github.com/AlestackOverglow/koe-no-search/internal/watcher"
)

// Watch starts an fsnotify-backed Watcher per root, a shared Coalescer, and
// a Dispatcher that applies surviving events to the memory index and
// persistence gateway, per spec §4.6. It returns once every root is
// registered; the event pipeline itself runs in background goroutines
// until StopWatch is called or ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, roots []string, rules *watcher.FilterRules) error {
	e.mu.Lock()
	if e.watchCancel != nil {
		e.mu.Unlock()
		return nil // already watching
	}
	watchCtx, cancel := context.WithCancel(ctx)
	e.watchCancel = cancel
	e.mu.Unlock()

	w, err := watcher.New(e.log)
	if err != nil {
		cancel()
		return err
	}
	for _, root := range roots {
		if err := w.AddRoot(root); err != nil {
			e.log.Warn("core: failed to watch root %s: %v", root, err)
		}
	}

	dispatchQueue := queue.New[watcher.Event](watcher.DefaultQueueCapacity)
	coalescer := watcher.NewCoalescer(w.Events(), dispatchQueue, watcher.DefaultCoalesceWindow)

	dispatcher := watcher.NewDispatcher(dispatchQueue, e.index, e.gateway, rules, 0, e.log)
	dispatcher.OnApplied = func(ev watcher.Event) {
		e.caches.QueryResults.Clear()
		e.caches.ChildrenByPath.Clear()
		if cb := e.callback().FileChange; cb != nil {
			cb(ev)
		}
	}

	e.mu.Lock()
	e.watchers = append(e.watchers, w)
	e.mu.Unlock()

	e.watchWG.Add(3)
	go func() { defer e.watchWG.Done(); w.Run(watchCtx) }()
	go func() { defer e.watchWG.Done(); coalescer.Run(watchCtx) }()
	go func() { defer e.watchWG.Done(); dispatcher.Run(watchCtx) }()
	// Dispatcher.Run can sit in Pop on an empty queue, which ctx alone does
	// not wake; shutting the queue down on cancellation releases it.
	go func() { <-watchCtx.Done(); dispatchQueue.Shutdown() }()

	return nil
}

// StopWatch cancels any running watch pipeline and blocks until its
// goroutines return. Safe to call multiple times.
func (e *Engine) StopWatch() {
	e.mu.Lock()
	cancel := e.watchCancel
	e.watchCancel = nil
	watchers := e.watchers
	e.watchers = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	for _, w := range watchers {
		_ = w.Close()
	}
	e.watchWG.Wait()
}
