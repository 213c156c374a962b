package watcher

import (
	"context"
	"time"

	"github.com/AlestackOverglow/koe-no-search/internal/queue"
)

// DefaultCoalesceWindow is the spec §4.6 burst-collapsing window: events for
// the same path arriving within this window of each other collapse to one.
const DefaultCoalesceWindow = 100 * time.Millisecond

// pendingEvent tracks one path's most recent state within the open window.
type pendingEvent struct {
	event    Event
	deadline time.Time
	// rename holds an unresolved fsnotify Rename (old path only) waiting to
	// be paired with a subsequent Create on a different path within the
	// window. fsnotify never reports the new path on the Rename event
	// itself, so pairing is the only way to recover a true move.
	rename bool
}

// Coalescer collapses bursts of raw per-path events into the final set that
// should actually reach the index, per spec §4.6:
//   - repeated events for the same path within the window collapse to the
//     last one
//   - a create immediately following a delete for the same path cancels out
//     (and vice versa)
//   - a rename paired with a subsequent create within the window becomes a
//     single Moved event; an unpaired rename is treated as a delete, since
//     the old path is confirmed gone with no observed destination
type Coalescer struct {
	window time.Duration
	in     *queue.Queue[Event]
	out    *queue.Queue[Event]

	pending map[string]*pendingEvent
	// pendingRenames holds renames not yet matched to a path, checked
	// against every incoming Create regardless of its own path key.
	pendingRenames []*pendingEvent
}

// NewCoalescer builds a Coalescer reading from in and writing settled events
// to out. window <= 0 selects DefaultCoalesceWindow.
func NewCoalescer(in, out *queue.Queue[Event], window time.Duration) *Coalescer {
	if window <= 0 {
		window = DefaultCoalesceWindow
	}
	return &Coalescer{
		window:  window,
		in:      in,
		out:     out,
		pending: make(map[string]*pendingEvent),
	}
}

// Run drains in, coalescing until ctx is cancelled or in is shut down and
// drained. It also periodically flushes entries whose window has expired
// even when no new event arrives to trigger the flush.
func (c *Coalescer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.flushExpired(time.Now())
		default:
		}

		ev, ok := c.in.PopTimeout(c.window)
		if !ok {
			if c.in.IsShutdown() && c.in.Len() == 0 {
				c.flushExpired(time.Now().Add(c.window))
				return
			}
			continue
		}
		c.ingest(ev)
		c.flushExpired(time.Now())
	}
}

func (c *Coalescer) ingest(ev Event) {
	now := time.Now()

	if ev.Kind == EventCreated {
		// try to pair with an unresolved rename first: a create on a
		// different path arriving inside the window completes a move.
		for i, pr := range c.pendingRenames {
			if pr.event.Path != ev.Path && now.Before(pr.deadline) {
				moved := Event{Kind: EventMoved, OldPath: pr.event.Path, Path: ev.Path, Timestamp: now}
				c.pendingRenames = append(c.pendingRenames[:i], c.pendingRenames[i+1:]...)
				delete(c.pending, pr.event.Path)
				c.out.Push(moved)
				return
			}
		}

		if existing, ok := c.pending[ev.Path]; ok && existing.event.Kind == EventDeleted {
			// create immediately following a delete for the same path:
			// net no-op, drop both.
			delete(c.pending, ev.Path)
			return
		}
	}

	if ev.Kind == EventDeleted {
		if existing, ok := c.pending[ev.Path]; ok && existing.event.Kind == EventCreated {
			delete(c.pending, ev.Path)
			return
		}
	}

	pe := &pendingEvent{event: ev, deadline: now.Add(c.window)}
	c.pending[ev.Path] = pe
	if ev.Kind == EventRenamed {
		pe.rename = true
		c.pendingRenames = append(c.pendingRenames, pe)
	}
}

// flushExpired emits any pending event whose window has elapsed as of now.
func (c *Coalescer) flushExpired(now time.Time) {
	for path, pe := range c.pending {
		if now.Before(pe.deadline) {
			continue
		}
		if pe.rename {
			// no matching create arrived: the old path is gone with no
			// observed destination, so treat it as a deletion.
			c.out.Push(Event{Kind: EventDeleted, Path: pe.event.Path, Timestamp: now})
			c.removePendingRename(pe)
		} else {
			c.out.Push(pe.event)
		}
		delete(c.pending, path)
	}
}

func (c *Coalescer) removePendingRename(target *pendingEvent) {
	for i, pr := range c.pendingRenames {
		if pr == target {
			c.pendingRenames = append(c.pendingRenames[:i], c.pendingRenames[i+1:]...)
			return
		}
	}
}
