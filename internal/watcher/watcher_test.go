package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
	"github.com/AlestackOverglow/koe-no-search/internal/queue"
)

func TestCoalescerCollapsesRepeatedModifiedEvents(t *testing.T) {
	in := queue.New[Event](100)
	out := queue.New[Event](100)
	c := NewCoalescer(in, out, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	defer cancel()

	in.Push(Event{Kind: EventModified, Path: "/a.txt", Timestamp: time.Now()})
	in.Push(Event{Kind: EventModified, Path: "/a.txt", Timestamp: time.Now()})
	in.Push(Event{Kind: EventModified, Path: "/a.txt", Timestamp: time.Now()})

	ev, ok := out.PopTimeout(500 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, EventModified, ev.Kind)
	assert.Equal(t, "/a.txt", ev.Path)

	_, ok = out.PopTimeout(100 * time.Millisecond)
	assert.False(t, ok, "repeated events for the same path should collapse to one")
}

func TestCoalescerCancelsCreateThenDelete(t *testing.T) {
	in := queue.New[Event](100)
	out := queue.New[Event](100)
	c := NewCoalescer(in, out, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	defer cancel()

	in.Push(Event{Kind: EventCreated, Path: "/tmp.file", Timestamp: time.Now()})
	in.Push(Event{Kind: EventDeleted, Path: "/tmp.file", Timestamp: time.Now()})

	_, ok := out.PopTimeout(300 * time.Millisecond)
	assert.False(t, ok, "create immediately followed by delete should net to nothing")
}

func TestCoalescerPairsRenameAndCreateIntoMoved(t *testing.T) {
	in := queue.New[Event](100)
	out := queue.New[Event](100)
	c := NewCoalescer(in, out, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	defer cancel()

	in.Push(Event{Kind: EventRenamed, Path: "/old.txt", Timestamp: time.Now()})
	in.Push(Event{Kind: EventCreated, Path: "/new.txt", Timestamp: time.Now()})

	ev, ok := out.PopTimeout(500 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, EventMoved, ev.Kind)
	assert.Equal(t, "/old.txt", ev.OldPath)
	assert.Equal(t, "/new.txt", ev.Path)
}

func TestCoalescerTreatsUnpairedRenameAsDelete(t *testing.T) {
	in := queue.New[Event](100)
	out := queue.New[Event](100)
	c := NewCoalescer(in, out, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	defer cancel()

	in.Push(Event{Kind: EventRenamed, Path: "/gone.txt", Timestamp: time.Now()})

	ev, ok := out.PopTimeout(500 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, EventDeleted, ev.Kind)
	assert.Equal(t, "/gone.txt", ev.Path)
}

func TestFilterRulesExcludesPathsAndExtensions(t *testing.T) {
	f := NewFilterRules([]string{"/cache/"}, []string{".tmp"}, nil, 0, 0)
	assert.False(t, f.Allow(Event{Kind: EventCreated, Path: "/cache/item"}))
	assert.False(t, f.Allow(Event{Kind: EventCreated, Path: "/data/file.tmp"}))
	assert.True(t, f.Allow(Event{Kind: EventCreated, Path: "/data/file.txt"}))
}

func TestFilterRulesAllowedKindsRestrictsToAllowlist(t *testing.T) {
	f := NewFilterRules(nil, nil, []EventKind{EventDeleted}, 0, 0)
	assert.False(t, f.Allow(Event{Kind: EventCreated, Path: "/a"}))
	assert.True(t, f.Allow(Event{Kind: EventDeleted, Path: "/a"}))
}

func TestDispatcherAddsUpdatesAndDeletesThroughLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0644))

	idx := memindex.New(10, logging.NewDiscard())
	in := queue.New[Event](10)
	d := NewDispatcher(in, idx, nil, nil, 1, logging.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	in.Push(Event{Kind: EventCreated, Path: path, Timestamp: time.Now()})
	require.Eventually(t, func() bool {
		_, ok := idx.GetByPath(path)
		return ok
	}, time.Second, 5*time.Millisecond)

	rec, ok := idx.GetByPath(path)
	require.True(t, ok)
	firstID := rec.ID

	require.NoError(t, os.WriteFile(path, []byte("hello there"), 0644))
	in.Push(Event{Kind: EventModified, Path: path, Timestamp: time.Now()})
	require.Eventually(t, func() bool {
		rec, ok := idx.GetByPath(path)
		return ok && rec.Size == int64(len("hello there"))
	}, time.Second, 5*time.Millisecond)

	rec, ok = idx.GetByPath(path)
	require.True(t, ok)
	assert.Equal(t, firstID, rec.ID, "update should preserve the existing record's ID")

	require.NoError(t, os.Remove(path))
	in.Push(Event{Kind: EventDeleted, Path: path, Timestamp: time.Now()})
	require.Eventually(t, func() bool {
		_, ok := idx.GetByPath(path)
		return !ok
	}, time.Second, 5*time.Millisecond)

	in.Shutdown()
	cancel()

	counters := d.Counters()
	assert.GreaterOrEqual(t, counters.EventsProcessed, uint64(3))
}

func TestDispatcherMoveReusesExistingID(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "before.txt")
	newPath := filepath.Join(dir, "after.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("data"), 0644))

	idx := memindex.New(10, logging.NewDiscard())
	in := queue.New[Event](10)
	d := NewDispatcher(in, idx, nil, nil, 1, logging.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	in.Push(Event{Kind: EventCreated, Path: oldPath, Timestamp: time.Now()})
	require.Eventually(t, func() bool {
		_, ok := idx.GetByPath(oldPath)
		return ok
	}, time.Second, 5*time.Millisecond)
	before, _ := idx.GetByPath(oldPath)

	require.NoError(t, os.Rename(oldPath, newPath))
	in.Push(Event{Kind: EventMoved, OldPath: oldPath, Path: newPath, Timestamp: time.Now()})
	require.Eventually(t, func() bool {
		_, ok := idx.GetByPath(newPath)
		return ok
	}, time.Second, 5*time.Millisecond)

	after, ok := idx.GetByPath(newPath)
	require.True(t, ok)
	assert.Equal(t, before.ID, after.ID)

	_, stillOld := idx.GetByPath(oldPath)
	assert.False(t, stillOld)
}
