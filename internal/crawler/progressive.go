package crawler

import (
	"container/list"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// NodeState is a directory node's lazy-load status for interactive
// browsing, per spec §4.5's progressive loading mode.
type NodeState int

const (
	NotLoaded NodeState = iota
	Loading
	Loaded
	Errored
)

// DefaultProgressiveWorkers is the small worker pool size progressive
// loading uses instead of the bulk crawl's full thread count.
const DefaultProgressiveWorkers = 2

// PreloadStrategy decides which not-loaded neighbours get preloaded next.
type PreloadStrategy int

const (
	PreloadBFS PreloadStrategy = iota // every not-loaded child of the just-loaded node (one sibling level)
	PreloadDFS                        // first child of the just-loaded node first
	PreloadFrequency                  // highest access-score neighbours first
)

// dirNode is one entry in the progressive loader's directory tree.
type dirNode struct {
	path     string
	parent   *dirNode
	state    NodeState
	children []*dirNode
	files    []*model.FileRecord
	err      error

	accessCount  uint64
	lastAccessed time.Time
}

// ProgressiveLoader lazily expands directories on demand for interactive
// browsing, as an alternative to the eager bulk crawl. Nodes are cached
// with LRU eviction; an evicted node reverts to NotLoaded.
type ProgressiveLoader struct {
	mu       sync.Mutex
	nodes    map[string]*list.Element // path -> LRU element wrapping *dirNode
	lru      *list.List
	capacity int

	rules *ExclusionRules
	log   *logging.Logger

	jobs chan *dirNode
	wg   sync.WaitGroup
}

// NewProgressiveLoader starts a ProgressiveLoader with workers background
// goroutines (DefaultProgressiveWorkers if <= 0) and an LRU node cache sized
// capacity entries.
func NewProgressiveLoader(rules *ExclusionRules, log *logging.Logger, capacity, workers int) *ProgressiveLoader {
	if log == nil {
		log = logging.Default()
	}
	if workers <= 0 {
		workers = DefaultProgressiveWorkers
	}
	if capacity <= 0 {
		capacity = 10000
	}
	pl := &ProgressiveLoader{
		nodes:    make(map[string]*list.Element),
		lru:      list.New(),
		capacity: capacity,
		rules:    rules,
		log:      log,
		jobs:     make(chan *dirNode, 1000),
	}
	for i := 0; i < workers; i++ {
		pl.wg.Add(1)
		go pl.worker()
	}
	return pl
}

func (pl *ProgressiveLoader) worker() {
	defer pl.wg.Done()
	for node := range pl.jobs {
		pl.loadNode(node)
	}
}

// Close stops the worker pool.
func (pl *ProgressiveLoader) Close() {
	close(pl.jobs)
	pl.wg.Wait()
}

// Load marks path's node Loading and enqueues it for expansion. Calling
// Load on an already-loaded node just touches its LRU recency and returns
// immediately.
func (pl *ProgressiveLoader) Load(path string) {
	pl.mu.Lock()
	if elem, ok := pl.nodes[path]; ok {
		pl.lru.MoveToFront(elem)
		node := elem.Value.(*dirNode)
		if node.state == Loaded || node.state == Loading {
			pl.mu.Unlock()
			return
		}
		node.state = Loading
		pl.mu.Unlock()
		pl.jobs <- node
		return
	}

	node := &dirNode{path: path, state: Loading}
	elem := pl.lru.PushFront(node)
	pl.nodes[path] = elem
	pl.evictIfNeededLocked()
	pl.mu.Unlock()

	pl.jobs <- node
}

func (pl *ProgressiveLoader) loadNode(node *dirNode) {
	entries, err := os.ReadDir(node.path)

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if err != nil {
		node.state = Errored
		node.err = err
		pl.log.Warn("progressive: failed to load %s: %v", node.path, err)
		return
	}

	node.children = node.children[:0]
	node.files = node.files[:0]
	for _, entry := range entries {
		path := filepath.Join(node.path, entry.Name())
		hidden := isHidden(path)
		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		system := isSystem(path, info)

		if entry.IsDir() {
			if pl.rules != nil && pl.rules.ShouldSkipDir(path, hidden, system) {
				continue
			}
			node.children = append(node.children, &dirNode{path: path, parent: node, state: NotLoaded})
			continue
		}
		if pl.rules != nil && pl.rules.ShouldSkipFile(path, hidden, system) {
			continue
		}
		normalized := model.NormalizeName(entry.Name())
		node.files = append(node.files, &model.FileRecord{
			FullPath:       path,
			FileName:       entry.Name(),
			NormalizedName: normalized,
			Size:           info.Size(),
			LastModified:   info.ModTime(),
			Kind:           kindOfInfo(info),
		})
	}
	node.state = Loaded
}

// State returns path's current node state, NotLoaded if the path has never
// been seen.
func (pl *ProgressiveLoader) State(path string) NodeState {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	elem, ok := pl.nodes[path]
	if !ok {
		return NotLoaded
	}
	return elem.Value.(*dirNode).state
}

// Listing returns the child directory paths and file records loaded under
// path, plus whether the node has reached the Loaded state yet.
func (pl *ProgressiveLoader) Listing(path string) (dirs []string, files []*model.FileRecord, loaded bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	elem, ok := pl.nodes[path]
	if !ok {
		return nil, nil, false
	}
	node := elem.Value.(*dirNode)
	if node.state != Loaded {
		return nil, nil, false
	}
	dirs = make([]string, len(node.children))
	for i, c := range node.children {
		dirs[i] = c.path
	}
	return dirs, node.files, true
}

// RecordAccess bumps path's access counter and last-accessed time, feeding
// the frequency-weighted preload strategy.
func (pl *ProgressiveLoader) RecordAccess(path string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	elem, ok := pl.nodes[path]
	if !ok {
		return
	}
	pl.lru.MoveToFront(elem)
	node := elem.Value.(*dirNode)
	node.accessCount++
	node.lastAccessed = time.Now()
}

// Preload schedules the next batch of neighbours of path to load in the
// background according to strategy.
func (pl *ProgressiveLoader) Preload(ctx context.Context, path string, strategy PreloadStrategy) {
	pl.mu.Lock()
	elem, ok := pl.nodes[path]
	if !ok {
		pl.mu.Unlock()
		return
	}
	node := elem.Value.(*dirNode)
	if node.state != Loaded {
		pl.mu.Unlock()
		return
	}
	candidates := pl.neighborsLocked(node, strategy)
	pl.mu.Unlock()

	for _, n := range candidates {
		select {
		case <-ctx.Done():
			return
		default:
			pl.Load(n.path)
		}
	}
}

// neighborsLocked must be called with pl.mu held.
func (pl *ProgressiveLoader) neighborsLocked(node *dirNode, strategy PreloadStrategy) []*dirNode {
	switch strategy {
	case PreloadDFS:
		if len(node.children) > 0 {
			return []*dirNode{node.children[0]}
		}
		return nil
	case PreloadFrequency:
		candidates := make([]*dirNode, 0, len(node.children))
		for _, c := range node.children {
			if c.state == NotLoaded {
				candidates = append(candidates, c)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].accessCount != candidates[j].accessCount {
				return candidates[i].accessCount > candidates[j].accessCount
			}
			return candidates[i].lastAccessed.After(candidates[j].lastAccessed)
		})
		return candidates
	default: // PreloadBFS
		candidates := make([]*dirNode, 0, len(node.children))
		for _, c := range node.children {
			if c.state == NotLoaded {
				candidates = append(candidates, c)
			}
		}
		return candidates
	}
}

// evictIfNeededLocked must be called with pl.mu held.
func (pl *ProgressiveLoader) evictIfNeededLocked() {
	for pl.lru.Len() > pl.capacity {
		back := pl.lru.Back()
		if back == nil {
			return
		}
		node := back.Value.(*dirNode)
		delete(pl.nodes, node.path)
		pl.lru.Remove(back)
	}
}
