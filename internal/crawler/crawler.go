// Package crawler implements the parallel filesystem walker described in
// spec §4.5: a priority phase over the user's well-known directories
// followed by a bulk phase over every included drive, batching FileRecords
// into the memory index and the persistence gateway.
package crawler

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/AlestackOverglow/koe-no-search/internal/config"
	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
	"github.com/AlestackOverglow/koe-no-search/internal/persistence"
)

// priorityDirNames are the well-known user directories indexed before the
// bulk phase starts, per spec §4.5.
var priorityDirNames = []string{"Documents", "Desktop", "Downloads", "Pictures", "Videos", "Music"}

// Phase is the crawl lifecycle stage reported through Progress.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhasePriority
	PhaseBulk
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhasePriority:
		return "priority"
	case PhaseBulk:
		return "bulk"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}

// pendingDir is one directory queued for the next BFS level of a walk.
type pendingDir struct {
	path     string
	parentID model.ID
	drive    model.DriveID
}

// Crawler drives the directory walk described above. One Crawler is
// typically created per Engine and reused across a priority+bulk Run.
type Crawler struct {
	index   *memindex.Index
	gateway persistence.Gateway
	rules   *ExclusionRules
	log     *logging.Logger
	batch   *BatchProcessor

	threads int

	filesIndexed atomic.Uint64
	dirsIndexed  atomic.Uint64
	bytesIndexed atomic.Uint64
	errCount     atomic.Uint64
	currentPath  atomic.Pointer[string]
	phase        atomic.Int32

	driveCounter atomic.Uint32

	shouldStop atomic.Bool
	pauseMu    sync.Mutex
	pauseCond  *sync.Cond
	paused     bool
}

// New creates a Crawler wired to index and gateway. cfg.IndexingThreads <= 0
// selects max(2, runtime.NumCPU()).
func New(index *memindex.Index, gateway persistence.Gateway, cfg *config.Config, log *logging.Logger) *Crawler {
	if log == nil {
		log = logging.Default()
	}
	threads := cfg.IndexingThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
		if threads < 2 {
			threads = 2
		}
	}
	c := &Crawler{
		index:   index,
		gateway: gateway,
		rules:   NewExclusionRules(cfg.ExcludePaths, cfg.ExcludeExtensions, cfg.IndexHiddenFiles, cfg.IndexSystemFiles),
		log:     log,
		batch:   newBatchProcessor(index, gateway),
		threads: threads,
	}
	c.pauseCond = sync.NewCond(&c.pauseMu)
	empty := ""
	c.currentPath.Store(&empty)
	return c
}

// Run executes the priority phase over the caller's well-known user
// directories, then the bulk phase over includeDrives (every OS-reported
// root when includeDrives is empty), per spec §4.5 and the Open Question
// resolution documented in config.Default.
func (c *Crawler) Run(ctx context.Context, includeDrives []string) error {
	c.phase.Store(int32(PhasePriority))
	c.runPriorityPhase(ctx)

	if c.shouldStop.Load() || ctx.Err() != nil {
		c.batch.flush(ctx)
		c.phase.Store(int32(PhaseDone))
		return ctx.Err()
	}

	c.phase.Store(int32(PhaseBulk))
	roots := includeDrives
	if len(roots) == 0 {
		roots = defaultRoots()
	}
	for _, root := range roots {
		if c.shouldStop.Load() || ctx.Err() != nil {
			break
		}
		c.walkRoot(ctx, root)
	}

	c.batch.flush(ctx)
	c.phase.Store(int32(PhaseDone))
	return ctx.Err()
}

func (c *Crawler) runPriorityPhase(ctx context.Context) {
	home, err := os.UserHomeDir()
	if err != nil {
		c.log.Warn("crawler: could not resolve home directory, skipping priority phase: %v", err)
		return
	}
	p := pool.New().WithMaxGoroutines(len(priorityDirNames)).WithContext(ctx)
	for _, name := range priorityDirNames {
		dir := filepath.Join(home, name)
		p.Go(func(ctx context.Context) error {
			c.walkRoot(ctx, dir)
			return nil
		})
	}
	p.Wait()
}

// walkRoot indexes root itself, then drives a bounded-concurrency
// breadth-first walk over its subtree. Processing level-by-level (rather
// than recursive fan-out) keeps a fixed pool from deadlocking on itself
// while still bounding concurrency to c.threads, grounded on
// virtual-vectorfs's ConcurrentTraverser.TraverseDirectory.
func (c *Crawler) walkRoot(ctx context.Context, root string) {
	info, err := os.Lstat(root)
	if err != nil || !info.IsDir() {
		return // not present on this machine; not worth counting as an error
	}

	drive := model.DriveID(c.driveCounter.Add(1))
	rootID := c.index.NextID()
	c.batch.add(ctx, c.buildRecord(rootID, root, info, 0, drive, model.KindDirectory))
	c.dirsIndexed.Add(1)

	level := []pendingDir{{path: root, parentID: rootID, drive: drive}}
	for len(level) > 0 {
		if c.shouldStop.Load() || ctx.Err() != nil {
			return
		}

		var mu sync.Mutex
		var next []pendingDir
		p := pool.New().WithMaxGoroutines(c.threads).WithContext(ctx)
		for _, item := range level {
			item := item
			p.Go(func(ctx context.Context) error {
				c.waitIfPaused()
				if c.shouldStop.Load() {
					return nil
				}
				children := c.processDir(ctx, item.path, item.parentID, item.drive)
				if len(children) > 0 {
					mu.Lock()
					next = append(next, children...)
					mu.Unlock()
				}
				return nil
			})
		}
		p.Wait()
		level = next
	}
}

// processDir lists dirPath's entries, queues a FileRecord for each, and
// returns the subdirectories found so the caller can schedule the next BFS
// level.
func (c *Crawler) processDir(ctx context.Context, dirPath string, dirID model.ID, drive model.DriveID) []pendingDir {
	c.setCurrentPath(dirPath)

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		c.errCount.Add(1)
		c.log.Warn("crawler: failed to read directory %s: %v", dirPath, err)
		return nil
	}

	var next []pendingDir
	for _, entry := range entries {
		if c.shouldStop.Load() {
			return next
		}

		path := filepath.Join(dirPath, entry.Name())
		childInfo, err := entry.Info()
		if err != nil {
			c.errCount.Add(1)
			continue
		}

		hidden := isHidden(path)
		system := isSystem(path, childInfo)

		if entry.IsDir() {
			if c.rules.ShouldSkipDir(path, hidden, system) {
				continue
			}
			id := c.index.NextID()
			c.batch.add(ctx, c.buildRecord(id, path, childInfo, dirID, drive, model.KindDirectory))
			c.dirsIndexed.Add(1)
			next = append(next, pendingDir{path: path, parentID: id, drive: drive})
			continue
		}

		if c.rules.ShouldSkipFile(path, hidden, system) {
			continue
		}
		id := c.index.NextID()
		c.batch.add(ctx, c.buildRecord(id, path, childInfo, dirID, drive, kindOfInfo(childInfo)))
		c.filesIndexed.Add(1)
		c.bytesIndexed.Add(uint64(childInfo.Size()))
	}
	return next
}

func (c *Crawler) buildRecord(id model.ID, path string, info os.FileInfo, parentID model.ID, drive model.DriveID, kind model.Kind) *model.FileRecord {
	name := info.Name()
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	normalized := model.NormalizeName(name)

	var attrs model.Attribute
	if isHidden(path) {
		attrs |= model.AttrHidden
	}
	if info.Mode()&0o200 == 0 {
		attrs |= model.AttrReadonly
	}

	return &model.FileRecord{
		ID:             id,
		FullPath:       path,
		FileName:       name,
		Extension:      ext,
		NormalizedName: normalized,
		Tokens:         model.Tokenize(normalized, ext),
		Size:           info.Size(),
		LastModified:   info.ModTime(),
		LastAccessed:   info.ModTime(),
		Kind:           kind,
		Attributes:     attrs,
		ParentID:       parentID,
		DriveID:        drive,
	}
}

func (c *Crawler) setCurrentPath(path string) {
	c.currentPath.Store(&path)
}
