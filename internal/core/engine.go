// Package core wires the crawler, watcher, memory index, persistence
// gateway, cache manager and matcher into the single Engine described in
// spec §2's data-flow diagram (Crawler+Watcher -> Memory Index -> Matcher,
// with Persistence and Cache read alongside), and exposes the public API
// surface named in spec §6: Index, Search, Watch, Stats, Shutdown.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AlestackOverglow/koe-no-search/internal/cache"
	"github.com/AlestackOverglow/koe-no-search/internal/config"
	"github.com/AlestackOverglow/koe-no-search/internal/crawler"
	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/matcher"
	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
	"github.com/AlestackOverglow/koe-no-search/internal/persistence"
	"github.com/AlestackOverglow/koe-no-search/internal/watcher"
)

// DefaultExpectedRecords sizes the memory index's bloom filter and maps
// before a crawl has reported how many files actually exist.
const DefaultExpectedRecords = 200000

// DefaultQueryCacheTTL bounds how long the outer, coarse-grained query
// cache (cache.Manager.QueryResults) may serve a stale answer after an
// index mutation that this Engine failed to observe directly (e.g. a
// gateway-side change). The matcher's own result cache, by contrast, is
// invalidated precisely on every index epoch bump.
const DefaultQueryCacheTTL = 30 * time.Second

// bytesPerCacheEntry is the rough memory cost assumed per cached entry when
// converting cfg.CacheSizeMB into an entry-count budget for cache.Manager.
const bytesPerCacheEntry = 4 * 1024

// Callbacks is the spec §6 API surface. Every field is optional; Engine
// checks for nil before calling.
type Callbacks struct {
	Progress         func(crawler.Progress)
	IndexingComplete func(success bool, message string)
	FileChange       func(watcher.Event)
	SearchComplete   func(query model.SearchQuery, results []model.SearchResult)
	CacheEviction    func(cache.Stats)
}

// Engine composes every component spec §2 names and is the single entry
// point cmd/cli drives.
type Engine struct {
	cfg     *config.Config
	log     *logging.Logger
	index   *memindex.Index
	gateway persistence.Gateway
	caches  *cache.Manager
	crawl   *crawler.Crawler
	match   *matcher.Matcher

	mu        sync.Mutex
	callbacks Callbacks
	lastEvict uint64

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
	watchers    []*watcher.Watcher
}

// New builds an Engine from cfg. gateway may be nil, in which case a
// MemoryGateway checkpointing to snapshotPath is created.
func New(cfg *config.Config, log *logging.Logger, gateway persistence.Gateway, snapshotPath string) *Engine {
	if log == nil {
		log = logging.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if gateway == nil {
		gateway = persistence.NewMemoryGateway(snapshotPath, log)
	}

	idx := memindex.New(DefaultExpectedRecords, log)

	var matcherOpts []matcher.Option
	if cfg.IndexingThreads > 1 {
		matcherOpts = append(matcherOpts, matcher.WithParallel(cfg.IndexingThreads))
	}

	totalEntries := cfg.CacheSizeMB * 1024 * 1024 / bytesPerCacheEntry
	if !cfg.EnableCache || totalEntries <= 0 {
		totalEntries = 1
	}

	return &Engine{
		cfg:     cfg,
		log:     log,
		index:   idx,
		gateway: gateway,
		caches:  cache.NewManager(totalEntries, cache.DefaultSplit, DefaultQueryCacheTTL),
		crawl:   crawler.New(idx, gateway, cfg, log),
		match:   matcher.New(log, matcherOpts...),
	}
}

// SetCallbacks installs the spec §6 callback set. Safe to call before or
// after Index/Watch start.
func (e *Engine) SetCallbacks(cb Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = cb
}

func (e *Engine) callback() Callbacks {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callbacks
}

// Index runs the priority+bulk crawl synchronously, reporting progress
// through the Progress callback roughly once a second, and firing
// IndexingComplete when it returns. A prior Restore (warm start from the
// persistence gateway) is not performed automatically; call Restore first
// if that is desired.
func (e *Engine) Index(ctx context.Context, includeDrives []string) error {
	done := make(chan struct{})
	cb := e.callback()
	if cb.Progress != nil {
		go e.crawl.Monitor(done, crawler.DefaultMonitorInterval, cb.Progress)
	}

	err := e.crawl.Run(ctx, includeDrives)
	close(done)

	if cb.IndexingComplete != nil {
		if err != nil {
			cb.IndexingComplete(false, err.Error())
		} else {
			p := e.crawl.Progress()
			cb.IndexingComplete(true, fmt.Sprintf("indexed %d files, %d directories", p.FilesIndexed, p.DirsIndexed))
		}
	}
	e.checkEvictions()
	return err
}

// Restore rehydrates the memory index from the persistence gateway's last
// checkpoint, fast-forwarding the id counter past whatever was loaded so
// NextID never collides with a restored record. Intended to run before
// Index, to give a warm start across process restarts.
func (e *Engine) Restore(ctx context.Context) error {
	it, err := e.gateway.LoadAllRecords(ctx)
	if err != nil {
		return model.NewError(model.ErrPersistence, "core.Restore", err)
	}
	defer it.Close()

	var maxID model.ID
	var count int
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		r := rec
		e.index.Add(&r)
		if r.ID > maxID {
			maxID = r.ID
		}
		count++
	}
	if err := it.Err(); err != nil {
		return model.NewError(model.ErrPersistence, "core.Restore", err)
	}
	if count > 0 {
		e.index.FastForward(maxID + 1)
	}
	e.log.Info("core: restored %d records from persistence", count)
	return nil
}

// Checkpoint forces the persistence gateway to write its current state to
// disk. The crawler's batch processor upserts directly against the
// gateway's committed state (spec §4.4), which a MemoryGateway only
// checkpoints to its snapshot file on Commit, so a CLI run that wants the
// next process's Restore to see this run's results must checkpoint
// explicitly once indexing finishes.
func (e *Engine) Checkpoint(ctx context.Context) error {
	tx, err := e.gateway.BeginTx(ctx)
	if err != nil {
		return model.NewError(model.ErrPersistence, "core.Checkpoint", err)
	}
	return e.gateway.Commit(ctx, tx)
}

// Pause, Resume and Stop pass through to the underlying crawl.
func (e *Engine) Pause()  { e.crawl.Pause() }
func (e *Engine) Resume() { e.crawl.Resume() }
func (e *Engine) Stop()   { e.crawl.Stop() }

// Shutdown stops any running watch loop and closes the persistence
// gateway. Safe to call even if Watch was never started.
func (e *Engine) Shutdown() error {
	e.StopWatch()
	return e.gateway.Close()
}
