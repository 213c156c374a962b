package crawler

import "time"

// DefaultMonitorInterval is how often Monitor samples progress, per spec
// §4.5's progress-monitor thread.
const DefaultMonitorInterval = time.Second

// Progress is a point-in-time snapshot of the crawl's counters.
type Progress struct {
	Phase        Phase
	FilesIndexed uint64
	DirsIndexed  uint64
	BytesIndexed uint64
	Errors       uint64
	CurrentPath  string
}

// Progress returns the current counters without blocking the walkers.
func (c *Crawler) Progress() Progress {
	path := ""
	if p := c.currentPath.Load(); p != nil {
		path = *p
	}
	return Progress{
		Phase:        Phase(c.phase.Load()),
		FilesIndexed: c.filesIndexed.Load(),
		DirsIndexed:  c.dirsIndexed.Load(),
		BytesIndexed: c.bytesIndexed.Load(),
		Errors:       c.errCount.Load(),
		CurrentPath:  path,
	}
}

// Monitor calls onTick with a Progress snapshot every interval until the
// crawl reaches PhaseDone or done is closed. Meant to be run in its own
// goroutine alongside Run.
func (c *Crawler) Monitor(done <-chan struct{}, interval time.Duration, onTick func(Progress)) {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			onTick(c.Progress())
			return
		case <-ticker.C:
			p := c.Progress()
			onTick(p)
			if p.Phase == PhaseDone {
				return
			}
		}
	}
}
