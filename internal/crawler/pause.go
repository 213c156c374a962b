package crawler

import "context"

// Pause requests that walker goroutines block at their next entry point
// once any in-flight batch has been flushed. Resume wakes them again.
func (c *Crawler) Pause() {
	c.pauseMu.Lock()
	c.paused = true
	c.pauseMu.Unlock()
	c.batch.flush(context.Background())
}

// Resume releases a prior Pause.
func (c *Crawler) Resume() {
	c.pauseMu.Lock()
	c.paused = false
	c.pauseMu.Unlock()
	c.pauseCond.Broadcast()
}

// Stop requests that the crawl wind down: walker goroutines observe
// shouldStop at their next entry point, flush whatever batch is pending and
// return. Run still returns after the in-flight work drains.
func (c *Crawler) Stop() {
	c.shouldStop.Store(true)
	c.Resume()
}

// IsPaused reports the current pause state.
func (c *Crawler) IsPaused() bool {
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()
	return c.paused
}

// waitIfPaused blocks the calling walker goroutine while paused, waking
// either on Resume or on Stop.
func (c *Crawler) waitIfPaused() {
	c.pauseMu.Lock()
	for c.paused && !c.shouldStop.Load() {
		c.pauseCond.Wait()
	}
	c.pauseMu.Unlock()
}
