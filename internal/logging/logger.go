// Package logging provides the explicit logger handle every core component
// takes in its constructor. Per the "singleton logger" design note, there is
// no package-level global in normal use; Default() exists only as the
// last-resort fallback for callers (mainly cmd/cli) that have not wired one
// through yet.
package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const (
	maxLogSize      = 10 * 1024 * 1024 // 10MB
	logBufferSize   = 32 * 1024
	maxLogRotations = 5
	asyncQueueDepth = 1000
)

// Logger wraps a zerolog.Logger with an async write buffer and size-based
// rotation, matching the teacher's internal/search/logger.go shape.
type Logger struct {
	zl     zerolog.Logger
	file   *os.File
	writer *bufio.Writer
	queue  chan string
	mu     sync.Mutex
	done   chan struct{}
	wg     sync.WaitGroup
}

// New opens (creating/rotating as needed) a log file under dir and starts
// the async flush goroutine.
func New(dir, filename string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, filename)
	rotate(path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	w := bufio.NewWriterSize(f, logBufferSize)
	l := &Logger{
		file:   f,
		writer: w,
		queue:  make(chan string, asyncQueueDepth),
		done:   make(chan struct{}),
	}
	l.zl = zerolog.New(l).With().Timestamp().Logger()

	l.wg.Add(1)
	go l.drain()

	return l, nil
}

// NewDiscard returns a Logger that drops everything; useful in tests.
func NewDiscard() *Logger {
	l := &Logger{queue: make(chan string), done: make(chan struct{})}
	l.zl = zerolog.New(io.Discard)
	close(l.done)
	return l
}

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns a process-wide fallback logger writing under the OS temp
// directory. It exists only so components constructed without an explicit
// Logger (e.g. ad hoc CLI debugging) still have somewhere to write.
func Default() *Logger {
	defaultOnce.Do(func() {
		l, err := New(filepath.Join(os.TempDir(), "koe-no-search-logs"), "core.log")
		if err != nil {
			defaultLog = NewDiscard()
			return
		}
		defaultLog = l
	})
	return defaultLog
}

// Write implements io.Writer so zerolog can write through the async buffer.
func (l *Logger) Write(p []byte) (int, error) {
	select {
	case l.queue <- string(p):
	default:
		// queue saturated: drop rather than block the caller.
	}
	return len(p), nil
}

func (l *Logger) drain() {
	defer l.wg.Done()
	for {
		select {
		case msg, ok := <-l.queue:
			if !ok {
				return
			}
			l.mu.Lock()
			if l.writer != nil {
				l.writer.WriteString(msg)
				if len(l.queue) == 0 {
					l.writer.Flush()
				}
			}
			l.mu.Unlock()
		case <-l.done:
			// drain remaining queued messages before exiting.
			for {
				select {
				case msg := <-l.queue:
					l.mu.Lock()
					if l.writer != nil {
						l.writer.WriteString(msg)
					}
					l.mu.Unlock()
				default:
					l.mu.Lock()
					if l.writer != nil {
						l.writer.Flush()
					}
					l.mu.Unlock()
					return
				}
			}
		}
	}
}

// Zerolog returns the underlying structured logger for components that want
// zerolog's field-builder API directly.
func (l *Logger) Zerolog() *zerolog.Logger { return &l.zl }

func (l *Logger) Debug(format string, args ...interface{}) { l.zl.Debug().Msgf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.zl.Info().Msgf(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.zl.Warn().Msgf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.zl.Error().Msgf(format, args...) }

// Close flushes and closes the underlying file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return fmt.Errorf("flush log buffer: %w", err)
		}
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log file: %w", err)
	}
	return l.file.Close()
}

func rotate(path string) {
	fi, err := os.Stat(path)
	if err != nil || fi.Size() <= maxLogSize {
		return
	}
	for i := maxLogRotations - 1; i > 0; i-- {
		os.Rename(fmt.Sprintf("%s.%d", path, i), fmt.Sprintf("%s.%d", path, i+1))
	}
	os.Rename(path, path+".1")
}
