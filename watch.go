// FILE: lixenwraith/treeconf/watch.go
package treeconf

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultMaxWatchers = 100 // Prevent resource exhaustion

// Notifications sent on Watch channels
const (
	EventReload      = "reload"
	EventReloadError = "reload_error"
	EventTimeout     = "reload_timeout"
	EventDeleted     = "file_deleted"
)

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// Debounce duration to coalesce bursts of writes into one reload
	Debounce time.Duration

	// MaxWatchers limits concurrent watch channels
	MaxWatchers int

	// ReloadTimeout bounds a single reload
	ReloadTimeout time.Duration
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:      DefaultDebounce,
		MaxWatchers:   DefaultMaxWatchers,
		ReloadTimeout: DefaultReloadTimeout,
	}
}

// watcher reloads one file source when its file changes
type watcher struct {
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	opts             WatchOptions
	source           *FileSource
	fileName         string
	fs               *fsnotify.Watcher
	watching         atomic.Bool
	reloadInProgress atomic.Bool
	subscribers      map[int64]chan string
	subscriberID     atomic.Int64
	debounceTimer    *time.Timer
}

// WatchFile starts reloading src whenever its file is written, replacing any
// running watcher. src must already be one of the Config's sources. The
// parent directory is watched so that editors replacing the file are seen.
func (c *Config) WatchFile(src *FileSource, opts WatchOptions) error {
	if src == nil {
		return ErrNilSource
	}
	if !slices.ContainsFunc(c.Sources(), func(s Source) bool { return s.ID() == src.ID() }) {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, src.Name())
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	absPath, err := filepath.Abs(src.Path())
	if err != nil {
		return fmt.Errorf("failed to resolve config file path '%s': %w", src.Path(), err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch directory '%s': %w", filepath.Dir(absPath), err)
	}

	c.StopWatching()

	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		ctx:         ctx,
		cancel:      cancel,
		opts:        opts,
		source:      src,
		fileName:    absPath,
		fs:          fsw,
		subscribers: make(map[int64]chan string),
	}
	w.watching.Store(true)

	c.watchMu.Lock()
	c.watcher = w
	c.watchMu.Unlock()

	go w.watchLoop(c)
	return nil
}

// StopWatching stops the file watcher and closes every Watch channel
func (c *Config) StopWatching() {
	c.watchMu.Lock()
	w := c.watcher
	c.watcher = nil
	c.watchMu.Unlock()

	if w != nil {
		w.stop()
	}
}

// Watch returns a channel receiving reload notifications: "reload" after a
// successful reload, "reload_error:<message>" when a reload failed,
// "reload_timeout" and "file_deleted". The channel is closed when watching
// stops; it is returned closed when no watcher is running.
func (c *Config) Watch() <-chan string {
	c.watchMu.Lock()
	w := c.watcher
	c.watchMu.Unlock()

	if w == nil || !w.watching.Load() {
		ch := make(chan string)
		close(ch)
		return ch
	}
	return w.subscribe()
}

// IsWatching returns true if a file watcher is running
func (c *Config) IsWatching() bool {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	return c.watcher != nil && c.watcher.watching.Load()
}

// WatcherCount returns the number of active watch channels
func (c *Config) WatcherCount() int {
	c.watchMu.Lock()
	w := c.watcher
	c.watchMu.Unlock()

	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subscribers)
}

// watchLoop filters directory events down to the watched file
func (w *watcher) watchLoop(c *Config) {
	defer w.watching.Store(false)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.fileName {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.scheduleReload(c)
			}
			if event.Op&fsnotify.Remove == fsnotify.Remove ||
				event.Op&fsnotify.Rename == fsnotify.Rename {
				w.notify(EventDeleted)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			c.Logger().Warn("file watcher error", slog.String("file", w.fileName), slog.Any("error", err))
		}
	}
}

// scheduleReload restarts the debounce timer
func (w *watcher) scheduleReload(c *Config) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, func() {
		w.performReload(c)
	})
}

// performReload reloads the watched source
func (w *watcher) performReload(c *Config) {
	if w.ctx.Err() != nil {
		return
	}
	if !w.reloadInProgress.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadInProgress.Store(false)

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.Reload(w.source)
	}()

	select {
	case err := <-done:
		if err != nil {
			w.notify(fmt.Sprintf("%s:%v", EventReloadError, err))
			return
		}
		w.notify(EventReload)
	case <-ctx.Done():
		if w.ctx.Err() == nil {
			w.notify(EventTimeout)
		}
	}
}

// subscribe creates a new notification channel
func (w *watcher) subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.subscribers) >= w.opts.MaxWatchers || w.ctx.Err() != nil {
		ch := make(chan string)
		close(ch)
		return ch
	}

	ch := make(chan string, 10)
	w.subscribers[w.subscriberID.Add(1)] = ch
	return ch
}

// notify sends an event to every subscriber without blocking
func (w *watcher) notify(event string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// stop terminates the watcher and closes subscriber channels
func (w *watcher) stop() {
	w.cancel()
	w.fs.Close()

	deadline := time.Now().Add(ShutdownTimeout)
	for w.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	for id, ch := range w.subscribers {
		close(ch)
		delete(w.subscribers, id)
	}
}
