package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/strokeundo/internal/logging"
)

// DefaultDebounceDelay is the delay used when a Watcher is created with a
// non-positive delay.
const DefaultDebounceDelay = 100 * time.Millisecond

// ErrWatcherClosed is returned by Run on a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// ReloadFunc is called with the freshly loaded scenario after the file
// changed. Errors are logged and watching continues.
type ReloadFunc func(ctx context.Context, sc *Scenario) error

// Watcher reloads a scenario file when it changes. Rapid changes are
// coalesced into one reload.
//
// The parent directory is watched rather than the file, so editors that
// save by renaming a temporary file are handled.
type Watcher struct {
	path  string
	delay time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	fire    chan struct{}
	closed  bool
	reloads int
}

// NewWatcher creates a watcher for the scenario file at path.
func NewWatcher(path string, delay time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:  absPath,
		delay: delay,
		fsw:   fsw,
		fire:  make(chan struct{}, 1),
	}, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string { return w.path }

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Run delivers reloads to fn until ctx is done or the watcher is closed.
// It returns nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, fn ReloadFunc) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.mu.Unlock()

	log := logging.WithComponent("scenario")
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "path", w.path, "error", err)

		case <-w.fire:
			sc, err := LoadFile(w.path)
			if err != nil {
				log.Warn("reload failed", "path", w.path, "error", err)
				continue
			}
			w.mu.Lock()
			w.reloads++
			w.mu.Unlock()
			if err := fn(ctx, sc); err != nil {
				log.Warn("replay failed", "path", w.path, "error", err)
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.fsw.Close()
}

// handleEvent schedules a reload for writes to the watched file, resetting
// the timer of a reload that is already pending.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Reset(w.delay)
		return
	}
	w.timer = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()

		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}
