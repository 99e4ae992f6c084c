// Package watch reports changes to a set of files.
//
// A [Watcher] observes the parent directories of its files with fsnotify,
// so editors that save by renaming a temp file over the original are still
// seen. When fsnotify is unavailable or fails, it falls back to polling
// modification times. Events coalesce: a burst of writes yields at least
// one signal, never a backlog.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the stat interval in polling mode.
const DefaultPollInterval = 2 * time.Second

// Options tune a [Watcher].
type Options struct {
	// PollInterval is the stat interval in polling mode; zero means
	// [DefaultPollInterval].
	PollInterval time.Duration
	// ForcePoll skips fsnotify entirely.
	ForcePoll bool
}

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher monitors files for changes using fsnotify with a polling fallback.
type Watcher struct {
	// files maps the absolute path of every watched file to true.
	files map[string]bool
	// dirs are the parent directories registered with fsnotify.
	dirs []string
	// events delivers a signal each time a watched file changes.
	// The channel is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// mu guards fsw.
	mu sync.Mutex
	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	// once ensures [Watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between stat calls in polling mode.
	pollInterval time.Duration
}

// New starts watching paths. At least one path is required; the files
// themselves need not exist yet, but their directories must.
func New(opts Options, paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("watch: no paths")
	}
	w := &Watcher{
		files:        make(map[string]bool, len(paths)),
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: opts.PollInterval,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}
	seenDir := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if !seenDir[dir] {
			seenDir[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}

	if opts.ForcePoll {
		w.startPolling()
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			slog.Info("cannot watch directory, falling back to polling", "path", dir, "error", err)
			fsw.Close()
			w.startPolling()
			return w, nil
		}
	}
	w.fsw = fsw
	go w.watch(fsw)
	return w, nil
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when a watched file
// changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
			w.fsw = nil
		}
	})
	return err
}

// watch loops over fsnotify events and forwards write/create notifications
// for watched files. If fsnotify reports an error, watch closes the native
// watcher and falls back to polling.
func (w *Watcher) watch(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if abs, err := filepath.Abs(event.Name); err == nil && w.files[abs] {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.mu.Lock()
			if w.fsw != nil {
				w.fsw.Close()
				w.fsw = nil
			}
			w.mu.Unlock()
			w.startPolling()
			return
		}
	}
}

func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll()
}

// poll periodically stats the watched files and sends a notification when
// any modification time advances.
func (w *Watcher) poll() {
	last := w.modTimes()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			cur := w.modTimes()
			changed := false
			for path, mod := range cur {
				if mod.After(last[path]) {
					changed = true
				}
			}
			last = cur
			if changed {
				w.notify()
			}
		}
	}
}

// modTimes stats every watched file. Missing files are omitted.
func (w *Watcher) modTimes() map[string]time.Time {
	out := make(map[string]time.Time, len(w.files))
	for path := range w.files {
		if info, err := os.Stat(path); err == nil {
			out[path] = info.ModTime()
		}
	}
	return out
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
		// Channel already has a pending event, skip
	}
}
