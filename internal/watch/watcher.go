// Package watch re-runs an export when build outputs change.
//
// A Watcher registers every directory under its roots with fsnotify,
// follows directories created later, and calls OnChange once events have
// been quiet for the debounce period. Callbacks run on their own goroutine
// so a slow export never blocks event draining; overlapping exports are
// the caller's concern (the workflow guard drops them).
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a callback fires.
const DefaultDebounce = 500 * time.Millisecond

// Config holds the parameters of a Watcher.
type Config struct {
	// Roots are directories watched recursively. Roots that do not exist
	// are skipped with a warning.
	Roots []string

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// OnChange receives the sorted absolute paths changed since the last
	// call. Errors are logged.
	OnChange func(ctx context.Context, changed []string) error

	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

// Watcher watches build output directories.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *log.Logger
	started  atomic.Bool
}

// New creates a Watcher and registers its roots. It fails when none of
// the roots exists.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}

	watched := 0
	for _, root := range cfg.Roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			w.logger.Warn("not watching missing directory", "path", root)
			continue
		}
		if err := w.addTree(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
		watched++
	}
	if watched == 0 {
		_ = fsw.Close()
		return nil, errors.New("watch: no existing directory to watch")
	}
	return w, nil
}

// Run processes events until ctx is cancelled, then waits for a running
// callback to return. It may be called once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing watcher", "err", err)
		}
	}()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			if evt.Op == fsnotify.Chmod {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			if w.cfg.OnChange == nil || len(changed) == 0 {
				continue
			}

			w.logger.Debug("change detected", "paths", len(changed))
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := w.cfg.OnChange(ctx, changed); err != nil {
					w.logger.Error("re-export failed", "err", err)
				}
			}()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// addTree registers root and every directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
}

// maybeAddDir follows a directory created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("cannot watch new directory", "path", path, "err", err)
	}
}
