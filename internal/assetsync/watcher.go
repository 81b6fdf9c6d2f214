package assetsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fsnotify/fsnotify"
)

const (
	// watcherDebounceInterval is how often pending events are checked.
	watcherDebounceInterval = 500 * time.Millisecond

	// watcherQuietPeriod is how long the tree must stay unchanged before
	// a batch of events triggers a sync.
	watcherQuietPeriod = 300 * time.Millisecond
)

// Watcher re-runs a sync whenever files matching a pattern change. Bursts
// of events are batched into a single call.
type Watcher struct {
	pattern  string
	base     string
	ignore   mapset.Set[string]
	onChange func(ctx context.Context) error
	logger   *slog.Logger
	interval time.Duration
	quiet    time.Duration
}

// NewWatcher returns a Watcher for pattern. Paths in ignore (typically the
// manifest) never trigger onChange, even when they match the pattern.
func NewWatcher(pattern string, onChange func(ctx context.Context) error, logger *slog.Logger, ignore ...string) *Watcher {
	pattern = filepath.Clean(pattern)
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))

	ignored := mapset.NewThreadUnsafeSet[string]()
	for _, p := range ignore {
		ignored.Add(filepath.Clean(p))
		ignored.Add(filepath.Clean(p) + ".lock")
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Watcher{
		pattern:  pattern,
		base:     filepath.FromSlash(base),
		ignore:   ignored,
		onChange: onChange,
		logger:   logger,
		interval: watcherDebounceInterval,
		quiet:    watcherQuietPeriod,
	}
}

// Watch blocks until ctx is cancelled. Errors from onChange are logged and
// watching continues, so a transient remote failure is retried on the next
// change.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, w.base); err != nil {
		return fmt.Errorf("watching %s: %w", w.base, err)
	}

	w.logger.Info("watching for changes", slog.String("dir", w.base), slog.String("pattern", w.pattern))

	var (
		dirty   bool
		lastHit time.Time
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("fsnotify events channel closed unexpectedly")
			}

			if event.Has(fsnotify.Create) {
				info, err := os.Lstat(event.Name)
				if err == nil && info.IsDir() {
					if strings.HasPrefix(filepath.Base(event.Name), ".") {
						continue
					}

					if err := addRecursive(watcher, event.Name); err != nil {
						w.logger.Warn("watching new directory", slog.String("dir", event.Name), slog.String("error", err.Error()))
					}

					// A directory moved in may already hold matching files.
					dirty = true
					lastHit = time.Now()

					continue
				}
			}

			if !w.relevant(event.Name) {
				continue
			}

			w.logger.Debug("change detected", slog.String("path", event.Name), slog.String("op", event.Op.String()))

			dirty = true
			lastHit = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("fsnotify errors channel closed unexpectedly")
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			if !dirty || time.Since(lastHit) < w.quiet {
				continue
			}

			dirty = false

			if err := w.onChange(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				w.logger.Warn("sync after change failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	path = filepath.Clean(path)
	if w.ignore.Contains(path) {
		return false
	}

	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}

	ok, err := doublestar.PathMatch(w.pattern, path)

	return err == nil && ok
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}
