// Package watch turns a directory into a drop folder. It standardises the
// "filesystem event, debounce, process the pending set" loop so the
// orchestrator gets consistent debounce windows and observability for free.
//
// Typical usage:
//
//	w, err := watch.New(dir, watch.Options{Debounce: 2 * time.Second})
//	err = w.Run(ctx, func(paths []string) error { return processAll(paths) })
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Options tunes the watcher behaviour.
type Options struct {
	// Pattern is a doublestar glob matched against each path relative to
	// the watched root. Default: "**/*.reqifz".
	Pattern string
	// Debounce is the quiet period after an event before the action fires.
	// More events during the window reset the timer. Default: 2s.
	Debounce time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Pattern == "" {
		o.Pattern = "**/*.reqifz"
	}
	if o.Debounce <= 0 {
		o.Debounce = 2 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher watches one directory tree and runs an action over the files that
// arrive in it. Stats may be read concurrently while Run loops.
type Watcher struct {
	root string
	opts Options
	fs   *fsnotify.Watcher

	// Counters for observability (exported via Stats).
	events   atomic.Int64
	matches  atomic.Int64
	fires    atomic.Int64
	errors   atomic.Int64
	actionNs atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Events        int64         `json:"events"`
	Matches       int64         `json:"matches"`
	Fires         int64         `json:"fires"`
	Errors        int64         `json:"errors"`
	AvgActionTime time.Duration `json:"avg_action_time"`
}

// New creates a Watcher rooted at dir. The root and every existing
// subdirectory are registered immediately; directories created later are
// picked up from their create events. Call Run to start the loop.
func New(dir string, opts Options) (*Watcher, error) {
	opts.defaults()

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{root: dir, opts: opts, fs: fs}
	if err := w.addTree(dir); err != nil {
		fs.Close()
		return nil, err
	}
	return w, nil
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	s := Stats{
		Events:  w.events.Load(),
		Matches: w.matches.Load(),
		Fires:   w.fires.Load(),
		Errors:  w.errors.Load(),
	}
	if s.Fires > 0 {
		s.AvgActionTime = time.Duration(w.actionNs.Load() / s.Fires)
	}
	return s
}

// addTree registers dir and all nested directories with the fs watcher.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if d.IsDir() {
			if err := w.fs.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// match reports whether path matches the configured pattern, judged against
// the path relative to the watched root.
func (w *Watcher) match(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(w.opts.Pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// Run blocks until ctx is cancelled, handing every debounced batch of
// matching paths to action, sorted. If action fails its paths stay pending
// and ride along with the next batch.
func (w *Watcher) Run(ctx context.Context, action func(paths []string) error) error {
	defer w.fs.Close()

	log := w.opts.Logger
	log.Info("watch: started", "root", w.root, "pattern", w.opts.Pattern, "debounce", w.opts.Debounce)

	pending := make(map[string]struct{})
	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			log.Info("watch: stopped")
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.events.Add(1)

			// New directories join the watch so drops into them count too.
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.errors.Add(1)
						log.Warn("watch: add directory failed", "path", ev.Name, "error", err)
					}
					continue
				}
			}

			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.match(ev.Name) {
				continue
			}
			w.matches.Add(1)
			pending[ev.Name] = struct{}{}
			log.Debug("watch: file pending", "path", ev.Name)

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.opts.Debounce)
			debounceCh = debounceTimer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.errors.Add(1)
			log.Warn("watch: fs error", "error", err)

		case <-debounceCh:
			debounceCh = nil
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)

			w.fires.Add(1)
			log.Info("watch: processing batch", "files", len(batch))
			start := time.Now()
			err := action(batch)
			w.actionNs.Add(time.Since(start).Nanoseconds())
			if err != nil {
				w.errors.Add(1)
				log.Error("watch: action failed, batch stays pending", "error", err)
				continue
			}
			pending = make(map[string]struct{})
		}
	}
}
