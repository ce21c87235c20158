// Package watch reruns a function whenever a file changes.
//
// The parent directory is watched rather than the file itself so editors
// that save by rename keep triggering. Bursts of events collapse into one
// run after a quiet period, and runs are rate limited.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

const (
	DefaultDebounce = 250 * time.Millisecond
	DefaultInterval = time.Second
)

var ErrNoPath = errors.New("watch: path is required")

// Func is run once at start and again after each change.
type Func func(ctx context.Context) error

// Options tunes a Watcher. Zero values select the defaults.
type Options struct {
	// Debounce is the quiet period that ends a burst of events.
	Debounce time.Duration
	// Interval is the minimum time between two runs.
	Interval time.Duration
	Logger   *slog.Logger
}

// Watcher reruns fn on changes to one file.
type Watcher struct {
	path     string
	fn       Func
	debounce time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger

	runs int
}

// New returns a Watcher for path.
func New(path string, fn Func, opts Options) (*Watcher, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{
		path:     abs,
		fn:       fn,
		debounce: opts.Debounce,
		limiter:  rate.NewLimiter(rate.Every(opts.Interval), 1),
		logger:   opts.Logger.With("component", "watch", "path", abs),
	}, nil
}

// Runs returns how many times fn has been called. Only valid after Run
// returns.
func (w *Watcher) Runs() int { return w.runs }

// Run blocks until ctx is done. Errors from fn are logged and do not stop
// the watch.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w.logger.Info("watching")

	w.run(ctx)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("change", "op", ev.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if err := w.limiter.Wait(ctx); err != nil {
				return nil
			}
			w.run(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func (w *Watcher) run(ctx context.Context) {
	w.runs++
	if err := w.fn(ctx); err != nil {
		w.logger.Warn("run failed", "error", err)
	}
}
