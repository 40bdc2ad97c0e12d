// Package watch triggers full rebuilds when source files change or on a
// fixed schedule.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Rebuild reasons passed to RebuildFunc.
const (
	ReasonChange   = "change"
	ReasonSchedule = "schedule"
)

// RebuildFunc runs one full build.
type RebuildFunc func(ctx context.Context, reason string) error

// Options configure a Watcher.
type Options struct {
	// Paths are watched recursively. Hidden directories are skipped.
	Paths []string
	// Ignore lists directories whose events never trigger a rebuild,
	// typically the output root and its staging directory.
	Ignore []string
	// Debounce is the quiet window after the last change before rebuilding.
	Debounce time.Duration
	// Every schedules periodic rebuilds; zero disables them.
	Every time.Duration
}

// Watcher coalesces change events into rebuilds. At most one rebuild runs at
// a time and at most one more is queued behind it.
type Watcher struct {
	opts    Options
	rebuild RebuildFunc
	ignore  []string

	readyOnce sync.Once
	ready     chan struct{}
	requests  chan string
}

// New validates opts and creates a Watcher.
func New(opts Options, rebuild RebuildFunc) (*Watcher, error) {
	if rebuild == nil {
		return nil, errors.ValidationError("rebuild function is required").Build()
	}
	if len(opts.Paths) == 0 && opts.Every <= 0 {
		return nil, errors.ValidationError("nothing to watch: no paths and no schedule").Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	w := &Watcher{
		opts:     opts,
		rebuild:  rebuild,
		ready:    make(chan struct{}),
		requests: make(chan string, 1),
	}
	for _, p := range opts.Ignore {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "cannot resolve ignored path").WithPath(p).Build()
		}
		w.ignore = append(w.ignore, abs)
	}
	return w, nil
}

// Ready is closed once every watch is registered and the schedule runs.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot create file watcher").Build()
	}
	defer func() { _ = fw.Close() }()

	for _, p := range w.opts.Paths {
		if err := w.addRecursive(fw, p); err != nil {
			return err
		}
	}

	if w.opts.Every > 0 {
		sched, err := w.schedule()
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.buildLoop(ctx)
	}()
	defer wg.Wait()

	slog.Info("Watching for changes",
		slog.Any("paths", w.opts.Paths),
		slog.Duration("debounce", w.opts.Debounce),
		slog.Duration("every", w.opts.Every))
	w.readyOnce.Do(func() { close(w.ready) })

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fw, ev.Name); err != nil {
						slog.Warn("Cannot watch new directory", logfields.Path(ev.Name), logfields.Error(err))
					}
				}
			}
			slog.Debug("Change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			debounce.Reset(w.opts.Debounce)
		case <-debounce.C:
			w.request(ReasonChange)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) schedule() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "cannot create scheduler").Build()
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.opts.Every),
		gocron.NewTask(w.request, ReasonSchedule),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, errors.WrapError(err, errors.CategoryConfig, fmt.Sprintf("cannot schedule rebuild every %s", w.opts.Every)).Build()
	}
	return s, nil
}

// request queues a rebuild unless one is already waiting.
func (w *Watcher) request(reason string) {
	select {
	case w.requests <- reason:
	default:
		slog.Debug("Rebuild already queued", slog.String("reason", reason))
	}
}

func (w *Watcher) buildLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-w.requests:
			start := time.Now()
			slog.Info("Rebuilding", slog.String("reason", reason))
			if err := w.rebuild(ctx, reason); err != nil {
				slog.Error("Rebuild failed", slog.String("reason", reason), logfields.Error(err))
				continue
			}
			slog.Info("Rebuild finished", slog.String("reason", reason),
				logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	return !w.ignored(ev.Name)
}

func (w *Watcher) ignored(p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	for _, ig := range w.ignore {
		if abs == ig || strings.HasPrefix(abs, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot watch directory").WithPath(root).Build()
	}
	return nil
}
