// Package inbox watches a drop directory and feeds new documents to the
// ingest pipeline once their size has settled.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"spines/internal/catalog"
	"spines/internal/ingest"
	"spines/internal/logging"
)

// DefaultPollInterval is how often pending files are re-measured.
const DefaultPollInterval = 2 * time.Second

// Processor is the part of the ingest pipeline the watcher drives.
type Processor interface {
	Stage(src string) (string, error)
	Process(ctx context.Context, path, contributor string) (ingest.Outcome, error)
}

// Watcher ingests files dropped into a directory.
type Watcher struct {
	dir         string
	contributor string
	proc        Processor
	logger      *slog.Logger
	interval    time.Duration
	keepSources bool
	tracker     *tracker
	work        sync.Locker
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPollInterval overrides the size polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLocker holds l while a file is staged and ingested.
func WithLocker(l sync.Locker) Option {
	return func(w *Watcher) {
		if l != nil {
			w.work = l
		}
	}
}

// WithKeepSources leaves ingested files in place and skips files that were
// present before the watch started. Used when watching a directory that was
// just scanned.
func WithKeepSources() Option {
	return func(w *Watcher) { w.keepSources = true }
}

// New builds a watcher for dir. Files are ingested on behalf of contributor.
func New(dir, contributor string, proc Processor, logger *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		dir:         dir,
		contributor: contributor,
		proc:        proc,
		logger:      logging.NewComponentLogger(logger, "inbox"),
		interval:    DefaultPollInterval,
		tracker:     newTracker(),
		work:        &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Supported files already present when
// Run starts are picked up too unless sources are kept.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if !w.keepSources {
		w.seed()
	}
	w.logger.Info("inbox watcher started", logging.String("dir", w.dir), logging.Duration("poll", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped", logging.String("dir", w.dir))
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("inbox watcher closed")
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.observe(event.Name)
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.tracker.forget(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("inbox watcher closed")
			}
			logging.WarnWithContext(w.logger, "inbox watch error", "inbox_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some file events may have been missed"),
			)
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) seed() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			w.observe(filepath.Join(w.dir, e.Name()))
		}
	}
}

func (w *Watcher) observe(path string) {
	if catalog.SupportedDocument(path) {
		w.tracker.watch(path)
	}
}

// poll ingests every file whose size matched on two consecutive polls.
func (w *Watcher) poll(ctx context.Context) {
	for _, path := range w.tracker.settled(statSize) {
		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	w.work.Lock()
	defer w.work.Unlock()
	staged, err := w.proc.Stage(path)
	if err != nil {
		logging.WarnWithContext(w.logger, "inbox file not staged", "inbox_stage_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the file stays in the inbox until it changes again"),
		)
		return
	}
	if !w.keepSources {
		if err := os.Remove(path); err != nil {
			logging.WarnWithContext(w.logger, "inbox file not removed", "inbox_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
	out, err := w.proc.Process(ctx, staged, w.contributor)
	if err != nil {
		return
	}
	w.logger.Info("inbox file ingested",
		logging.String("path", path),
		logging.String("status", string(out.Status)),
		logging.String("reason", out.Reason),
	)
}

func statSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}

// tracker remembers the last measured size of each candidate file.
type tracker struct {
	sizes map[string]int64
}

const unmeasured = -1

func newTracker() *tracker {
	return &tracker{sizes: make(map[string]int64)}
}

// watch (re)starts stability tracking for path.
func (t *tracker) watch(path string) {
	t.sizes[path] = unmeasured
}

func (t *tracker) forget(path string) {
	delete(t.sizes, path)
}

// settled measures every tracked file and returns, sorted, those whose size is
// non-zero and unchanged since the previous measurement. Returned and vanished
// paths stop being tracked.
func (t *tracker) settled(measure func(string) (int64, bool)) []string {
	var ready []string
	for path, last := range t.sizes {
		size, ok := measure(path)
		switch {
		case !ok:
			delete(t.sizes, path)
		case size > 0 && size == last:
			delete(t.sizes, path)
			ready = append(ready, path)
		default:
			t.sizes[path] = size
		}
	}
	sort.Strings(ready)
	return ready
}
