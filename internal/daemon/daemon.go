package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"spines/internal/config"
	"spines/internal/lock"
	"spines/internal/logging"
	"spines/internal/notifications"
	"spines/internal/ocrqueue"
	"spines/internal/review"
	"spines/internal/staging"
)

// Job names.
const (
	JobOCRBatch      = "ocr_batch"
	JobLivenessCheck = "liveness_check"
	JobTempCleanup   = "temp_cleanup"
)

// OCRQueue is the part of the OCR queue the daemon schedules.
type OCRQueue interface {
	Process(ctx context.Context, max int) (ocrqueue.BatchSummary, error)
	PendingPaths(ctx context.Context) ([]string, error)
}

// ReviewQueue is the part of the review queue the daemon maintains.
type ReviewQueue interface {
	CheckLiveness(ctx context.Context) (int, error)
	CleanupTemp(ctx context.Context, tempDir string, keep ...string) (review.CleanupResult, error)
}

// Runner is a blocking background service such as the inbox watcher.
type Runner interface {
	Run(ctx context.Context) error
}

// Deps are the collaborators the daemon schedules. Work is held for the
// duration of every scheduled job; pass the same locker to the inbox watcher
// so ingests and jobs never overlap.
type Deps struct {
	OCR      OCRQueue
	Review   ReviewQueue
	Inbox    Runner
	Notifier notifications.Service
	Work     sync.Locker
}

// Daemon coordinates scheduled jobs and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Deps
	runID  string
	now    func() time.Time

	lockPath string
	lock     *lock.Lock
	cron     *cron.Cron
	jobs     map[string]cron.EntryID

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// JobStatus describes one scheduled job.
type JobStatus struct {
	Name string
	Spec string
	Next time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	RunID        string
	LockFilePath string
	InboxDir     string
	Jobs         []JobStatus
}

// New constructs a daemon. Every record it logs carries the session run id.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.OCR == nil || deps.Review == nil {
		return nil, errors.New("daemon requires config, ocr queue, and review queue")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	if deps.Work == nil {
		deps.Work = &sync.Mutex{}
	}
	logger, runID := logging.WithRunID(logging.NewComponentLogger(logger, "daemon"), "")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		deps:     deps,
		runID:    runID,
		now:      time.Now,
		lockPath: cfg.LockPath(),
		jobs:     make(map[string]cron.EntryID),
	}, nil
}

// Start acquires the lock, schedules the configured jobs and starts the inbox
// watcher when one is wired.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	l, err := lock.Acquire(d.lockPath)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{d.logger})))
	jobs := make(map[string]cron.EntryID)
	for _, job := range []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{JobOCRBatch, d.cfg.Schedule.OCRBatch, d.RunOCRBatch},
		{JobLivenessCheck, d.cfg.Schedule.LivenessCheck, d.CheckLiveness},
		{JobTempCleanup, d.cfg.Schedule.TempCleanup, d.Cleanup},
	} {
		if job.spec == "" {
			continue
		}
		name, run := job.name, job.run
		id, err := c.AddFunc(job.spec, func() { d.runJob(runCtx, name, run) })
		if err != nil {
			cancel()
			_ = l.Release()
			return fmt.Errorf("schedule %s %q: %w", name, job.spec, err)
		}
		jobs[name] = id
	}

	d.lock, d.cron, d.jobs, d.cancel = l, c, jobs, cancel
	c.Start()
	if d.deps.Inbox != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.deps.Inbox.Run(runCtx); err != nil {
				logging.ErrorWithContext(d.logger, "inbox watcher stopped", "inbox_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check that schedule.inbox_dir exists and is readable"),
				)
			}
		}()
	}

	d.running.Store(true)
	d.logger.Info("spines daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("jobs", len(jobs)),
		logging.Bool("inbox", d.deps.Inbox != nil),
	)
	return nil
}

// Stop waits for running jobs, stops the watcher and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	<-d.cron.Stop().Done()
	d.wg.Wait()
	if err := d.lock.Release(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed", logging.Error(err))
	}
	d.lock = nil
	d.running.Store(false)
	d.logger.Info("spines daemon stopped")
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	st := Status{
		Running:      d.running.Load(),
		RunID:        d.runID,
		LockFilePath: d.lockPath,
		InboxDir:     d.cfg.Schedule.InboxDir,
	}
	if d.cron == nil {
		return st
	}
	specs := map[string]string{
		JobOCRBatch:      d.cfg.Schedule.OCRBatch,
		JobLivenessCheck: d.cfg.Schedule.LivenessCheck,
		JobTempCleanup:   d.cfg.Schedule.TempCleanup,
	}
	for _, name := range []string{JobOCRBatch, JobLivenessCheck, JobTempCleanup} {
		id, ok := d.jobs[name]
		if !ok {
			continue
		}
		st.Jobs = append(st.Jobs, JobStatus{Name: name, Spec: specs[name], Next: d.cron.Entry(id).Next})
	}
	return st
}

func (d *Daemon) runJob(ctx context.Context, name string, run func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	start := d.now()
	if err := run(ctx); err != nil {
		logging.ErrorWithContext(d.logger, "scheduled job failed", "job_failed",
			logging.String("job", name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the job runs again at its next scheduled time"),
		)
		d.notify(ctx, notifications.EventJobFailed, notifications.Payload{"job": name, "error": err})
		return
	}
	d.logger.Debug("scheduled job finished", logging.String("job", name), logging.Duration("elapsed", d.now().Sub(start)))
}

// RunOCRBatch processes every pending OCR item.
func (d *Daemon) RunOCRBatch(ctx context.Context) error {
	d.deps.Work.Lock()
	defer d.deps.Work.Unlock()
	summary, err := d.deps.OCR.Process(ctx, 0)
	if err != nil {
		return err
	}
	if summary.Processed > 0 {
		d.logger.Info("scheduled ocr batch finished",
			logging.Int("processed", summary.Processed),
			logging.Int("completed", summary.Completed),
			logging.Int("failed", summary.Failed),
		)
	}
	d.notify(ctx, notifications.EventOCRBatchCompleted, notifications.Payload{
		"processed": summary.Processed,
		"completed": summary.Completed,
		"failed":    summary.Failed,
		"missing":   summary.Missing,
		"errors":    summary.Errors,
	})
	return nil
}

func (d *Daemon) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := d.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "event was logged but not delivered"),
		)
	}
}

// CheckLiveness refreshes review item statuses against the filesystem.
func (d *Daemon) CheckLiveness(ctx context.Context) error {
	d.deps.Work.Lock()
	defer d.deps.Work.Unlock()
	changed, err := d.deps.Review.CheckLiveness(ctx)
	if err != nil {
		return err
	}
	if changed > 0 {
		d.logger.Info("review liveness updated", logging.Int("changed", changed))
	}
	return nil
}

// Cleanup removes unreferenced temp files, abandoned extraction scratch
// entries and old logs. Files pending in the OCR queue are kept.
func (d *Daemon) Cleanup(ctx context.Context) error {
	d.deps.Work.Lock()
	defer d.deps.Work.Unlock()
	keep, err := d.deps.OCR.PendingPaths(ctx)
	if err != nil {
		return err
	}
	res, err := d.deps.Review.CleanupTemp(ctx, d.cfg.Paths.TempDir, keep...)
	if err != nil {
		return err
	}
	scratch := staging.CleanStale(ctx, d.cfg.Paths.TempDir, staging.DefaultMaxAge, d.logger)
	pruned := logging.PruneLogs(d.logger, d.cfg.Paths.LogDir, d.cfg.Logging.RetentionDays, d.now())
	d.logger.Info("scheduled cleanup finished",
		logging.Int("temp_removed", res.Cleaned),
		logging.Int("temp_recent", res.Recent),
		logging.Int("temp_errors", res.Errors+len(scratch.Errors)),
		logging.Int("scratch_removed", len(scratch.Removed)),
		logging.Int("logs_pruned", pruned),
	)
	return nil
}

// cronLogger routes cron's scheduler messages into slog.
type cronLogger struct{ logger *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.logger.Debug("cron "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.logger.Error("cron "+msg, append(keysAndValues, logging.Error(err))...)
}
