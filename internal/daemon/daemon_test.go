package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"spines/internal/daemon"
	"spines/internal/lock"
	"spines/internal/notifications"
	"spines/internal/ocrqueue"
	"spines/internal/review"
	"spines/internal/testsupport"
)

type fakeOCR struct {
	processed int
	pending   []string
}

func (f *fakeOCR) Process(context.Context, int) (ocrqueue.BatchSummary, error) {
	f.processed++
	return ocrqueue.BatchSummary{Processed: 1, Completed: 1}, nil
}

func (f *fakeOCR) PendingPaths(context.Context) ([]string, error) { return f.pending, nil }

type fakeReview struct {
	keep []string
}

func (f *fakeReview) CheckLiveness(context.Context) (int, error) { return 0, nil }

func (f *fakeReview) CleanupTemp(_ context.Context, _ string, keep ...string) (review.CleanupResult, error) {
	f.keep = keep
	return review.CleanupResult{Cleaned: 2}, nil
}

type recordingNotifier struct {
	events []notifications.Event
	last   notifications.Payload
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.events = append(r.events, event)
	r.last = payload
	return nil
}

type blockingRunner struct {
	started chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context) error {
	close(b.started)
	<-ctx.Done()
	return nil
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	inbox := &blockingRunner{started: make(chan struct{})}
	d, err := daemon.New(cfg, nil, daemon.Deps{OCR: &fakeOCR{}, Review: &fakeReview{}, Inbox: inbox})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case <-inbox.started:
	case <-time.After(2 * time.Second):
		t.Fatal("inbox runner not started")
	}

	status := d.Status()
	if !status.Running || status.RunID == "" {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Jobs) != 3 {
		t.Fatalf("expected three scheduled jobs, got %+v", status.Jobs)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}
	if _, err := lock.Acquire(cfg.LockPath()); !errors.Is(err, lock.ErrBusy) {
		t.Fatalf("expected the daemon to hold the lock, got %v", err)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	l, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		t.Fatalf("lock should be released after stop: %v", err)
	}
	_ = l.Release()
}

func TestDaemonRejectsBadSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.OCRBatch = "not a schedule"
	d, err := daemon.New(cfg, nil, daemon.Deps{OCR: &fakeOCR{}, Review: &fakeReview{}})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected invalid cron spec to fail")
	}
	l, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		t.Fatalf("failed start must release the lock: %v", err)
	}
	_ = l.Release()
}

func TestCleanupKeepsPendingOCRFilesAndPrunesLogs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.RetentionDays = 7
	old := filepath.Join(cfg.Paths.LogDir, "spines-2020.log")
	testsupport.WriteText(t, old, "old")
	past := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	ocr := &fakeOCR{pending: []string{"/tmp/a.pdf"}}
	rv := &fakeReview{}
	d, err := daemon.New(cfg, nil, daemon.Deps{OCR: ocr, Review: rv})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !slices.Equal(rv.keep, []string{"/tmp/a.pdf"}) {
		t.Fatalf("expected pending ocr paths kept, got %v", rv.keep)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old log pruned")
	}
	if err := d.RunOCRBatch(context.Background()); err != nil || ocr.processed != 1 {
		t.Fatalf("RunOCRBatch: %v (processed %d)", err, ocr.processed)
	}
}

func TestOCRBatchPublishesSummary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &recordingNotifier{}
	d, err := daemon.New(cfg, nil, daemon.Deps{OCR: &fakeOCR{}, Review: &fakeReview{}, Notifier: notifier})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.RunOCRBatch(context.Background()); err != nil {
		t.Fatalf("RunOCRBatch: %v", err)
	}
	if !slices.Equal(notifier.events, []notifications.Event{notifications.EventOCRBatchCompleted}) {
		t.Fatalf("unexpected events %v", notifier.events)
	}
	if notifier.last["completed"] != 1 {
		t.Fatalf("unexpected payload %v", notifier.last)
	}
}

func TestJobsWaitForSharedWorkLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	work := &sync.Mutex{}
	rv := &fakeReview{}
	d, err := daemon.New(cfg, nil, daemon.Deps{OCR: &fakeOCR{}, Review: rv, Work: work})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	work.Lock()
	done := make(chan error, 1)
	go func() { done <- d.Cleanup(context.Background()) }()
	select {
	case <-done:
		t.Fatal("cleanup ran while an ingest held the work lock")
	case <-time.After(50 * time.Millisecond):
	}
	work.Unlock()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Cleanup: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup did not run after the work lock was released")
	}
}
