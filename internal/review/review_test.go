package review_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spines/internal/catalog"
	"spines/internal/extraction"
	"spines/internal/review"
	"spines/internal/services"
	"spines/internal/similarity"
	"spines/internal/staging"
	"spines/internal/testsupport"
)

type recordingFinalizer struct {
	subs []catalog.Submission
	err  error
}

func (f *recordingFinalizer) Finalize(_ context.Context, sub catalog.Submission) (string, error) {
	f.subs = append(f.subs, sub)
	if f.err != nil {
		return "", f.err
	}
	return "entry123", nil
}

func draftResult(title string, confidence float64) extraction.Result {
	d := extraction.Draft{
		Method:     extraction.MethodEbookMeta,
		Success:    true,
		Fields:     catalog.Metadata{Title: title, Author: "Ursula K. Le Guin"},
		Confidence: confidence,
	}
	return extraction.Result{Best: d, Attempts: []extraction.Draft{d}}
}

func newQueue(t *testing.T, opts ...review.Option) (*review.Queue, string) {
	t.Helper()
	dir := t.TempDir()
	return review.New(filepath.Join(dir, "review_queue.json"), nil, opts...), dir
}

func TestAddDeduplicatesByPath(t *testing.T) {
	q, dir := newQueue(t)
	ctx := context.Background()
	path := filepath.Join(dir, "upload.pdf")
	testsupport.WriteText(t, path, "book bytes")

	req := review.Request{Path: path, Contributor: "alice", Reason: "moderate_confidence_0.50", Result: draftResult("Earthsea", 0.5)}
	first, err := q.Add(ctx, req)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := q.Add(ctx, req)
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if first != second {
		t.Fatalf("expected same id for same path, got %q and %q", first, second)
	}
	items, err := q.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	item := items[0]
	if item.Status != review.StatusPending || item.ExtractionMethod != "ebook_meta" || item.Filename != "upload.pdf" {
		t.Fatalf("unexpected item %+v", item)
	}
	if len(item.Attempts) != 1 || item.Attempts[0] != extraction.MethodEbookMeta {
		t.Fatalf("expected attempt log, got %v", item.Attempts)
	}

	copyPath := filepath.Join(dir, "upload-again.pdf")
	testsupport.WriteText(t, copyPath, "book bytes")
	third, err := q.Add(ctx, review.Request{Path: copyPath, Result: draftResult("Earthsea", 0.5)})
	if err != nil {
		t.Fatalf("third Add: %v", err)
	}
	if third == first {
		t.Fatal("identical content at a different path must get a distinct id")
	}
}

func TestLivenessThenRejectIsNoOpOnFile(t *testing.T) {
	q, dir := newQueue(t)
	ctx := context.Background()
	path := filepath.Join(dir, "gone.pdf")
	testsupport.WriteText(t, path, "bytes")
	testsupport.WriteText(t, extraction.SidecarFor(path), "text")

	id, err := q.Add(ctx, review.Request{Path: path, Result: draftResult("Gone", 0.5)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	changed, err := q.CheckLiveness(ctx)
	if err != nil {
		t.Fatalf("CheckLiveness: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected one item flipped, got %d", changed)
	}
	item, err := q.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != review.StatusFileMissing {
		t.Fatalf("expected file_missing, got %s", item.Status)
	}

	if err := q.Reject(ctx, id); err != nil {
		t.Fatalf("Reject after missing file: %v", err)
	}
	if _, err := os.Stat(extraction.SidecarFor(path)); !os.IsNotExist(err) {
		t.Fatalf("expected sidecar removed, stat err=%v", err)
	}
	if err := q.Reject(ctx, id); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second reject, got %v", err)
	}
}

func TestApproveHandsDraftToFinalizer(t *testing.T) {
	fin := &recordingFinalizer{}
	q, dir := newQueue(t, review.WithFinalizer(fin))
	ctx := context.Background()
	path := filepath.Join(dir, "book.epub")
	testsupport.WriteText(t, path, "epub")

	id, err := q.Add(ctx, review.Request{Path: path, Contributor: "bob", Result: draftResult("Lathe of Heaven", 0.6)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	year := 1971
	entryID, err := q.Approve(ctx, id, review.Approval{Action: catalog.CopySeparate, Edits: catalog.Edits{Year: &year}})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if entryID != "entry123" {
		t.Fatalf("unexpected entry id %q", entryID)
	}
	if len(fin.subs) != 1 {
		t.Fatalf("expected one finalize call, got %d", len(fin.subs))
	}
	sub := fin.subs[0]
	if sub.Contributor != "bob" || sub.Action != catalog.CopySeparate || sub.Fields.Title != "Lathe of Heaven" {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if sub.Edits.Year == nil || *sub.Edits.Year != 1971 {
		t.Fatalf("expected edits forwarded, got %+v", sub.Edits)
	}
	summary, err := q.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Total != 0 {
		t.Fatalf("expected approved item removed, got %+v", summary)
	}
}

func TestApproveFailureMarksProcessingFailed(t *testing.T) {
	fin := &recordingFinalizer{err: errors.New("disk full")}
	q, dir := newQueue(t, review.WithFinalizer(fin))
	ctx := context.Background()
	path := filepath.Join(dir, "book.pdf")
	testsupport.WriteText(t, path, "pdf")

	id, err := q.Add(ctx, review.Request{Path: path, Result: draftResult("Book", 0.5)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := q.Approve(ctx, id, review.Approval{}); err == nil {
		t.Fatal("expected approve error")
	}
	item, err := q.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != review.StatusFailed || item.Error == "" {
		t.Fatalf("expected processing_failed with error, got %+v", item)
	}
	if fin.subs[0].Action != catalog.CopyAuto {
		t.Fatalf("expected default auto action, got %q", fin.subs[0].Action)
	}
	summary, _ := q.Summary(ctx)
	if summary.Failed != 1 || summary.Total != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestApproveUnknownID(t *testing.T) {
	q, _ := newQueue(t, review.WithFinalizer(&recordingFinalizer{}))
	if _, err := q.Approve(context.Background(), "nope", review.Approval{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadDropsItemsFailingSchema(t *testing.T) {
	q, _ := newQueue(t)
	content := `[
  {"id": "good", "path": "/tmp/x.pdf", "status": "pending_review"},
  {"id": "bad-status", "path": "/tmp/y.pdf", "status": "approved"},
  {"path": "/tmp/z.pdf", "status": "pending_review"}
]`
	if err := os.WriteFile(q.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	item, err := q.Get(context.Background(), "good")
	if err != nil {
		t.Fatalf("expected valid item kept: %v", err)
	}
	if item.Path != "/tmp/x.pdf" {
		t.Fatalf("unexpected item %+v", item)
	}
	if _, err := q.Get(context.Background(), "bad-status"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected invalid item dropped, got %v", err)
	}
}

func TestCleanupTempKeepsReferencedFiles(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	temp := t.TempDir()
	queued := filepath.Join(temp, "queued.pdf")
	ocrPending := filepath.Join(temp, "ocr.pdf")
	orphan := filepath.Join(temp, "orphan.pdf")
	scratch := filepath.Join(temp, "spines-convert-1.txt")
	old := time.Now().Add(-2 * staging.DefaultMaxAge)
	for _, p := range []string{queued, extraction.SidecarFor(queued), ocrPending, orphan, scratch} {
		testsupport.WriteText(t, p, p)
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatal(err)
		}
	}
	staged := filepath.Join(temp, "in-flight.pdf")
	testsupport.WriteText(t, staged, "just staged")
	if err := os.Mkdir(filepath.Join(temp, "spines-ocr-1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Add(ctx, review.Request{Path: queued, Result: draftResult("Queued", 0.5)}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	res, err := q.CleanupTemp(ctx, temp, ocrPending)
	if err != nil {
		t.Fatalf("CleanupTemp: %v", err)
	}
	if res.Cleaned != 1 || res.Recent != 1 || res.Errors != 0 {
		t.Fatalf("unexpected cleanup result %+v", res)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("expected orphan removed")
	}
	for _, p := range []string{queued, extraction.SidecarFor(queued), ocrPending, scratch, staged} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
}

func TestSimilarUsesCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := catalog.NewJSONStore(cfg.LibraryIndexPath(), cfg.Paths.LibraryDir, nil)
	ctx := context.Background()
	for i, title := range []string{"The Dispossessed", "The Dispossessed ", "Unrelated"} {
		e := catalog.Entry{ID: string(rune('a' + i)), Metadata: catalog.Metadata{Title: title, Author: "Ursula K. Le Guin"}}
		if err := store.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	q, dir := newQueue(t, review.WithCatalog(store, similarity.New()))
	path := filepath.Join(dir, "d.pdf")
	testsupport.WriteText(t, path, "d")
	id, err := q.Add(ctx, review.Request{Path: path, Result: draftResult("The Dispossessed", 0.5)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	matches, err := q.Similar(ctx, id)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected two matches, got %+v", matches)
	}
}
