// Package ocrqueue is the append-only log of documents waiting for the OCR
// extraction method. Items never return to pending once processed.
package ocrqueue

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spines/internal/catalog"
	"spines/internal/extraction"
	"spines/internal/fileutil"
	"spines/internal/jsonfile"
	"spines/internal/logging"
	"spines/internal/services"
)

// Status is an OCR queue item state. Everything but pending is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusMissing   Status = "missing"
	StatusError     Status = "error"
)

// DefaultCommitThreshold is the confidence an OCR draft must exceed.
const DefaultCommitThreshold = 0.5

// Item is one queued document.
type Item struct {
	ID          string     `json:"id"`
	Path        string     `json:"path"`
	Filename    string     `json:"filename"`
	Reason      string     `json:"reason"`
	Status      Status     `json:"status"`
	Contributor string     `json:"contributor,omitempty"`
	Added       time.Time  `json:"added"`
	Completed   *time.Time `json:"completed,omitempty"`
	Error       string     `json:"error,omitempty"`
	// EntryID is set for committed entries queued for a re-read, and for
	// new documents once OCR commits them.
	EntryID    string  `json:"entry_id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Summary counts items per status.
type Summary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Missing   int `json:"missing"`
	Errors    int `json:"error"`
}

// BatchSummary reports one Process run.
type BatchSummary struct {
	Processed int      `json:"processed"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Missing   int      `json:"missing"`
	Errors    int      `json:"errors"`
	EntryIDs  []string `json:"entry_ids"`
}

// Extractor runs the OCR method on one file.
type Extractor interface {
	ExtractOCR(ctx context.Context, path string) extraction.Draft
}

// Finalizer commits a new document.
type Finalizer interface {
	Finalize(ctx context.Context, sub catalog.Submission) (string, error)
}

//go:embed item.schema.json
var itemSchemaJSON []byte

var itemSchema = jsonfile.MustCompileSchema("ocr_item.json", itemSchemaJSON)

// Queue is the persisted OCR queue.
type Queue struct {
	path       string
	logger     *slog.Logger
	now        func() time.Time
	extractor  Extractor
	finalizer  Finalizer
	repo       catalog.Repository
	libraryDir string
	threshold  float64

	mu sync.Mutex
}

// Option configures a Queue.
type Option func(*Queue)

// WithExtractor sets the OCR extractor used by Process.
func WithExtractor(e Extractor) Option {
	return func(q *Queue) { q.extractor = e }
}

// WithFinalizer sets the component completed documents are committed through.
func WithFinalizer(f Finalizer) Option {
	return func(q *Queue) { q.finalizer = f }
}

// WithCatalog enables AddEntries and in-place refresh of committed entries.
func WithCatalog(repo catalog.Repository, libraryDir string) Option {
	return func(q *Queue) {
		q.repo = repo
		q.libraryDir = libraryDir
	}
}

// WithCommitThreshold overrides the confidence a draft must exceed.
func WithCommitThreshold(v float64) Option {
	return func(q *Queue) {
		if v > 0 {
			q.threshold = v
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// New opens the queue stored at path.
func New(path string, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		path:      path,
		logger:    logging.NewComponentLogger(logger, "ocrqueue"),
		now:       time.Now,
		threshold: DefaultCommitThreshold,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Path returns the queue file location.
func (q *Queue) Path() string {
	return q.path
}

func (q *Queue) load() ([]Item, error) {
	items, dropped, err := jsonfile.LoadList[Item](q.path, itemSchema, q.logger)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		if err := q.save(items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (q *Queue) save(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	return jsonfile.Save(q.path, items)
}

// Add queues path with reason. A path that is already pending is not queued
// twice.
func (q *Queue) Add(ctx context.Context, path, reason, contributor string) (Item, error) {
	if strings.TrimSpace(path) == "" {
		return Item{}, services.Wrap(services.ErrValidation, "ocrqueue", "add", "path is required", nil)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	items, err := q.load()
	if err != nil {
		return Item{}, err
	}
	item, added := q.appendItem(&items, path, reason, contributor, "")
	if !added {
		return item, nil
	}
	if err := q.save(items); err != nil {
		return Item{}, err
	}
	logging.WithContext(ctx, q.logger).Info("queued for ocr",
		logging.String("path", path),
		logging.String("reason", reason),
	)
	return item, nil
}

func (q *Queue) appendItem(items *[]Item, path, reason, contributor, entryID string) (Item, bool) {
	for _, existing := range *items {
		if existing.Path == path && existing.Status == StatusPending {
			return existing, false
		}
	}
	item := Item{
		ID:          uuid.NewString(),
		Path:        path,
		Filename:    filepath.Base(path),
		Reason:      reason,
		Status:      StatusPending,
		Contributor: contributor,
		Added:       q.now().UTC(),
		EntryID:     entryID,
	}
	*items = append(*items, item)
	return item, true
}

// AddEntries queues committed catalog entries for an OCR re-read. Entries
// without a PDF asset on disk are skipped and returned by id.
func (q *Queue) AddEntries(ctx context.Context, ids []string) ([]Item, []string, error) {
	if q.repo == nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "ocrqueue", "add entries", "no catalog configured", nil)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	items, err := q.load()
	if err != nil {
		return nil, nil, err
	}

	var added []Item
	var skipped []string
	for _, id := range ids {
		entry, ok, err := q.repo.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		asset, ok := q.assetPath(entry)
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		if item, isNew := q.appendItem(&items, asset, "manual_request_book_"+id, "", id); isNew {
			added = append(added, item)
		}
	}
	if len(added) > 0 {
		if err := q.save(items); err != nil {
			return nil, nil, err
		}
	}
	logging.WithContext(ctx, q.logger).Info("catalog entries queued for ocr",
		logging.Int("added", len(added)),
		logging.Int("skipped", len(skipped)),
	)
	return added, skipped, nil
}

// assetPath finds the PDF belonging to entry.
func (q *Queue) assetPath(entry catalog.Entry) (string, bool) {
	if entry.FolderName == "" {
		return "", false
	}
	dir := filepath.Join(q.libraryDir, entry.FolderName)
	if strings.EqualFold(filepath.Ext(entry.Filename), ".pdf") {
		path := filepath.Join(dir, entry.Filename)
		if fileutil.Exists(path) {
			return path, true
		}
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// List returns every item in insertion order.
func (q *Queue) List(ctx context.Context) ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

// PendingPaths returns the files referenced by pending items.
func (q *Queue) PendingPaths(ctx context.Context) ([]string, error) {
	items, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, item := range items {
		if item.Status == StatusPending {
			paths = append(paths, item.Path)
		}
	}
	return paths, nil
}

// Summary counts items per status.
func (q *Queue) Summary(ctx context.Context) (Summary, error) {
	items, err := q.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case StatusPending:
			s.Pending++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusMissing:
			s.Missing++
		case StatusError:
			s.Errors++
		}
	}
	return s, nil
}

// Process runs OCR over up to max pending items (all when max <= 0) in
// order. Each outcome is recorded independently and the queue is saved after
// every item.
func (q *Queue) Process(ctx context.Context, max int) (BatchSummary, error) {
	if q.extractor == nil {
		return BatchSummary{}, services.Wrap(services.ErrConfiguration, "ocrqueue", "process", "no extractor configured", nil)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		return BatchSummary{}, err
	}
	batchID := uuid.NewString()
	ctx = services.WithCorrelationID(ctx, batchID)
	logger := logging.WithContext(ctx, q.logger)

	summary := BatchSummary{EntryIDs: []string{}}
	for i := range items {
		if items[i].Status != StatusPending {
			continue
		}
		if max > 0 && summary.Processed >= max {
			break
		}
		if ctx.Err() != nil {
			break
		}
		summary.Processed++
		q.processItem(ctx, &items[i])
		switch items[i].Status {
		case StatusCompleted:
			summary.Completed++
			summary.EntryIDs = append(summary.EntryIDs, items[i].EntryID)
		case StatusFailed:
			summary.Failed++
		case StatusMissing:
			summary.Missing++
		case StatusError:
			summary.Errors++
		}
		if err := q.save(items); err != nil {
			return summary, err
		}
	}
	logger.Info("ocr batch complete",
		logging.Int("processed", summary.Processed),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("missing", summary.Missing),
		logging.Int("errors", summary.Errors),
	)
	return summary, nil
}

func (q *Queue) processItem(ctx context.Context, item *Item) {
	ctx = services.WithStage(services.WithDocumentID(ctx, item.Filename), "ocr")
	logger := logging.WithContext(ctx, q.logger)
	defer func() {
		if r := recover(); r != nil {
			item.Status = StatusError
			item.Error = fmt.Sprintf("panic: %v", r)
			logging.ErrorWithContext(logger, "ocr item crashed", "ocr_item_error",
				logging.String("path", item.Path),
				logging.String("error", item.Error),
			)
		}
	}()

	if !fileutil.Exists(item.Path) {
		item.Status = StatusMissing
		logging.WarnWithContext(logger, "ocr source missing", "ocr_file_missing",
			logging.String("path", item.Path),
			logging.String(logging.FieldImpact, "the item is closed without processing"),
		)
		return
	}

	draft := q.extractor.ExtractOCR(ctx, item.Path)
	item.Confidence = draft.Confidence
	if !draft.Success || draft.Confidence <= q.threshold {
		item.Status = StatusFailed
		item.Error = draft.Error
		if item.Error == "" {
			item.Error = "OCR extraction failed"
		}
		logger.Info("ocr below commit threshold", logging.Args(append(
			logging.DecisionAttrs("ocr_commit", "failed", item.Error),
			logging.Float64("confidence", draft.Confidence),
		)...)...)
		return
	}

	entryID, err := q.commit(ctx, *item, draft)
	if err != nil {
		item.Status = StatusError
		item.Error = err.Error()
		logging.ErrorWithContext(logger, "ocr commit failed", "ocr_commit_failed",
			logging.String("path", item.Path),
			logging.Error(err),
		)
		return
	}
	now := q.now().UTC()
	item.Status = StatusCompleted
	item.Completed = &now
	item.EntryID = entryID
	item.Error = ""
	logger.Info("ocr committed", logging.Args(append(
		logging.DecisionAttrs("ocr_commit", "completed", "confidence above threshold"),
		logging.String("entry_id", entryID),
		logging.Float64("confidence", draft.Confidence),
	)...)...)
}

// refreshFields is what an OCR re-read may merge into a catalogued entry. An
// unenriched draft only carries the filename fallback for title and author, so
// only its ISBN is trusted.
func refreshFields(draft extraction.Draft) catalog.Metadata {
	if draft.Enriched {
		return draft.Fields
	}
	return catalog.Metadata{ISBN: draft.Fields.ISBN}
}

// commit finalizes a new document, or refreshes an existing entry when the
// item came from AddEntries.
func (q *Queue) commit(ctx context.Context, item Item, draft extraction.Draft) (string, error) {
	if item.EntryID != "" && q.repo != nil {
		entry, ok, err := q.repo.Get(ctx, item.EntryID)
		if err != nil {
			return "", err
		}
		if ok {
			entry.ApplyEnrichment(refreshFields(draft))
			entry.ExtractionMethod = string(draft.Method)
			entry.ExtractionConfidence = draft.Confidence
			if err := q.repo.Upsert(ctx, entry); err != nil {
				return "", err
			}
			return entry.ID, nil
		}
	}
	if q.finalizer == nil {
		return "", services.Wrap(services.ErrConfiguration, "ocrqueue", "commit", "no finalizer configured", nil)
	}
	return q.finalizer.Finalize(ctx, catalog.Submission{
		SourcePath:  item.Path,
		Fields:      draft.Fields,
		Method:      string(draft.Method),
		Confidence:  draft.Confidence,
		TextPath:    draft.TextPath,
		Contributor: item.Contributor,
		Action:      catalog.CopyNewEntry,
	})
}
