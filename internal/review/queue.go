package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"spines/internal/catalog"
	"spines/internal/extraction"
	"spines/internal/fileutil"
	"spines/internal/jsonfile"
	"spines/internal/logging"
	"spines/internal/services"
	"spines/internal/similarity"
	"spines/internal/staging"
)

// SimilarLimit caps the matches Similar returns.
const SimilarLimit = 5

// Finalizer commits an approved document.
type Finalizer interface {
	Finalize(ctx context.Context, sub catalog.Submission) (string, error)
}

// Approval carries the operator's decision for one item.
type Approval struct {
	Action catalog.CopyAction
	Edits  catalog.Edits
}

// Queue is the persisted review queue.
type Queue struct {
	path      string
	logger    *slog.Logger
	now       func() time.Time
	finalizer Finalizer
	repo      catalog.Repository
	detector  *similarity.Detector

	mu sync.Mutex
}

// Option configures a Queue.
type Option func(*Queue)

// WithFinalizer sets the component approvals are handed to.
func WithFinalizer(f Finalizer) Option {
	return func(q *Queue) { q.finalizer = f }
}

// WithCatalog enables Similar against repo.
func WithCatalog(repo catalog.Repository, detector *similarity.Detector) Option {
	return func(q *Queue) {
		q.repo = repo
		q.detector = detector
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
		path:   path,
		logger: logging.NewComponentLogger(logger, "review"),
		now:    time.Now,
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

// Add queues a document and returns its review id. The id is the content
// hash of the file; adding a path that is already queued returns the
// existing id without creating a second item.
func (q *Queue) Add(ctx context.Context, req Request) (string, error) {
	if req.Path == "" {
		return "", services.Wrap(services.ErrValidation, "review", "add", "path is required", nil)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		return "", err
	}
	for _, item := range items {
		if item.Path == req.Path {
			return item.ID, nil
		}
	}

	hash, err := fileutil.ContentID(req.Path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "review", "add", "document unreadable", err)
	}
	best := req.Result.Best
	item := Item{
		ID:                   uniqueID(hash, items),
		Path:                 req.Path,
		Filename:             filepath.Base(req.Path),
		Contributor:          req.Contributor,
		Reason:               req.Reason,
		Status:               StatusPending,
		AddedAt:              q.now().UTC(),
		ExtractionMethod:     string(best.Method),
		ExtractionConfidence: best.Confidence,
		IdentifierFound:      best.IdentifierFound,
		Draft:                best,
		Attempts:             req.Result.Methods(),
		CorrelationID:        req.CorrelationID,
		DuplicateOf:          req.DuplicateOf,
		PotentialMulticopyOf: req.PotentialMulticopyOf,
	}
	items = append(items, item)
	if err := q.save(items); err != nil {
		return "", err
	}
	logging.WithContext(ctx, q.logger).Info("queued for review",
		logging.String("review_id", item.ID),
		logging.String("reason", item.Reason),
		logging.Float64("confidence", item.ExtractionConfidence),
	)
	return item.ID, nil
}

func uniqueID(base string, items []Item) string {
	taken := make(map[string]struct{}, len(items))
	for _, item := range items {
		taken[item.ID] = struct{}{}
	}
	id := base
	for n := 2; ; n++ {
		if _, ok := taken[id]; !ok {
			return id
		}
		id = base + "_" + strconv.Itoa(n)
	}
}

// List returns every item after refreshing file liveness.
func (q *Queue) List(ctx context.Context) ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items, _, err := q.refresh(ctx)
	return items, err
}

// CheckLiveness flips items whose backing file vanished to file_missing and
// returns how many changed.
func (q *Queue) CheckLiveness(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, missing, err := q.refresh(ctx)
	return missing, err
}

func (q *Queue) refresh(ctx context.Context) ([]Item, int, error) {
	items, err := q.load()
	if err != nil {
		return nil, 0, err
	}
	changed, missing := false, 0
	for i := range items {
		exists := fileutil.Exists(items[i].Path)
		switch {
		case !exists && items[i].Status == StatusPending:
			items[i].Status = StatusFileMissing
			changed = true
			missing++
			logging.WarnWithContext(logging.WithContext(ctx, q.logger), "review item file missing", "review_file_missing",
				logging.String("review_id", items[i].ID),
				logging.String("path", items[i].Path),
				logging.String(logging.FieldErrorHint, "reject the item to clear it"),
				logging.String(logging.FieldImpact, "the item cannot be approved"),
			)
		case exists && items[i].Status == StatusFileMissing:
			items[i].Status = StatusPending
			changed = true
		}
	}
	if changed {
		if err := q.save(items); err != nil {
			return nil, 0, err
		}
	}
	return items, missing, nil
}

// Get returns a single item.
func (q *Queue) Get(ctx context.Context, id string) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items, err := q.load()
	if err != nil {
		return Item{}, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return Item{}, notFound(id)
	}
	return items[idx], nil
}

// Approve hands the item to the finalizer and removes it from the queue. A
// finalize failure leaves the item in processing_failed.
func (q *Queue) Approve(ctx context.Context, id string, approval Approval) (string, error) {
	if q.finalizer == nil {
		return "", services.Wrap(services.ErrConfiguration, "review", "approve", "no finalizer configured", nil)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		return "", err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return "", notFound(id)
	}
	item := items[idx]
	ctx = services.WithStage(services.WithDocumentID(ctx, item.ID), "approve")
	logger := logging.WithContext(ctx, q.logger)

	if !fileutil.Exists(item.Path) {
		items[idx].Status = StatusFileMissing
		if err := q.save(items); err != nil {
			return "", err
		}
		return "", services.Wrap(services.ErrNotFound, "review", "approve", "backing file is missing", nil)
	}

	action := approval.Action
	if action == "" {
		action = catalog.CopyAuto
	}
	sub := catalog.Submission{
		SourcePath:  item.Path,
		Fields:      item.Draft.Fields,
		Method:      string(item.Draft.Method),
		Confidence:  item.Draft.Confidence,
		TextPath:    item.Draft.TextPath,
		Contributor: item.Contributor,
		Action:      action,
		Edits:       approval.Edits,
	}
	entryID, err := q.finalize(ctx, sub)
	if err != nil {
		items[idx].Status = StatusFailed
		items[idx].Error = err.Error()
		if saveErr := q.save(items); saveErr != nil {
			return "", errors.Join(err, saveErr)
		}
		logging.ErrorWithContext(logger, "approval failed", "review_approve_failed",
			logging.String("review_id", id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the cause and approve again, or reject"),
		)
		return "", err
	}

	items = append(items[:idx], items[idx+1:]...)
	if err := q.save(items); err != nil {
		return entryID, err
	}
	logger.Info("review approved", logging.Args(append(
		logging.DecisionAttrs("review_approval", string(action), "operator approved"),
		logging.String("review_id", id),
		logging.String("entry_id", entryID),
	)...)...)
	return entryID, nil
}

func (q *Queue) finalize(ctx context.Context, sub catalog.Submission) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("finalize panicked: %v", r)
		}
	}()
	return q.finalizer.Finalize(ctx, sub)
}

// Reject removes the item and deletes its temp file and text sidecar. Files
// that are already gone are ignored.
func (q *Queue) Reject(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		return err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return notFound(id)
	}
	item := items[idx]
	for _, path := range []string{item.Path, extraction.SidecarFor(item.Path), item.Draft.TextPath} {
		if err := fileutil.RemoveIfExists(path); err != nil {
			logging.WarnWithContext(q.logger, "rejected file not removed", "review_reject_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the file remains in the temp directory"),
			)
		}
	}
	items = append(items[:idx], items[idx+1:]...)
	if err := q.save(items); err != nil {
		return err
	}
	logging.WithContext(ctx, q.logger).Info("review rejected", logging.String("review_id", id))
	return nil
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
		case StatusFileMissing:
			s.FileMissing++
		case StatusFailed:
			s.Failed++
		}
	}
	return s, nil
}

// Similar returns the closest catalog matches for an item's draft.
func (q *Queue) Similar(ctx context.Context, id string) ([]similarity.Match, error) {
	if q.repo == nil || q.detector == nil {
		return nil, services.Wrap(services.ErrConfiguration, "review", "similar", "no catalog configured", nil)
	}
	item, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := q.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	matches := q.detector.FindSimilar(item.Draft.Fields, "", entries)
	if len(matches) > SimilarLimit {
		matches = matches[:SimilarLimit]
	}
	return matches, nil
}

// CleanupResult reports a temp directory sweep.
type CleanupResult struct {
	Cleaned int `json:"cleaned"`
	Recent  int `json:"recent"`
	Errors  int `json:"errors"`
}

// CleanupTemp deletes top-level files in tempDir that no queued item
// references. keep lists additional referenced paths, such as pending OCR
// queue items. Sidecars of referenced files are kept too. Files modified within
// staging.DefaultMaxAge are left alone so in-flight and failed ingests survive,
// and extraction scratch entries are left to staging.CleanStale.
func (q *Queue) CleanupTemp(ctx context.Context, tempDir string, keep ...string) (CleanupResult, error) {
	q.mu.Lock()
	items, err := q.load()
	q.mu.Unlock()
	if err != nil {
		return CleanupResult{}, err
	}

	refs := make(map[string]struct{})
	reference := func(path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		refs[abs] = struct{}{}
		refs[extraction.SidecarFor(abs)] = struct{}{}
	}
	for _, item := range items {
		reference(item.Path)
		reference(item.Draft.TextPath)
	}
	for _, path := range keep {
		reference(path)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CleanupResult{}, nil
		}
		return CleanupResult{}, err
	}
	cutoff := q.now().Add(-staging.DefaultMaxAge)
	var res CleanupResult
	for _, entry := range entries {
		if !entry.Type().IsRegular() || staging.IsScratch(entry.Name()) {
			continue
		}
		path, err := filepath.Abs(filepath.Join(tempDir, entry.Name()))
		if err != nil {
			res.Errors++
			continue
		}
		if _, ok := refs[path]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			res.Errors++
			continue
		}
		if cutoff.Before(info.ModTime()) {
			res.Recent++
			continue
		}
		if err := os.Remove(path); err != nil {
			res.Errors++
			continue
		}
		res.Cleaned++
	}
	logging.WithContext(ctx, q.logger).Info("temp cleanup complete",
		logging.Int("cleaned", res.Cleaned),
		logging.Int("recent_kept", res.Recent),
		logging.Int("errors", res.Errors),
	)
	return res, nil
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) error {
	return services.Wrap(services.ErrNotFound, "review", "lookup", fmt.Sprintf("review item %q not found", id), nil)
}
