package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"spines/internal/catalog"
	"spines/internal/config"
	"spines/internal/extraction"
	"spines/internal/fileutil"
	"spines/internal/logging"
	"spines/internal/notifications"
	"spines/internal/ocrqueue"
	"spines/internal/review"
	"spines/internal/services"
	"spines/internal/similarity"
)

// Status is where Process sent a document.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusReview    Status = "review_queue"
	StatusOCR       Status = "ocr_queue"
	StatusFailed    Status = "failed"
)

// Outcome reports the routing of one document.
type Outcome struct {
	Path       string  `json:"path"`
	Status     Status  `json:"status"`
	EntryID    string  `json:"entry_id,omitempty"`
	ReviewID   string  `json:"review_id,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// Extractor runs the automatic escalation.
type Extractor interface {
	Extract(ctx context.Context, path string) extraction.Result
}

// ReviewQueue is the part of the review queue the pipeline feeds.
type ReviewQueue interface {
	Add(ctx context.Context, req review.Request) (string, error)
}

// OCRQueue is the part of the OCR queue the pipeline feeds.
type OCRQueue interface {
	Add(ctx context.Context, path, reason, contributor string) (ocrqueue.Item, error)
}

// Committer commits auto-accepted documents.
type Committer interface {
	Finalize(ctx context.Context, sub catalog.Submission) (string, error)
}

// Deps are the collaborators a Pipeline routes between.
type Deps struct {
	Extractor Extractor
	Repo      catalog.Repository
	Library   Library
	Detector  *similarity.Detector
	Review    ReviewQueue
	OCR       OCRQueue
	Finalizer Committer
	Notifier  notifications.Service
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Pipeline is the upload path.
type Pipeline struct {
	deps       Deps
	tempDir    string
	autoAccept float64
	ocrFloor   float64
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline wires a pipeline from configuration.
func NewPipeline(cfg *config.Config, deps Deps) *Pipeline {
	if deps.Detector == nil {
		deps.Detector = similarity.New()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Pipeline{
		deps:       deps,
		tempDir:    cfg.Paths.TempDir,
		autoAccept: cfg.Extraction.AutoAcceptThreshold,
		ocrFloor:   cfg.Extraction.OCRFloor,
		logger:     logging.NewComponentLogger(deps.Logger, "ingest"),
		now:        deps.Clock,
	}
}

// Stage copies src into the temp directory so the pipeline owns the file it
// moves or deletes. The original base name is kept unless it is taken.
func (p *Pipeline) Stage(src string) (string, error) {
	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	dst := filepath.Join(p.tempDir, base)
	for n := 2; fileutil.Exists(dst); n++ {
		dst = filepath.Join(p.tempDir, stem+"-"+strconv.Itoa(n)+ext)
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		return "", fmt.Errorf("stage %s: %w", base, err)
	}
	return dst, nil
}

// Process routes one staged document. Routing failures are reported in the
// outcome and the returned error.
func (p *Pipeline) Process(ctx context.Context, path, contributor string) (Outcome, error) {
	out := Outcome{Path: path}
	contributor = strings.TrimSpace(contributor)
	if contributor == "" {
		err := services.Wrap(services.ErrValidation, "ingest", "process", "contributor is required", nil)
		return p.failed(out, err)
	}
	correlationID := uuid.NewString()
	ctx = services.WithCorrelationID(services.WithDocumentID(ctx, filepath.Base(path)), correlationID)
	logger := logging.WithContext(ctx, p.logger)

	hash, err := fileutil.ContentID(path)
	if err != nil {
		return p.failed(out, services.Wrap(services.ErrNotFound, "ingest", "hash", "document unreadable", err))
	}
	existing, found, err := p.deps.Repo.Get(ctx, hash)
	if err != nil {
		return p.failed(out, err)
	}
	if found {
		return p.routeHashMatch(ctx, out, existing, contributor, correlationID)
	}

	result := p.deps.Extractor.Extract(ctx, path)
	best := result.Best
	out.Confidence = best.Confidence

	if best.Confidence < p.ocrFloor {
		reason := fmt.Sprintf("low_confidence_%.2f", best.Confidence)
		if _, err := p.deps.OCR.Add(ctx, path, reason, contributor); err != nil {
			return p.failed(out, err)
		}
		out.Status, out.Reason = StatusOCR, reason
		p.logRoute(logger, out)
		return out, nil
	}

	entries, err := p.deps.Repo.GetAll(ctx)
	if err != nil {
		return p.failed(out, err)
	}
	matches := p.deps.Detector.FindSimilar(best.Fields, "", entries)
	dup, hasDup := similarity.FirstDuplicate(matches)

	if best.Confidence >= p.autoAccept && !hasDup {
		id, err := p.deps.Finalizer.Finalize(ctx, catalog.Submission{
			SourcePath:  path,
			Fields:      best.Fields,
			Method:      string(best.Method),
			Confidence:  best.Confidence,
			TextPath:    best.TextPath,
			Contributor: contributor,
			Action:      catalog.CopyNewEntry,
		})
		if err != nil {
			return p.failed(out, err)
		}
		out.Status, out.EntryID, out.Reason = StatusProcessed, id, "auto_accepted"
		p.logRoute(logger, out)
		return out, nil
	}

	reason := fmt.Sprintf("moderate_confidence_%.2f", best.Confidence)
	if !best.IdentifierFound {
		reason += "_no_isbn"
	}
	if hasDup {
		reason = "possible_duplicate_of_" + dup.EntryID
	}
	return p.toReview(ctx, out, review.Request{
		Path:          path,
		Contributor:   contributor,
		Reason:        reason,
		Result:        result,
		CorrelationID: correlationID,
	})
}

func (p *Pipeline) routeHashMatch(ctx context.Context, out Outcome, existing catalog.Entry, contributor, correlationID string) (Outcome, error) {
	draft := extraction.Draft{
		Method:          extraction.Method(existing.ExtractionMethod),
		Success:         true,
		Fields:          existing.Metadata,
		Confidence:      existing.ExtractionConfidence,
		IdentifierFound: existing.ISBN != "",
	}
	out.Confidence = draft.Confidence
	req := review.Request{
		Path:          out.Path,
		Contributor:   contributor,
		Result:        extraction.Result{Best: draft},
		CorrelationID: correlationID,
	}
	if existing.HasContributor(contributor) {
		req.Reason = "duplicate_file_same_contributor_" + contributor
		req.DuplicateOf = existing.ID
	} else {
		req.Reason = "same_file_different_contributor_" + contributor
		req.PotentialMulticopyOf = existing.ID
	}
	return p.toReview(ctx, out, req)
}

func (p *Pipeline) toReview(ctx context.Context, out Outcome, req review.Request) (Outcome, error) {
	id, err := p.deps.Review.Add(ctx, req)
	if err != nil {
		return p.failed(out, err)
	}
	out.Status, out.ReviewID, out.Reason = StatusReview, id, req.Reason
	logger := logging.WithContext(ctx, p.logger)
	p.logRoute(logger, out)
	payload := notifications.Payload{"filename": filepath.Base(req.Path), "reason": req.Reason, "review_id": id}
	if err := p.deps.Notifier.Publish(ctx, notifications.EventReviewNeeded, payload); err != nil {
		logging.WarnWithContext(logger, "review notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "item is queued but nobody was told"))
	}
	return out, nil
}

func (p *Pipeline) failed(out Outcome, err error) (Outcome, error) {
	out.Status = StatusFailed
	out.Reason = services.FailureReason(err)
	out.Error = err.Error()
	logging.ErrorWithContext(p.logger, "ingest failed", "ingest_failed",
		logging.String("path", out.Path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the staged file is kept in the temp directory until the cleanup age passes; retry after fixing the cause"),
	)
	return out, err
}

func (p *Pipeline) logRoute(logger *slog.Logger, out Outcome) {
	logger.Info("document routed", logging.Args(append(
		logging.DecisionAttrs("ingest_route", string(out.Status), out.Reason),
		logging.Float64("confidence", out.Confidence),
		logging.String("entry_id", out.EntryID),
		logging.String("review_id", out.ReviewID),
	)...)...)
}
