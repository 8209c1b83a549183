package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"time"

	"spines/internal/catalog"
	"spines/internal/enrichment"
	"spines/internal/logging"
	"spines/internal/services"
	"spines/internal/services/calibre"
	"spines/internal/services/pdfinfo"
	"spines/internal/services/poppler"
	"spines/internal/services/tesseract"
)

// Extractor is one extraction strategy. The set is closed; callers select
// methods through the Engine.
type Extractor interface {
	Method() Method
	Extract(ctx context.Context, doc Document) Draft
	sealed()
}

// PDFInspector reads page counts and document info from a PDF.
type PDFInspector interface {
	Inspect(path string) (pdfinfo.Info, error)
}

// toolkit is the shared environment each extractor draws on.
type toolkit struct {
	calibre   *calibre.Client
	poppler   *poppler.Client
	tesseract *tesseract.Client
	pdf       PDFInspector
	enrich    enrichment.Looker
	logger    *slog.Logger
	now       func() time.Time
	workDir   string

	basicFirst int
	basicLast  int
	basicMax   int
	ocrFirst   int
	ocrLast    int
	ocrDPI     int
}

// enrichDraft merges a provider record into d when its ISBN resolves.
func (t *toolkit) enrichDraft(ctx context.Context, d *Draft, bonus float64) {
	if t.enrich == nil || d.Fields.ISBN == "" {
		return
	}
	rec, ok := t.enrich.Lookup(ctx, d.Fields.ISBN)
	if !ok {
		return
	}
	catalog.MergeEnrichment(&d.Fields, rec.Metadata(d.Fields.ISBN), nil)
	d.Enriched = true
	d.Provider = rec.Provider
	d.Confidence += bonus
}

// writeSidecar stores recovered text next to the document.
func (t *toolkit) writeSidecar(doc Document, text string) string {
	path := doc.SidecarPath()
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		logging.WarnWithContext(t.logger, "text sidecar not written", "sidecar_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "recovered text will not be kept with the document"),
		)
		return ""
	}
	return path
}

func (t *toolkit) plausibleYear(year int) bool {
	return year >= minPlausibleYear && year <= t.now().Year()
}

var publishedYear = regexp.MustCompile(`\b(19|20)\d{2}\b`)

func yearFrom(value string) int {
	match := publishedYear.FindString(value)
	if match == "" {
		return 0
	}
	year, _ := strconv.Atoi(match)
	return year
}

// guarded runs an extractor and converts a panic into a failed draft.
func guarded(ctx context.Context, ex Extractor, doc Document) (draft Draft) {
	defer func() {
		if r := recover(); r != nil {
			draft = failedDraft(ex.Method(), doc, fmt.Sprintf("panic: %v", r))
		}
	}()
	ctx = services.WithStage(ctx, string(ex.Method()))
	draft = ex.Extract(ctx, doc)
	draft.Method = ex.Method()
	draft.Confidence = clamp(draft.Confidence)
	return draft
}
