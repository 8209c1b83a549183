package extraction

import (
	"context"
	"log/slog"
	"os"
	"time"

	"spines/internal/config"
	"spines/internal/enrichment"
	"spines/internal/logging"
	"spines/internal/services/calibre"
	"spines/internal/services/command"
	"spines/internal/services/pdfinfo"
	"spines/internal/services/poppler"
	"spines/internal/services/tesseract"
)

// Result is the outcome of one escalation: the best draft plus every attempt
// in the order it ran.
type Result struct {
	Best     Draft   `json:"best"`
	Attempts []Draft `json:"attempts"`
}

// Methods lists the attempted methods in order.
func (r Result) Methods() []Method {
	out := make([]Method, 0, len(r.Attempts))
	for _, d := range r.Attempts {
		out = append(out, d.Method)
	}
	return out
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	exec   command.Executor
	enrich enrichment.Looker
	logger *slog.Logger
	pdf    PDFInspector
	now    func() time.Time
}

// WithExecutor routes every external tool through exec.
func WithExecutor(exec command.Executor) Option {
	return func(o *engineOptions) {
		if exec != nil {
			o.exec = exec
		}
	}
}

// WithEnrichment sets the ISBN lookup used by every method.
func WithEnrichment(looker enrichment.Looker) Option {
	return func(o *engineOptions) { o.enrich = looker }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPDFInspector replaces the pdfcpu-backed inspector.
func WithPDFInspector(pdf PDFInspector) Option {
	return func(o *engineOptions) {
		if pdf != nil {
			o.pdf = pdf
		}
	}
}

// WithClock overrides the clock used to bound plausible years.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Engine runs the ordered escalation.
type Engine struct {
	tools      *toolkit
	escalation []Extractor
	ocr        Extractor
	autoAccept float64
	logger     *slog.Logger
}

// NewEngine builds an engine from configuration.
func NewEngine(cfg *config.Config, opts ...Option) *Engine {
	o := engineOptions{
		exec:   command.System{},
		logger: logging.NewNop(),
		pdf:    pdfinfo.New(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.NewComponentLogger(o.logger, "extraction")

	ex := &cfg.Extraction
	tools := &toolkit{
		calibre: calibre.New(
			calibre.WithExecutor(o.exec),
			calibre.WithBinaries(ex.EbookMetaBinary, ex.EbookConvertBinary),
			calibre.WithTimeouts(cfg.MetadataTimeout(), cfg.ConvertTimeout()),
		),
		poppler: poppler.New(
			poppler.WithExecutor(o.exec),
			poppler.WithBinaries(ex.PdftotextBinary, ex.PdftoppmBinary),
			poppler.WithTimeout(cfg.OCRTimeout()),
		),
		tesseract: tesseract.New(
			tesseract.WithExecutor(o.exec),
			tesseract.WithBinary(ex.TesseractBinary),
			tesseract.WithLanguage(cfg.OCR.Language),
			tesseract.WithTimeout(cfg.OCRTimeout()),
		),
		pdf:        o.pdf,
		enrich:     o.enrich,
		logger:     logger,
		now:        o.now,
		workDir:    cfg.Paths.TempDir,
		basicFirst: ex.BasicFirstPages,
		basicLast:  ex.BasicLastPages,
		basicMax:   ex.BasicMaxPages,
		ocrFirst:   cfg.OCR.FirstPages,
		ocrLast:    cfg.OCR.LastPages,
		ocrDPI:     cfg.OCR.DPI,
	}
	return &Engine{
		tools: tools,
		escalation: []Extractor{
			basicExtractor{t: tools},
			ebookMetaExtractor{t: tools},
			convertExtractor{t: tools},
		},
		ocr:        ocrExtractor{t: tools},
		autoAccept: ex.AutoAcceptThreshold,
		logger:     logger,
	}
}

// Extract runs basic, ebook_meta and ebook_convert in order, stopping at the
// first draft that reaches the auto-accept threshold.
func (e *Engine) Extract(ctx context.Context, path string) Result {
	doc := NewDocument(path)
	logger := logging.WithContext(ctx, e.logger)
	if _, err := os.Stat(path); err != nil {
		d := failedDraft(MethodBasic, doc, err.Error())
		return Result{Best: allFailed(doc), Attempts: []Draft{d}}
	}

	var res Result
	for _, ex := range e.escalation {
		if ctx.Err() != nil {
			break
		}
		draft := guarded(ctx, ex, doc)
		res.Attempts = append(res.Attempts, draft)
		logger.Debug("extraction attempt",
			logging.String("method", string(draft.Method)),
			logging.Bool("success", draft.Success),
			logging.Float64("confidence", draft.Confidence),
			logging.Bool("isbn_found", draft.IdentifierFound),
		)
		if draft.Success && draft.Confidence >= e.autoAccept {
			break
		}
	}
	res.Best = best(res.Attempts, doc)

	reason := "best of attempted methods"
	if res.Best.Confidence >= e.autoAccept {
		reason = "auto-accept threshold reached"
	}
	logger.Info("extraction complete", logging.Args(append(
		logging.DecisionAttrs("extraction_method", string(res.Best.Method), reason),
		logging.String("file", doc.Stem),
		logging.Float64("confidence", res.Best.Confidence),
		logging.Int("attempts", len(res.Attempts)),
	)...)...)
	return res
}

// ExtractOCR runs only the OCR method.
func (e *Engine) ExtractOCR(ctx context.Context, path string) Draft {
	doc := NewDocument(path)
	draft := guarded(ctx, e.ocr, doc)
	logging.WithContext(ctx, e.logger).Info("ocr extraction complete",
		logging.String("file", doc.Stem),
		logging.Bool("success", draft.Success),
		logging.Float64("confidence", draft.Confidence),
	)
	return draft
}

// AutoAcceptThreshold reports the confidence at which escalation stops.
func (e *Engine) AutoAcceptThreshold() float64 {
	return e.autoAccept
}

func best(attempts []Draft, doc Document) Draft {
	var top Draft
	found := false
	for _, d := range attempts {
		if !d.Success {
			continue
		}
		if !found || d.Confidence > top.Confidence {
			top = d
			found = true
		}
	}
	if !found {
		return allFailed(doc)
	}
	return top
}

func allFailed(doc Document) Draft {
	return failedDraft(MethodBasic, doc, "all extraction methods failed")
}
