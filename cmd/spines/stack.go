package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spines/internal/catalog"
	"spines/internal/catalog/sqlitemirror"
	"spines/internal/config"
	"spines/internal/enrichment"
	"spines/internal/extraction"
	"spines/internal/ingest"
	"spines/internal/notifications"
	"spines/internal/ocrqueue"
	"spines/internal/review"
	"spines/internal/similarity"
)

// stack holds every wired component a command may need.
type stack struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *catalog.JSONStore
	shelves   *catalog.CollectionStore
	repo      catalog.Repository
	mirror    *sqlitemirror.Store
	enrich    *enrichment.Client
	engine    *extraction.Engine
	detector  *similarity.Detector
	finalizer *ingest.Finalizer
	review    *review.Queue
	ocr       *ocrqueue.Queue
	notifier  notifications.Service
	pipeline  *ingest.Pipeline
}

func buildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stack, error) {
	s := &stack{cfg: cfg, logger: logger}
	s.store = catalog.NewJSONStore(cfg.LibraryIndexPath(), cfg.Paths.LibraryDir, logger)
	s.repo = s.store
	s.shelves = catalog.NewCollectionStore(cfg.CollectionsPath(), logger)
	if cfg.Catalog.SQLiteMirror {
		mirror, err := sqlitemirror.Open(ctx, cfg.MirrorPath())
		if err != nil {
			return nil, fmt.Errorf("open catalog mirror: %w", err)
		}
		s.mirror = mirror
		s.repo = catalog.NewMirrored(s.store, mirror, logger)
	}

	detector, err := similarity.NewFromConfig(cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	s.detector = detector
	s.enrich = enrichment.NewFromConfig(cfg, logger)
	s.engine = extraction.NewEngine(cfg,
		extraction.WithEnrichment(s.enrich),
		extraction.WithLogger(logger),
	)
	s.finalizer = ingest.NewFinalizer(s.repo, detector, cfg.Paths.LibraryDir, logger, ingest.WithLibrary(s.store))
	s.review = review.New(cfg.ReviewQueuePath(), logger,
		review.WithFinalizer(s.finalizer),
		review.WithCatalog(s.repo, detector),
	)
	s.ocr = ocrqueue.New(cfg.OCRQueuePath(), logger,
		ocrqueue.WithExtractor(s.engine),
		ocrqueue.WithFinalizer(s.finalizer),
		ocrqueue.WithCatalog(s.repo, cfg.Paths.LibraryDir),
		ocrqueue.WithCommitThreshold(cfg.Extraction.OCRCommitThreshold),
	)
	s.notifier = notifications.NewService(cfg)
	s.pipeline = ingest.NewPipeline(cfg, ingest.Deps{
		Extractor: s.engine,
		Repo:      s.repo,
		Library:   s.store,
		Detector:  detector,
		Review:    s.review,
		OCR:       s.ocr,
		Finalizer: s.finalizer,
		Notifier:  s.notifier,
		Logger:    logger,
	})
	return s, nil
}

// syncMirror rebuilds the sqlite mirror from library.json.
func (s *stack) syncMirror(ctx context.Context) (int, error) {
	m, ok := s.repo.(*catalog.MirroredRepository)
	if !ok {
		return 0, errors.New("sqlite mirror is disabled; set catalog.sqlite_mirror = true")
	}
	return m.Sync(ctx)
}

func (s *stack) close() error {
	if s.mirror != nil {
		return s.mirror.Close()
	}
	return nil
}
