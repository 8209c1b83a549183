package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spines/internal/catalog"
	"spines/internal/extraction"
	"spines/internal/fileutil"
	"spines/internal/logging"
	"spines/internal/services"
	"spines/internal/similarity"
)

// Library is the library-level bookkeeping the JSON store offers beyond the
// Repository contract.
type Library interface {
	AddContributor(ctx context.Context, name string) error
	MarkScanned(ctx context.Context, at time.Time) error
}

// Finalizer commits accepted documents.
type Finalizer struct {
	repo       catalog.Repository
	library    Library
	detector   *similarity.Detector
	libraryDir string
	logger     *slog.Logger
	now        func() time.Time
}

// FinalizerOption configures a Finalizer.
type FinalizerOption func(*Finalizer)

// WithLibrary records contributors in the library metadata block.
func WithLibrary(lib Library) FinalizerOption {
	return func(f *Finalizer) { f.library = lib }
}

// WithFinalizerClock overrides the time source for date_added.
func WithFinalizerClock(now func() time.Time) FinalizerOption {
	return func(f *Finalizer) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFinalizer builds a finalizer writing assets under libraryDir.
func NewFinalizer(repo catalog.Repository, detector *similarity.Detector, libraryDir string, logger *slog.Logger, opts ...FinalizerOption) *Finalizer {
	if detector == nil {
		detector = similarity.New()
	}
	f := &Finalizer{
		repo:       repo,
		detector:   detector,
		libraryDir: libraryDir,
		logger:     logging.NewComponentLogger(logger, "ingest"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize commits sub and returns the catalog entry id it resolved to.
// Failures are returned to the caller; nothing is retried here.
func (f *Finalizer) Finalize(ctx context.Context, sub catalog.Submission) (string, error) {
	contributor := strings.TrimSpace(sub.Contributor)
	if contributor == "" {
		return "", services.Wrap(services.ErrValidation, "finalize", "contributor", "contributor is required", nil)
	}
	action, err := catalog.ParseCopyAction(string(sub.Action))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(sub.SourcePath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "finalize", "source", "document missing", err)
	}
	id, err := fileutil.ContentID(sub.SourcePath)
	if err != nil {
		return "", err
	}
	ctx = services.WithStage(services.WithDocumentID(ctx, id), "finalize")
	logger := logging.WithContext(ctx, f.logger)

	fields := sub.Fields
	sub.Edits.ApplyMetadata(&fields)

	suffix := ""
	existing, found, err := f.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if found {
		if existing.HasContributor(contributor) {
			f.discard(sub)
			logger.Info("document already catalogued", logging.Args(append(
				logging.DecisionAttrs("finalize_identity", "existing", "same content and contributor"),
				logging.String("entry_id", id),
			)...)...)
			return id, nil
		}
		if action == catalog.CopyAddToExisting {
			return f.merge(ctx, existing, contributor, sub, "same content, contributor added")
		}
		id = CopyID(id, contributor)
		suffix = CopySuffix(contributor)
		if prior, ok, err := f.repo.Get(ctx, id); err != nil {
			return "", err
		} else if ok && prior.HasContributor(contributor) {
			f.discard(sub)
			return id, nil
		}
	}

	entries, err := f.repo.GetAll(ctx)
	if err != nil {
		return "", err
	}
	matches := f.detector.FindSimilar(fields, id, entries)
	if !found && len(matches) > 0 {
		best := matches[0]
		switch {
		case action == catalog.CopyAddToExisting:
			return f.merge(ctx, best.Entry, contributor, sub, "merged into "+string(best.Classification)+" match")
		case action == catalog.CopyAuto && best.Entry.HasContributor(contributor):
			return f.merge(ctx, best.Entry, contributor, sub, "contributor already holds a "+string(best.Classification)+" match")
		case action == catalog.CopyNewEntry:
			// related copies only
		default:
			suffix = CopySuffix(contributor)
		}
	}

	entry := catalog.Entry{
		ID:                   id,
		Metadata:             fields,
		FileType:             catalog.FileTypeFor(sub.SourcePath),
		FileSize:             info.Size(),
		Contributors:         []string{contributor},
		OriginalFilename:     filepath.Base(sub.SourcePath),
		DateAdded:            f.now().UTC(),
		ExtractionMethod:     sub.Method,
		ExtractionConfidence: sub.Confidence,
	}
	entry.ApplyEdits(sub.Edits)
	if !entry.ManuallyEdited(catalog.FieldMediaType) {
		entry.MediaType = catalog.DetectMediaType(entry.Metadata)
	}
	entry.FolderName = f.folderFor(DisplayName(entry.Metadata, entry.MediaType)+suffix, id)
	entry.Filename = entry.FolderName + strings.ToLower(filepath.Ext(sub.SourcePath))
	for _, m := range matches {
		entry.LinkRelated(m.Snapshot())
	}

	asset := filepath.Join(f.libraryDir, entry.FolderName, entry.Filename)
	if err := fileutil.MoveFile(sub.SourcePath, asset); err != nil {
		return "", services.Wrap(services.ErrTransient, "finalize", "move asset", entry.Filename, err)
	}
	f.moveSidecar(sub, asset, logger)

	if err := f.repo.Upsert(ctx, entry); err != nil {
		if rbErr := fileutil.MoveFile(asset, sub.SourcePath); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("restore source: %w", rbErr))
		}
		return "", err
	}
	f.recordContributor(ctx, contributor, logger)
	f.backLink(ctx, entry, matches, logger)

	logger.Info("document catalogued", logging.Args(append(
		logging.DecisionAttrs("finalize_identity", "new_entry", identityReason(found, len(matches), suffix)),
		logging.String("entry_id", entry.ID),
		logging.String("folder", entry.FolderName),
		logging.Int("related_copies", len(entry.RelatedCopies)),
	)...)...)
	return entry.ID, nil
}

func identityReason(hashMatch bool, matches int, suffix string) string {
	switch {
	case hashMatch:
		return "same content, new contributor copy"
	case suffix != "":
		return "separate copy of a similar entry"
	case matches > 0:
		return "new entry with related copies"
	default:
		return "new content"
	}
}

// merge adds contributor to target and discards the incoming file.
func (f *Finalizer) merge(ctx context.Context, target catalog.Entry, contributor string, sub catalog.Submission, reason string) (string, error) {
	if target.AddContributor(contributor) {
		if err := f.repo.Upsert(ctx, target); err != nil {
			return "", err
		}
		f.recordContributor(ctx, contributor, logging.WithContext(ctx, f.logger))
	}
	f.discard(sub)
	logging.WithContext(ctx, f.logger).Info("contributor merged", logging.Args(append(
		logging.DecisionAttrs("finalize_identity", "add_to_existing", reason),
		logging.String("entry_id", target.ID),
	)...)...)
	return target.ID, nil
}

// folderFor returns name, disambiguated with the id when another asset
// already occupies the folder.
func (f *Finalizer) folderFor(name, id string) string {
	if _, err := os.Stat(filepath.Join(f.libraryDir, name)); errors.Is(err, os.ErrNotExist) {
		return name
	}
	return name + "_" + id
}

func (f *Finalizer) sidecarOf(sub catalog.Submission) string {
	if sub.TextPath != "" && fileutil.Exists(sub.TextPath) {
		return sub.TextPath
	}
	return extraction.SidecarFor(sub.SourcePath)
}

func (f *Finalizer) moveSidecar(sub catalog.Submission, asset string, logger *slog.Logger) {
	src := f.sidecarOf(sub)
	if !fileutil.Exists(src) {
		return
	}
	if err := fileutil.MoveFile(src, extraction.SidecarFor(asset)); err != nil {
		logging.WarnWithContext(logger, "text sidecar not moved", "sidecar_move_failed",
			logging.String("path", src),
			logging.Error(err),
			logging.String(logging.FieldImpact, "recovered text stays in the temp directory"),
		)
	}
}

func (f *Finalizer) discard(sub catalog.Submission) {
	for _, path := range []string{sub.SourcePath, f.sidecarOf(sub)} {
		if err := fileutil.RemoveIfExists(path); err != nil {
			logging.WarnWithContext(f.logger, "duplicate file not removed", "duplicate_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the file remains in the temp directory"),
			)
		}
	}
}

func (f *Finalizer) recordContributor(ctx context.Context, contributor string, logger *slog.Logger) {
	if f.library == nil {
		return
	}
	if err := f.library.AddContributor(ctx, contributor); err != nil {
		logging.WarnWithContext(logger, "contributor list not updated", "contributor_update_failed",
			logging.String("contributor", contributor),
			logging.Error(err),
		)
	}
}

// backLink records the new entry on every matched entry. Failures are logged.
func (f *Finalizer) backLink(ctx context.Context, entry catalog.Entry, matches []similarity.Match, logger *slog.Logger) {
	for _, m := range matches {
		other := m.Entry
		other.LinkRelated(entry.RelatedCopy(string(m.Classification), m.Confidence))
		if err := f.repo.Upsert(ctx, other); err != nil {
			logging.WarnWithContext(logger, "related copy back-link failed", "related_copy_failed",
				logging.String("entry_id", entry.ID),
				logging.String("related_id", other.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the related entry does not list the new copy"),
			)
		}
	}
}
