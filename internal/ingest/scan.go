package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"spines/internal/catalog"
	"spines/internal/logging"
)

// ScanSummary reports a directory scan.
type ScanSummary struct {
	Found     int       `json:"found"`
	Skipped   int       `json:"skipped"`
	Processed int       `json:"processed"`
	Review    int       `json:"review_queue"`
	OCR       int       `json:"ocr_queue"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
}

// ScanDirectory ingests every supported document under dir, one at a time.
// Files whose name is already catalogued are skipped. Sources are staged into
// the temp directory first, so dir is never modified.
func (p *Pipeline) ScanDirectory(ctx context.Context, dir, contributor string) (ScanSummary, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && catalog.SupportedDocument(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return ScanSummary{}, err
	}
	sort.Strings(paths)

	logger := logging.WithContext(ctx, p.logger)
	summary := ScanSummary{Found: len(paths), Outcomes: []Outcome{}}
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		if _, ok, err := catalog.FindByOriginalFilename(ctx, p.deps.Repo, filepath.Base(path)); err != nil {
			return summary, err
		} else if ok {
			summary.Skipped++
			continue
		}
		staged, err := p.Stage(path)
		if err != nil {
			out, _ := p.failed(Outcome{Path: path}, err)
			summary.add(out)
			continue
		}
		out, _ := p.Process(ctx, staged, contributor)
		out.Path = path
		summary.add(out)
	}

	if p.deps.Library != nil {
		if err := p.deps.Library.MarkScanned(ctx, p.now()); err != nil {
			logging.WarnWithContext(logger, "last scan time not recorded", "scan_mark_failed", logging.Error(err))
		}
	}
	logger.Info("directory scan complete",
		logging.String("dir", dir),
		logging.Int("found", summary.Found),
		logging.Int("skipped", summary.Skipped),
		logging.Int("processed", summary.Processed),
		logging.Int("review", summary.Review),
		logging.Int("ocr", summary.OCR),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *ScanSummary) add(out Outcome) {
	s.Outcomes = append(s.Outcomes, out)
	switch out.Status {
	case StatusProcessed:
		s.Processed++
	case StatusReview:
		s.Review++
	case StatusOCR:
		s.OCR++
	default:
		s.Failed++
	}
}
