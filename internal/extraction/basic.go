package extraction

import (
	"context"
	"strings"

	"spines/internal/catalog"
	"spines/internal/isbn"
)

// basicExtractor reads embedded PDF info and scans selected pages for an ISBN.
type basicExtractor struct{ t *toolkit }

func (basicExtractor) Method() Method { return MethodBasic }
func (basicExtractor) sealed()        {}

func (b basicExtractor) Extract(ctx context.Context, doc Document) Draft {
	if doc.FileType != catalog.FileTypePDF {
		return failedDraft(MethodBasic, doc, "no text layer")
	}
	info, err := b.t.pdf.Inspect(doc.Path)
	if err != nil {
		return failedDraft(MethodBasic, doc, err.Error())
	}

	draft := Draft{Success: true, Fields: fallbackFields(doc), Confidence: confidenceFilename}
	draft.Fields.Pages = info.Pages
	if title := strings.TrimSpace(info.Title); title != "" {
		draft.Fields.Title = title
		draft.Confidence += bonusTitle
	}
	if author := strings.TrimSpace(info.Author); author != "" {
		draft.Fields.Author = author
		draft.Confidence += bonusAuthor
	}
	if b.t.plausibleYear(info.Year) {
		draft.Fields.Year = info.Year
		draft.Confidence += bonusYear
	}

	pages := BasicPages(info.Pages, b.t.basicFirst, b.t.basicLast, b.t.basicMax)
	var parts []string
	for _, page := range pages {
		if ctx.Err() != nil {
			break
		}
		text, err := b.t.poppler.PageText(ctx, doc.Path, page)
		if err != nil {
			b.t.logger.Debug("page text unavailable", "page", page, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) > 0 {
		scanned := strings.Join(parts, "\n\n")
		draft.TextRecovered = true
		full, err := b.t.poppler.Text(ctx, doc.Path)
		if err != nil || strings.TrimSpace(full) == "" {
			full = scanned
		}
		draft.TextPath = b.t.writeSidecar(doc, full)
		if found, ok := isbn.Find(scanned); ok {
			draft.Fields.ISBN = found
			draft.IdentifierFound = true
			draft.Confidence += bonusISBN
		}
	}

	b.t.enrichDraft(ctx, &draft, bonusEnrichBasic)
	return draft
}
