package extraction

import (
	"context"
	"strings"

	"spines/internal/catalog"
	"spines/internal/isbn"
)

// ebookMetaExtractor reads calibre's metadata report.
type ebookMetaExtractor struct{ t *toolkit }

func (ebookMetaExtractor) Method() Method { return MethodEbookMeta }
func (ebookMetaExtractor) sealed()        {}

func (e ebookMetaExtractor) Extract(ctx context.Context, doc Document) Draft {
	meta, err := e.t.calibre.ReadMetadata(ctx, doc.Path)
	if err != nil {
		return failedDraft(MethodEbookMeta, doc, err.Error())
	}

	draft := Draft{Success: true, Fields: fallbackFields(doc), Confidence: ebookMetaBase(doc)}
	if title := strings.TrimSpace(meta.Title); title != "" && title != unknownAuthor && title != doc.Stem {
		draft.Fields.Title = title
		draft.Confidence += bonusTitle
	}
	if authors := strings.TrimSpace(meta.Authors); authors != "" && authors != unknownAuthor {
		draft.Fields.Author = authors
		draft.Confidence += bonusAuthor
	}
	if year := yearFrom(meta.Published); year > 0 {
		draft.Fields.Year = year
		draft.Confidence += bonusYear
	}
	draft.Fields.Publisher = strings.TrimSpace(meta.Publisher)
	if found, ok := isbn.Find(strings.Join(meta.IdentifierLines, "\n")); ok {
		draft.Fields.ISBN = found
		draft.IdentifierFound = true
		draft.Confidence += bonusISBN
	}

	e.t.enrichDraft(ctx, &draft, bonusEnrichMeta)
	return draft
}

// ebookMetaBase is the starting score of a readable ebook-meta report. Ebook
// containers carry curated metadata more often than PDFs do.
func ebookMetaBase(doc Document) float64 {
	if doc.FileType == catalog.FileTypeEbook {
		return confidenceEbook
	}
	return confidenceFilename
}
