package extraction

import (
	"context"
	"strings"

	"spines/internal/isbn"
)

// convertExtractor converts the document to plain text and scans it.
type convertExtractor struct{ t *toolkit }

func (convertExtractor) Method() Method { return MethodEbookConvert }
func (convertExtractor) sealed()        {}

func (c convertExtractor) Extract(ctx context.Context, doc Document) Draft {
	text, err := c.t.calibre.ConvertToText(ctx, doc.Path, c.t.workDir)
	if err != nil {
		return failedDraft(MethodEbookConvert, doc, err.Error())
	}
	text = strings.TrimSpace(text)
	if len([]rune(text)) <= minConvertTextChars {
		return failedDraft(MethodEbookConvert, doc, "no meaningful text")
	}

	draft := Draft{
		Success:       true,
		Fields:        fallbackFields(doc),
		Confidence:    confidenceFilename + bonusConvertText,
		TextRecovered: true,
	}
	draft.TextPath = c.t.writeSidecar(doc, text)
	if found, ok := isbn.Find(text); ok {
		draft.Fields.ISBN = found
		draft.IdentifierFound = true
		draft.Confidence += bonusISBN
	}

	c.t.enrichDraft(ctx, &draft, bonusEnrichConvert)
	return draft
}
