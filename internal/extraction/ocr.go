package extraction

import (
	"context"
	"os"
	"strings"

	"spines/internal/catalog"
	"spines/internal/isbn"
	"spines/internal/staging"
)

// ocrExtractor rasterizes selected pages and runs tesseract over them. A PDF
// that already carries a usable text layer skips rasterization.
type ocrExtractor struct{ t *toolkit }

func (ocrExtractor) Method() Method { return MethodOCR }
func (ocrExtractor) sealed()        {}

func (o ocrExtractor) Extract(ctx context.Context, doc Document) Draft {
	if doc.FileType != catalog.FileTypePDF {
		return failedDraft(MethodOCR, doc, "ocr requires a pdf")
	}
	text := o.textLayer(ctx, doc)
	if len([]rune(text)) <= minOCRTextChars {
		recognized, err := o.recognize(ctx, doc)
		if err != nil {
			return failedDraft(MethodOCR, doc, err.Error())
		}
		text = recognized
	}
	if len([]rune(text)) <= minOCRTextChars {
		return failedDraft(MethodOCR, doc, "no text recognized")
	}

	draft := Draft{
		Success:       true,
		Fields:        fallbackFields(doc),
		Confidence:    confidenceOCRBase + bonusOCRText,
		TextRecovered: true,
	}
	draft.TextPath = o.t.writeSidecar(doc, text)
	if found, ok := isbn.Find(text); ok {
		draft.Fields.ISBN = found
		draft.IdentifierFound = true
		draft.Confidence += bonusISBN
	}

	o.t.enrichDraft(ctx, &draft, bonusEnrichOCR)
	return draft
}

func (o ocrExtractor) textLayer(ctx context.Context, doc Document) string {
	text, err := o.t.poppler.Text(ctx, doc.Path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (o ocrExtractor) recognize(ctx context.Context, doc Document) (string, error) {
	total := 0
	if info, err := o.t.pdf.Inspect(doc.Path); err == nil {
		total = info.Pages
	}
	dir, err := os.MkdirTemp(o.t.workDir, staging.Pattern("ocr", ""))
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	var parts []string
	var lastErr error
	for _, page := range OCRPages(total, o.t.ocrFirst, o.t.ocrLast) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		image, err := o.t.poppler.RenderPage(ctx, doc.Path, page, o.t.ocrDPI, dir)
		if err != nil {
			lastErr = err
			continue
		}
		text, err := o.t.tesseract.Recognize(ctx, image)
		if err != nil {
			lastErr = err
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 && lastErr != nil {
		return "", lastErr
	}
	return strings.Join(parts, "\n\n"), nil
}
