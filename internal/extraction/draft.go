package extraction

import (
	"path/filepath"
	"strings"

	"spines/internal/catalog"
)

// Method names one extraction strategy.
type Method string

const (
	MethodBasic        Method = "basic"
	MethodEbookMeta    Method = "ebook_meta"
	MethodEbookConvert Method = "ebook_convert"
	MethodOCR          Method = "ocr"
)

// Draft is the immutable result of one extraction attempt.
type Draft struct {
	Method          Method           `json:"method"`
	Success         bool             `json:"success"`
	Fields          catalog.Metadata `json:"fields"`
	Confidence      float64          `json:"confidence"`
	IdentifierFound bool             `json:"isbn_found"`
	TextRecovered   bool             `json:"text_recovered"`
	Enriched        bool             `json:"enriched,omitempty"`
	Provider        string           `json:"provider,omitempty"`
	Error           string           `json:"error,omitempty"`
	// TextPath is the sidecar holding the recovered full text, if any.
	TextPath string `json:"text_path,omitempty"`
}

// Document describes the file being extracted.
type Document struct {
	Path     string
	Stem     string
	FileType string
}

// NewDocument derives the stem and file type from path.
func NewDocument(path string) Document {
	base := filepath.Base(path)
	return Document{
		Path:     path,
		Stem:     strings.TrimSuffix(base, filepath.Ext(base)),
		FileType: catalog.FileTypeFor(path),
	}
}

// SidecarPath is where recovered text for the document is kept.
func (d Document) SidecarPath() string {
	return SidecarFor(d.Path)
}

// SidecarFor returns the text sidecar path for a document path.
func SidecarFor(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
}

// fallbackFields is the filename-derived starting point of every draft.
func fallbackFields(doc Document) catalog.Metadata {
	return catalog.Metadata{Title: doc.Stem, Author: unknownAuthor}
}

const unknownAuthor = "Unknown"

func failedDraft(method Method, doc Document, err string) Draft {
	return Draft{
		Method:     method,
		Fields:     fallbackFields(doc),
		Confidence: confidenceFailed,
		Error:      err,
	}
}
