package catalog

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Editable field names recorded in Entry.ManualEdits.
const (
	FieldTitle     = "title"
	FieldAuthor    = "author"
	FieldYear      = "year"
	FieldISBN      = "isbn"
	FieldPublisher = "publisher"
	FieldPages     = "pages"
	FieldURL       = "url"
	FieldMediaType = "media_type"
	FieldTags      = "tags"
	FieldNotes     = "notes"
)

// Media types.
const (
	MediaBook    = "book"
	MediaWeb     = "web"
	MediaUnknown = "unknown"
)

// File types derived from the document extension.
const (
	FileTypePDF     = "pdf"
	FileTypeEbook   = "ebook"
	FileTypeDjVu    = "djvu"
	FileTypeText    = "text"
	FileTypeUnknown = "unknown"
)

// Metadata holds the bibliographic fields shared by drafts and entries.
type Metadata struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      int    `json:"year,omitempty"`
	ISBN      string `json:"isbn,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Pages     int    `json:"pages,omitempty"`
	URL       string `json:"url,omitempty"`
}

// RelatedCopy is a snapshot of a similar entry stored on both sides of a match.
type RelatedCopy struct {
	BookID         string   `json:"book_id"`
	SimilarityType string   `json:"similarity_type"`
	Confidence     float64  `json:"confidence"`
	Contributors   []string `json:"contributor,omitempty"`
	FolderName     string   `json:"folder_name,omitempty"`
	ISBN           string   `json:"isbn,omitempty"`
	Year           int      `json:"year,omitempty"`
	Publisher      string   `json:"publisher,omitempty"`
}

// Entry is a committed catalog item.
type Entry struct {
	ID string `json:"id"`
	Metadata
	MediaType            string        `json:"media_type"`
	FileType             string        `json:"file_type"`
	FileSize             int64         `json:"file_size"`
	Contributors         []string      `json:"contributor"`
	ReadBy               []string      `json:"read_by"`
	Tags                 []string      `json:"tags"`
	Notes                string        `json:"notes,omitempty"`
	FolderName           string        `json:"folder_name"`
	Filename             string        `json:"filename"`
	OriginalFilename     string        `json:"original_filename"`
	DateAdded            time.Time     `json:"date_added"`
	ExtractionMethod     string        `json:"extraction_method"`
	ExtractionConfidence float64       `json:"extraction_confidence"`
	ManualEdits          []string      `json:"manual_edits,omitempty"`
	RelatedCopies        []RelatedCopy `json:"related_copies,omitempty"`
}

// HasContributor reports whether name already contributed this entry.
func (e Entry) HasContributor(name string) bool {
	return slices.Contains(e.Contributors, strings.TrimSpace(name))
}

// AddContributor appends name when absent and reports whether it changed.
func (e *Entry) AddContributor(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || e.HasContributor(name) {
		return false
	}
	e.Contributors = append(e.Contributors, name)
	return true
}

// ManuallyEdited reports whether field was set by an operator.
func (e Entry) ManuallyEdited(field string) bool {
	return slices.Contains(e.ManualEdits, field)
}

// MarkEdited flags field as operator-owned. The flag is never cleared.
func (e *Entry) MarkEdited(field string) {
	if !e.ManuallyEdited(field) {
		e.ManualEdits = append(e.ManualEdits, field)
		slices.Sort(e.ManualEdits)
	}
}

// ApplyEnrichment merges rec into the entry, skipping manually edited fields.
func (e *Entry) ApplyEnrichment(rec Metadata) []string {
	changed := MergeEnrichment(&e.Metadata, rec, e.ManuallyEdited)
	if len(changed) > 0 && !e.ManuallyEdited(FieldMediaType) {
		e.MediaType = DetectMediaType(e.Metadata)
	}
	return changed
}

// RelatedCopy returns the snapshot other entries store about e.
func (e Entry) RelatedCopy(similarityType string, confidence float64) RelatedCopy {
	return RelatedCopy{
		BookID:         e.ID,
		SimilarityType: similarityType,
		Confidence:     confidence,
		Contributors:   slices.Clone(e.Contributors),
		FolderName:     e.FolderName,
		ISBN:           e.ISBN,
		Year:           e.Year,
		Publisher:      e.Publisher,
	}
}

// LinkRelated records or refreshes a related copy snapshot.
func (e *Entry) LinkRelated(rc RelatedCopy) {
	if rc.BookID == "" || rc.BookID == e.ID {
		return
	}
	for i := range e.RelatedCopies {
		if e.RelatedCopies[i].BookID == rc.BookID {
			e.RelatedCopies[i] = rc
			return
		}
	}
	e.RelatedCopies = append(e.RelatedCopies, rc)
}

// MergeEnrichment overwrites title, author, year and publisher in dst with
// non-empty values from rec unless edited reports the field as manually
// edited. ISBN is only filled when dst has none. It returns the changed fields.
func MergeEnrichment(dst *Metadata, rec Metadata, edited func(string) bool) []string {
	if edited == nil {
		edited = func(string) bool { return false }
	}
	var changed []string
	setString := func(field string, target *string, value string) {
		value = strings.TrimSpace(value)
		if value == "" || value == *target || edited(field) {
			return
		}
		*target = value
		changed = append(changed, field)
	}
	setString(FieldTitle, &dst.Title, rec.Title)
	setString(FieldAuthor, &dst.Author, rec.Author)
	if rec.Year > 0 && rec.Year != dst.Year && !edited(FieldYear) {
		dst.Year = rec.Year
		changed = append(changed, FieldYear)
	}
	setString(FieldPublisher, &dst.Publisher, rec.Publisher)
	if dst.ISBN == "" {
		setString(FieldISBN, &dst.ISBN, rec.ISBN)
	}
	if rec.Pages > 0 && dst.Pages == 0 && !edited(FieldPages) {
		dst.Pages = rec.Pages
		changed = append(changed, FieldPages)
	}
	return changed
}

// DetectMediaType classifies metadata as a web resource only when it carries a
// URL and no ISBN.
func DetectMediaType(m Metadata) string {
	if strings.TrimSpace(m.URL) != "" && strings.TrimSpace(m.ISBN) == "" {
		return MediaWeb
	}
	return MediaBook
}

// FileTypeFor maps a path's extension to a catalog file type.
func FileTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FileTypePDF
	case ".epub", ".mobi", ".azw", ".azw3":
		return FileTypeEbook
	case ".djvu", ".djv":
		return FileTypeDjVu
	case ".txt", ".rtf":
		return FileTypeText
	default:
		return FileTypeUnknown
	}
}

// SupportedDocument reports whether path has an ingestible extension.
func SupportedDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".epub", ".mobi", ".azw", ".azw3", ".djvu", ".djv":
		return true
	default:
		return false
	}
}
