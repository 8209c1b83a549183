package catalog

import (
	"strings"
)

// Edits carries operator-supplied field values. Nil fields are untouched.
type Edits struct {
	Title     *string
	Author    *string
	Year      *int
	ISBN      *string
	Publisher *string
	Pages     *int
	URL       *string
	MediaType *string
	Tags      []string
	Notes     *string
}

// Empty reports whether no field is set.
func (e Edits) Empty() bool {
	return e.Title == nil && e.Author == nil && e.Year == nil && e.ISBN == nil &&
		e.Publisher == nil && e.Pages == nil && e.URL == nil && e.MediaType == nil &&
		e.Tags == nil && e.Notes == nil
}

// ApplyMetadata writes the bibliographic edits onto m and returns the field
// names that were supplied.
func (e Edits) ApplyMetadata(m *Metadata) []string {
	var fields []string
	str := func(field string, src *string, dst *string) {
		if src == nil {
			return
		}
		*dst = strings.TrimSpace(*src)
		fields = append(fields, field)
	}
	str(FieldTitle, e.Title, &m.Title)
	str(FieldAuthor, e.Author, &m.Author)
	if e.Year != nil {
		m.Year = *e.Year
		fields = append(fields, FieldYear)
	}
	str(FieldISBN, e.ISBN, &m.ISBN)
	str(FieldPublisher, e.Publisher, &m.Publisher)
	if e.Pages != nil {
		m.Pages = *e.Pages
		fields = append(fields, FieldPages)
	}
	str(FieldURL, e.URL, &m.URL)
	return fields
}

// ApplyEdits writes every supplied field onto the entry and marks it manually
// edited. It returns the edited field names.
func (e *Entry) ApplyEdits(edits Edits) []string {
	fields := edits.ApplyMetadata(&e.Metadata)
	if edits.MediaType != nil {
		e.MediaType = strings.TrimSpace(*edits.MediaType)
		fields = append(fields, FieldMediaType)
	}
	if edits.Tags != nil {
		e.Tags = normalizeList(edits.Tags)
		fields = append(fields, FieldTags)
	}
	if edits.Notes != nil {
		e.Notes = strings.TrimSpace(*edits.Notes)
		fields = append(fields, FieldNotes)
	}
	for _, field := range fields {
		e.MarkEdited(field)
	}
	return fields
}
