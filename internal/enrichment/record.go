package enrichment

import (
	"regexp"
	"strconv"
	"strings"

	"spines/internal/catalog"
)

// Record is a normalised bibliographic record from one provider.
type Record struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      int    `json:"year,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Pages     int    `json:"pages,omitempty"`
	Provider  string `json:"provider"`
}

// Empty reports whether the record carries no usable title or author.
func (r Record) Empty() bool {
	return strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Author) == ""
}

// Metadata converts the record into catalog metadata for isbn.
func (r Record) Metadata(isbn string) catalog.Metadata {
	return catalog.Metadata{
		Title:     r.Title,
		Author:    r.Author,
		Year:      r.Year,
		ISBN:      isbn,
		Publisher: r.Publisher,
		Pages:     r.Pages,
	}
}

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// ParseYear returns the first four-digit year in value.
func ParseYear(value string) int {
	m := yearPattern.FindStringSubmatch(value)
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return year
}

func joinAuthors(names []string) string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return strings.Join(out, ", ")
}
