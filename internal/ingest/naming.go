package ingest

import (
	"net/url"
	"strconv"
	"strings"

	"spines/internal/catalog"
	"spines/internal/textutil"
)

const (
	maxAuthorRunes = 30
	maxTitleRunes  = 40
)

// DisplayName builds the Author_Title_Year_Identifier folder name used for a
// committed asset. Web media use the URL host as the identifier.
func DisplayName(m catalog.Metadata, mediaType string) string {
	author := strings.TrimSpace(m.Author)
	if first, _, found := strings.Cut(author, ","); found {
		author = first
	}
	author = orUnknown(cleanPart(author, maxAuthorRunes))
	title := orUnknown(cleanPart(m.Title, maxTitleRunes))

	year := "Unknown_Year"
	if m.Year > 0 {
		year = strconv.Itoa(m.Year)
	}

	var ident string
	if mediaType == catalog.MediaWeb {
		ident = "no_url"
		if u, err := url.Parse(strings.TrimSpace(m.URL)); err == nil && u.Host != "" {
			ident = strings.ReplaceAll(u.Host, ".", "_")
		}
	} else {
		ident = "no_id"
		if isbn := textutil.CleanForFilename(m.ISBN, 0); isbn != "" {
			ident = isbn
		}
	}
	return strings.Join([]string{author, title, year, ident}, "_")
}

// CopySuffix is appended to the display name of a separate copy.
func CopySuffix(contributor string) string {
	return "_" + textutil.SanitizeToken(contributor) + "_copy"
}

// CopyID derives the deterministic id of a contributor's separate copy.
func CopyID(id, contributor string) string {
	return id + "_" + textutil.SanitizeToken(contributor)
}

// cleanPart drops separators left dangling by truncation.
func cleanPart(s string, maxRunes int) string {
	return strings.Trim(textutil.CleanForFilename(s, maxRunes), "_-")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
