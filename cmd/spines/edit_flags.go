package main

import (
	"strings"

	"github.com/spf13/cobra"

	"spines/internal/catalog"
)

// editFlags binds the metadata override flags shared by review approve and
// catalog edit. Only flags the operator set become edits.
type editFlags struct {
	title     string
	author    string
	year      int
	isbn      string
	publisher string
	pages     int
	url       string
	mediaType string
	tags      []string
	notes     string
}

func (f *editFlags) bindCore(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Override the title")
	cmd.Flags().StringVar(&f.author, "author", "", "Override the author")
	cmd.Flags().IntVar(&f.year, "year", 0, "Override the publication year")
	cmd.Flags().StringVar(&f.isbn, "isbn", "", "Override the ISBN")
	cmd.Flags().StringVar(&f.publisher, "publisher", "", "Override the publisher")
}

func (f *editFlags) bindAll(cmd *cobra.Command) {
	f.bindCore(cmd)
	cmd.Flags().IntVar(&f.pages, "pages", 0, "Override the page count")
	cmd.Flags().StringVar(&f.url, "url", "", "Override the source URL")
	cmd.Flags().StringVar(&f.mediaType, "media-type", "", "Override the media type (book or web)")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "Replace the tags (comma separated)")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Replace the notes")
}

func (f *editFlags) edits(cmd *cobra.Command) catalog.Edits {
	var e catalog.Edits
	changed := cmd.Flags().Changed
	if changed("title") {
		e.Title = stringPtr(f.title)
	}
	if changed("author") {
		e.Author = stringPtr(f.author)
	}
	if changed("year") {
		e.Year = &f.year
	}
	if changed("isbn") {
		e.ISBN = stringPtr(f.isbn)
	}
	if changed("publisher") {
		e.Publisher = stringPtr(f.publisher)
	}
	if cmd.Flags().Lookup("pages") == nil {
		return e
	}
	if changed("pages") {
		e.Pages = &f.pages
	}
	if changed("url") {
		e.URL = stringPtr(f.url)
	}
	if changed("media-type") {
		e.MediaType = stringPtr(strings.ToLower(f.mediaType))
	}
	if changed("tags") {
		e.Tags = f.tags
		if e.Tags == nil {
			e.Tags = []string{}
		}
	}
	if changed("notes") {
		e.Notes = stringPtr(f.notes)
	}
	return e
}

func stringPtr(s string) *string {
	s = strings.TrimSpace(s)
	return &s
}
