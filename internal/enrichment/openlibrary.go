package enrichment

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// OpenLibrary queries the Open Library books API.
type OpenLibrary struct {
	baseURL string
	client  *http.Client
	retry   retryPolicy
}

type openLibraryBook struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	PublishDate   string `json:"publish_date"`
	NumberOfPages int    `json:"number_of_pages"`
	Authors       []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
}

// NewOpenLibrary builds a provider rooted at baseURL.
func NewOpenLibrary(baseURL string, client *http.Client, opts ...ProviderOption) *OpenLibrary {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenLibrary{baseURL: strings.TrimRight(baseURL, "/"), client: client, retry: newRetryPolicy(opts)}
}

func (p *OpenLibrary) Name() string { return "openlibrary" }

func (p *OpenLibrary) Lookup(ctx context.Context, isbn string) (Record, bool, error) {
	key := "ISBN:" + isbn
	params := url.Values{}
	params.Set("bibkeys", key)
	params.Set("format", "json")
	params.Set("jscmd", "data")
	endpoint := p.baseURL + "/api/books?" + params.Encode()

	var payload map[string]openLibraryBook
	if err := getJSON(ctx, p.client, p.retry, p.Name(), endpoint, &payload); err != nil {
		return Record{}, false, err
	}
	book, ok := payload[key]
	if !ok {
		return Record{}, false, nil
	}
	authors := make([]string, 0, len(book.Authors))
	for _, a := range book.Authors {
		authors = append(authors, a.Name)
	}
	rec := Record{
		Title:    strings.TrimSpace(book.Title),
		Author:   joinAuthors(authors),
		Year:     ParseYear(book.PublishDate),
		Pages:    book.NumberOfPages,
		Provider: p.Name(),
	}
	if len(book.Publishers) > 0 {
		rec.Publisher = strings.TrimSpace(book.Publishers[0].Name)
	}
	return rec, !rec.Empty(), nil
}
