package enrichment

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GoogleBooks queries the Google Books volumes API.
type GoogleBooks struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   retryPolicy
}

type googleVolumes struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title         string   `json:"title"`
			Authors       []string `json:"authors"`
			Publisher     string   `json:"publisher"`
			PublishedDate string   `json:"publishedDate"`
			PageCount     int      `json:"pageCount"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// NewGoogleBooks builds a provider rooted at baseURL. apiKey may be empty.
func NewGoogleBooks(baseURL, apiKey string, client *http.Client, opts ...ProviderOption) *GoogleBooks {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleBooks{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
		retry:   newRetryPolicy(opts),
	}
}

func (p *GoogleBooks) Name() string { return "googlebooks" }

func (p *GoogleBooks) Lookup(ctx context.Context, isbn string) (Record, bool, error) {
	params := url.Values{}
	params.Set("q", "isbn:"+isbn)
	if p.apiKey != "" {
		params.Set("key", p.apiKey)
	}
	endpoint := p.baseURL + "/volumes?" + params.Encode()

	var payload googleVolumes
	if err := getJSON(ctx, p.client, p.retry, p.Name(), endpoint, &payload); err != nil {
		return Record{}, false, err
	}
	if len(payload.Items) == 0 {
		return Record{}, false, nil
	}
	info := payload.Items[0].VolumeInfo
	rec := Record{
		Title:     strings.TrimSpace(info.Title),
		Author:    joinAuthors(info.Authors),
		Year:      ParseYear(info.PublishedDate),
		Publisher: strings.TrimSpace(info.Publisher),
		Pages:     info.PageCount,
		Provider:  p.Name(),
	}
	return rec, !rec.Empty(), nil
}
