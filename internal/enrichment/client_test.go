package enrichment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"spines/internal/config"
	"spines/internal/enrichment"
)

const openLibraryDune = `{"ISBN:9780441013593":{"title":"Dune","authors":[{"name":"Frank Herbert"}],"publish_date":"August 1990","publishers":[{"name":"Ace Books"}],"number_of_pages":535}}`

func TestOpenLibraryLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/books" || r.URL.Query().Get("bibkeys") != "ISBN:9780441013593" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		if r.URL.Query().Get("jscmd") != "data" {
			t.Errorf("expected jscmd=data, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(openLibraryDune))
	}))
	t.Cleanup(server.Close)

	provider := enrichment.NewOpenLibrary(server.URL, server.Client())
	rec, ok, err := provider.Lookup(context.Background(), "9780441013593")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if rec.Title != "Dune" || rec.Author != "Frank Herbert" || rec.Year != 1990 || rec.Publisher != "Ace Books" || rec.Pages != 535 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestGoogleBooksLookupJoinsAuthors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "isbn:9780306406157" || r.URL.Query().Get("key") != "k" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"volumeInfo":{"title":"Physics","authors":["A One","B Two"],"publishedDate":"1985-03-01","publisher":"Plenum"}}]}`))
	}))
	t.Cleanup(server.Close)

	provider := enrichment.NewGoogleBooks(server.URL, "k", server.Client())
	rec, ok, err := provider.Lookup(context.Background(), "9780306406157")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if rec.Author != "A One, B Two" || rec.Year != 1985 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestClientFallsThroughFailingProvider(t *testing.T) {
	var failing atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failing.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(bad.Close)
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"volumeInfo":{"title":"Dune","authors":["Frank Herbert"],"publishedDate":"1965"}}]}`))
	}))
	t.Cleanup(good.Close)

	client := enrichment.New([]enrichment.Provider{
		enrichment.NewOpenLibrary(bad.URL, bad.Client(), enrichment.WithRetry(3, 0)),
		enrichment.NewGoogleBooks(good.URL, "", good.Client()),
	})
	rec, ok := client.Lookup(context.Background(), "9780441013593")
	if !ok || rec.Provider != "googlebooks" || rec.Year != 1965 {
		t.Fatalf("unexpected lookup result ok=%v rec=%+v", ok, rec)
	}
	if got := failing.Load(); got != 3 {
		t.Fatalf("expected 3 attempts against failing provider, got %d", got)
	}
}

func TestClientDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client := enrichment.New([]enrichment.Provider{
		enrichment.NewGoogleBooks(server.URL, "", server.Client(), enrichment.WithRetry(4, 0)),
	})
	if _, ok := client.Lookup(context.Background(), "9780441013593"); ok {
		t.Fatal("expected negative result")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClientCachesPositiveResults(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(openLibraryDune))
	}))
	t.Cleanup(server.Close)

	cachePath := filepath.Join(t.TempDir(), "enrichment_cache.json")
	newClient := func() *enrichment.Client {
		return enrichment.New(
			[]enrichment.Provider{enrichment.NewOpenLibrary(server.URL, server.Client())},
			enrichment.WithCache(enrichment.NewCache(cachePath, nil)),
		)
	}
	if _, ok := newClient().Lookup(context.Background(), "9780441013593"); !ok {
		t.Fatal("expected first lookup to succeed")
	}
	rec, ok := newClient().Lookup(context.Background(), "9780441013593")
	if !ok || rec.Title != "Dune" {
		t.Fatalf("expected cached record, got ok=%v %+v", ok, rec)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cache to avoid second request, got %d calls", calls.Load())
	}
}

func TestNewFromConfigHonoursDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Enrichment.Enabled = false
	if names := enrichment.NewFromConfig(&cfg, nil).ProviderNames(); len(names) != 0 {
		t.Fatalf("expected no providers, got %v", names)
	}
	cfg.Enrichment.Enabled = true
	cfg.Enrichment.Providers = []string{config.ProviderGoogleBooks, config.ProviderOpenLibrary}
	names := enrichment.NewFromConfig(&cfg, nil).ProviderNames()
	if len(names) != 2 || names[0] != "googlebooks" {
		t.Fatalf("unexpected provider order %v", names)
	}
}

func TestParseYear(t *testing.T) {
	tests := map[string]int{"1965": 1965, "August 1990": 1990, "2001-09-11": 2001, "n.d.": 0, "": 0}
	for in, want := range tests {
		if got := enrichment.ParseYear(in); got != want {
			t.Errorf("ParseYear(%q) = %d, want %d", in, got, want)
		}
	}
}
