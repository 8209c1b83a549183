package extraction_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"spines/internal/enrichment"
	"spines/internal/extraction"
	"spines/internal/services/pdfinfo"
	"spines/internal/testsupport"
)

const validISBN = "9780306406157"

type fakeInspector struct {
	info pdfinfo.Info
	err  error
	hit  bool
}

func (f *fakeInspector) Inspect(string) (pdfinfo.Info, error) {
	if f.hit {
		panic("inspector exploded")
	}
	return f.info, f.err
}

type stubLooker map[string]enrichment.Record

func (s stubLooker) Lookup(_ context.Context, isbn string) (enrichment.Record, bool) {
	rec, ok := s[isbn]
	return rec, ok
}

func fixedClock() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

func longText(extra string) string {
	return strings.Repeat("The quick brown fox jumps over the lazy dog. ", 5) + extra
}

func TestExtractEscalatesUntilConvertFindsISBN(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "mystery.epub")
	testsupport.WriteText(t, path, "epub bytes")

	exec := testsupport.NewExecutor().
		Reply("ebook-meta", "Title               : mystery\nAuthor(s)           : Unknown\n").
		Handle("ebook-convert", func(args []string) ([]byte, error) {
			return nil, os.WriteFile(args[1], []byte(longText("ISBN "+validISBN)), 0o644)
		})
	engine := extraction.NewEngine(cfg, extraction.WithExecutor(exec), extraction.WithClock(fixedClock))

	res := engine.Extract(context.Background(), path)

	want := []extraction.Method{extraction.MethodBasic, extraction.MethodEbookMeta, extraction.MethodEbookConvert}
	if got := res.Methods(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected attempt order %v", got)
	}
	if res.Attempts[0].Success || res.Attempts[0].Error != "no text layer" {
		t.Fatalf("expected basic to fail on epub, got %+v", res.Attempts[0])
	}
	if res.Attempts[1].Confidence != 0.4 {
		t.Fatalf("expected ebook base confidence only, got %v", res.Attempts[1].Confidence)
	}
	if res.Best.Method != extraction.MethodEbookConvert {
		t.Fatalf("expected convert draft to win, got %s", res.Best.Method)
	}
	if res.Best.Fields.ISBN != validISBN || !res.Best.IdentifierFound {
		t.Fatalf("expected ISBN from converted text, got %+v", res.Best.Fields)
	}
	if diff := res.Best.Confidence - 0.8; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("unexpected convert confidence %v", res.Best.Confidence)
	}
	if res.Best.TextPath != extraction.SidecarFor(path) {
		t.Fatalf("expected sidecar text path, got %q", res.Best.TextPath)
	}
	if _, err := os.Stat(res.Best.TextPath); err != nil {
		t.Fatalf("expected sidecar file: %v", err)
	}
}

func TestExtractStopsAtAutoAccept(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "dune.pdf")
	testsupport.WriteText(t, path, "%PDF-1.4")

	exec := testsupport.NewExecutor().
		Reply("pdftotext", "Copyright page\nISBN 978-0-306-40615-7\n")
	inspector := &fakeInspector{info: pdfinfo.Info{Pages: 3, Title: "Dune", Author: "Frank Herbert", Year: 1965}}
	engine := extraction.NewEngine(cfg,
		extraction.WithExecutor(exec),
		extraction.WithPDFInspector(inspector),
		extraction.WithClock(fixedClock),
	)

	res := engine.Extract(context.Background(), path)

	if len(res.Attempts) != 1 {
		t.Fatalf("expected a single attempt, got %v", res.Methods())
	}
	if exec.Invoked("ebook-meta") || exec.Invoked("ebook-convert") {
		t.Fatalf("escalation continued past auto-accept: %v", exec.Binaries())
	}
	if res.Best.Confidence < 0.999 || res.Best.Confidence > 1 {
		t.Fatalf("expected clamped confidence 1.0, got %v", res.Best.Confidence)
	}
	if res.Best.Fields.Title != "Dune" || res.Best.Fields.Year != 1965 || res.Best.Fields.Pages != 3 {
		t.Fatalf("unexpected fields %+v", res.Best.Fields)
	}
	// three page scans plus one full-text pass for the sidecar
	if calls := exec.CallsTo("pdftotext"); len(calls) != 4 {
		t.Fatalf("expected 4 pdftotext calls, got %v", calls)
	}
}

func TestEbookMetaAcceptsTitledEbookWithoutISBN(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "emma.azw3")
	testsupport.WriteText(t, path, "x")

	exec := testsupport.NewExecutor().
		Reply("ebook-meta", "Title               : Emma\nAuthor(s)           : Jane Austen [Austen, Jane]\n")
	engine := extraction.NewEngine(cfg, extraction.WithExecutor(exec))

	res := engine.Extract(context.Background(), path)

	if res.Best.Method != extraction.MethodEbookMeta {
		t.Fatalf("expected ebook-meta draft to win, got %v", res.Methods())
	}
	if exec.Invoked("ebook-convert") {
		t.Fatalf("titled ebook should clear auto-accept before conversion: %v", res.Methods())
	}
	if diff := res.Best.Confidence - 0.8; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected 0.4 ebook base plus title and author, got %v", res.Best.Confidence)
	}
}

func TestExtractFallsBackWhenEverythingFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "broken.mobi")
	testsupport.WriteText(t, path, "x")

	engine := extraction.NewEngine(cfg, extraction.WithExecutor(testsupport.NewExecutor()))
	res := engine.Extract(context.Background(), path)

	if len(res.Attempts) != 3 {
		t.Fatalf("expected every method attempted, got %v", res.Methods())
	}
	if res.Best.Success || res.Best.Confidence != 0.1 {
		t.Fatalf("expected failed fallback draft, got %+v", res.Best)
	}
	if res.Best.Error != "all extraction methods failed" {
		t.Fatalf("unexpected fallback error %q", res.Best.Error)
	}
	if res.Best.Fields.Title != "broken" || res.Best.Fields.Author != "Unknown" {
		t.Fatalf("expected filename-derived fields, got %+v", res.Best.Fields)
	}
}

func TestEbookMetaEnrichment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "scan_0001.epub")
	testsupport.WriteText(t, path, "x")

	exec := testsupport.NewExecutor().
		Reply("ebook-meta", "Title               : scan_0001\nAuthor(s)           : Unknown\nIdentifiers         : isbn:"+validISBN+"\n")
	looker := stubLooker{validISBN: {Title: "Information Theory", Author: "A. Author", Year: 1998, Publisher: "Plenum", Provider: "openlibrary"}}
	engine := extraction.NewEngine(cfg, extraction.WithExecutor(exec), extraction.WithEnrichment(looker))

	res := engine.Extract(context.Background(), path)

	if res.Best.Method != extraction.MethodEbookMeta {
		t.Fatalf("expected ebook-meta to reach auto-accept, got %v", res.Methods())
	}
	if !res.Best.Enriched || res.Best.Provider != "openlibrary" {
		t.Fatalf("expected enriched draft, got %+v", res.Best)
	}
	if res.Best.Fields.Title != "Information Theory" || res.Best.Fields.Year != 1998 {
		t.Fatalf("expected provider fields, got %+v", res.Best.Fields)
	}
	if res.Best.Confidence < 0.999 || res.Best.Confidence > 1 {
		t.Fatalf("expected clamped confidence 1.0, got %v", res.Best.Confidence)
	}
	if exec.Invoked("ebook-convert") {
		t.Fatal("convert should not run after auto-accept")
	}
}

func TestBasicIgnoresImplausibleYear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Extraction.AutoAcceptThreshold = 1
	path := filepath.Join(t.TempDir(), "future.pdf")
	testsupport.WriteText(t, path, "%PDF")

	inspector := &fakeInspector{info: pdfinfo.Info{Pages: 1, Year: 2099}}
	engine := extraction.NewEngine(cfg,
		extraction.WithExecutor(testsupport.NewExecutor()),
		extraction.WithPDFInspector(inspector),
		extraction.WithClock(fixedClock),
	)
	res := engine.Extract(context.Background(), path)
	basic := res.Attempts[0]
	if basic.Fields.Year != 0 || basic.Confidence != 0.2 {
		t.Fatalf("expected year rejected, got %+v", basic)
	}
}

func TestExtractorPanicBecomesFailedDraft(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "boom.pdf")
	testsupport.WriteText(t, path, "%PDF")

	engine := extraction.NewEngine(cfg,
		extraction.WithExecutor(testsupport.NewExecutor()),
		extraction.WithPDFInspector(&fakeInspector{hit: true}),
	)
	res := engine.Extract(context.Background(), path)
	if res.Attempts[0].Success || !strings.Contains(res.Attempts[0].Error, "panic") {
		t.Fatalf("expected recovered panic, got %+v", res.Attempts[0])
	}
	if len(res.Attempts) != 3 {
		t.Fatalf("expected escalation to continue after panic, got %v", res.Methods())
	}
}

func TestExtractOCRRasterizesSelectedPages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "scanned.pdf")
	testsupport.WriteText(t, path, "%PDF")

	exec := testsupport.NewExecutor().
		Reply("pdftotext", "").
		Handle("pdftoppm", func(args []string) ([]byte, error) {
			return nil, os.WriteFile(args[len(args)-1]+".png", []byte("png"), 0o644)
		}).
		Reply("tesseract", longText("ISBN "+validISBN))
	engine := extraction.NewEngine(cfg,
		extraction.WithExecutor(exec),
		extraction.WithPDFInspector(&fakeInspector{info: pdfinfo.Info{Pages: 12}}),
	)

	draft := engine.ExtractOCR(context.Background(), path)

	if !draft.Success || draft.Method != extraction.MethodOCR {
		t.Fatalf("expected successful ocr draft, got %+v", draft)
	}
	if diff := draft.Confidence - 0.8; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("unexpected ocr confidence %v", draft.Confidence)
	}
	if got := len(exec.CallsTo("tesseract")); got != 10 {
		t.Fatalf("expected 10 recognized pages, got %d", got)
	}
	if draft.Fields.ISBN != validISBN {
		t.Fatalf("expected ISBN from ocr text, got %q", draft.Fields.ISBN)
	}
	entries, _ := os.ReadDir(cfg.Paths.TempDir)
	if len(entries) != 0 {
		t.Fatalf("expected ocr scratch dir removed, found %d entries", len(entries))
	}
}

func TestExtractOCRFailsWithoutText(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "blank.pdf")
	testsupport.WriteText(t, path, "%PDF")

	exec := testsupport.NewExecutor().
		Reply("pdftotext", "").
		Handle("pdftoppm", func(args []string) ([]byte, error) {
			return nil, os.WriteFile(args[len(args)-1]+".png", []byte("png"), 0o644)
		}).
		Reply("tesseract", "   ")
	engine := extraction.NewEngine(cfg,
		extraction.WithExecutor(exec),
		extraction.WithPDFInspector(&fakeInspector{info: pdfinfo.Info{Pages: 2}}),
	)
	draft := engine.ExtractOCR(context.Background(), path)
	if draft.Success || draft.Confidence != 0.1 {
		t.Fatalf("expected failed ocr draft, got %+v", draft)
	}
}

func TestBasicPages(t *testing.T) {
	tests := []struct {
		name                    string
		total, first, last, max int
		want                    []int
	}{
		{"short", 5, 8, 5, 15, []int{1, 2, 3, 4, 5}},
		{"empty", 0, 8, 5, 15, nil},
		{"with middle", 30, 8, 5, 15, []int{1, 2, 3, 4, 5, 6, 7, 8, 16, 17, 26, 27, 28, 29, 30}},
		{"capped", 100, 10, 10, 15, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 51, 52, 91, 92, 93}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extraction.BasicPages(tt.total, tt.first, tt.last, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("BasicPages(%d) = %v, want %v", tt.total, got, tt.want)
			}
		})
	}
}

func TestOCRPages(t *testing.T) {
	if got := extraction.OCRPages(12, 7, 3); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5, 6, 7, 10, 11, 12}) {
		t.Fatalf("unexpected ocr pages %v", got)
	}
	if got := extraction.OCRPages(4, 7, 3); !reflect.DeepEqual(got, []int{1, 2, 3, 4}) {
		t.Fatalf("unexpected short ocr pages %v", got)
	}
}
