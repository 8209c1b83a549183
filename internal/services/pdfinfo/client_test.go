package pdfinfo_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"spines/internal/services/pdfinfo"
)

// writeMinimalPDF builds a two-page PDF with an info dictionary and a correct
// cross-reference table.
func writeMinimalPDF(t *testing.T, path string) {
	t.Helper()
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
		"<< /Title (Dune) /Author (Frank Herbert) /CreationDate (D:19650801000000Z) >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 5 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
}

func TestInspectReadsInfoDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dune.pdf")
	writeMinimalPDF(t, path)

	info, err := pdfinfo.New().Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", info.Pages)
	}
	if info.Title != "Dune" || info.Author != "Frank Herbert" || info.Year != 1965 {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestInspectRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := pdfinfo.New().Inspect(path); err == nil {
		t.Fatal("expected error for non-pdf content")
	}
}

func TestCreationYear(t *testing.T) {
	tests := map[string]int{
		"D:19990101000000Z": 1999,
		"20200315":          2020,
		"":                  0,
		"D:abc":             0,
	}
	for in, want := range tests {
		if got := pdfinfo.CreationYear(in); got != want {
			t.Errorf("CreationYear(%q) = %d, want %d", in, got, want)
		}
	}
}
