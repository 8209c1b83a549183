package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spines/internal/logging"
	"spines/internal/staging"
)

func age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	old := time.Now().Add(-d)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("set mtime on %s: %v", path, err)
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := staging.CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldScratchEntries(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, "spines-ocr-111")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(oldDir, "page-1.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}
	age(t, oldDir, 2*time.Hour)

	oldFile := filepath.Join(tmpDir, "spines-convert-222.txt")
	if err := os.WriteFile(oldFile, []byte("text"), 0o644); err != nil {
		t.Fatalf("write old file: %v", err)
	}
	age(t, oldFile, 2*time.Hour)

	recentDir := filepath.Join(tmpDir, "spines-ocr-333")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	result := staging.CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	for _, p := range []string{oldDir, oldFile} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("expected %s removed", p)
		}
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Errorf("recent scratch dir should still exist: %v", err)
	}
}

func TestCleanStaleIgnoresStagedDocuments(t *testing.T) {
	tmpDir := t.TempDir()
	staged := filepath.Join(tmpDir, "dune.epub")
	if err := os.WriteFile(staged, []byte("epub"), 0o644); err != nil {
		t.Fatalf("write staged: %v", err)
	}
	age(t, staged, 48*time.Hour)

	result := staging.CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals, got %v", result.Removed)
	}
	if _, err := os.Stat(staged); err != nil {
		t.Fatalf("staged document should not have been removed: %v", err)
	}
}

func TestCleanStaleStopsOnCancelledContext(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "spines-ocr-1")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	age(t, dir, 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := staging.CleanStale(ctx, tmpDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals after cancel, got %v", result.Removed)
	}
}

func TestPatternAndIsScratch(t *testing.T) {
	if got := staging.Pattern("convert", ".txt"); got != "spines-convert-*.txt" {
		t.Fatalf("Pattern = %q", got)
	}
	tests := []struct {
		name string
		want bool
	}{
		{"spines-ocr-123", true},
		{"spines-convert-9.txt", true},
		{"spines.lock", false},
		{"dune.epub", false},
	}
	for _, tc := range tests {
		if got := staging.IsScratch(tc.name); got != tc.want {
			t.Errorf("IsScratch(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
