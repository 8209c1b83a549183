package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"spines/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spines.log")
	writeLog(t, path, "a\nb\nc\nd\n")

	tests := []struct {
		n    int
		want []string
	}{
		{n: 2, want: []string{"c", "d"}},
		{n: 10, want: []string{"a", "b", "c", "d"}},
		{n: 0, want: nil},
	}
	for _, tt := range tests {
		lines, offset, err := logs.Last(path, tt.n)
		if err != nil {
			t.Fatalf("Last(%d): %v", tt.n, err)
		}
		if !slices.Equal(lines, tt.want) {
			t.Fatalf("Last(%d) = %#v, want %#v", tt.n, lines, tt.want)
		}
		if offset != 8 {
			t.Fatalf("Last(%d) offset = %d, want 8", tt.n, offset)
		}
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("Last on missing file = %v, %d, %v", lines, offset, err)
	}
}

func TestReadFromKeepsPartialLineAndHandlesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spines.log")
	writeLog(t, path, "one\ntwo\npart")

	lines, offset, err := logs.ReadFrom(path, 4)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if !slices.Equal(lines, []string{"two"}) || offset != 8 {
		t.Fatalf("ReadFrom = %#v at %d", lines, offset)
	}

	writeLog(t, path, "new\n")
	lines, offset, err = logs.ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom after truncate: %v", err)
	}
	if !slices.Equal(lines, []string{"new"}) || offset != 4 {
		t.Fatalf("after truncate = %#v at %d", lines, offset)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spines.log")
	writeLog(t, path, "start\n")
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, func(line string) { got <- line })
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	select {
	case line := <-got:
		if line != "later" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for followed line")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
}

func TestMatchComponent(t *testing.T) {
	tests := []struct {
		line, component string
		want            bool
	}{
		{"2026-01-02 10:00:00 INFO [review] item queued", "review", true},
		{`{"level":"INFO","component":"ocrqueue","msg":"x"}`, "ocrqueue", true},
		{"2026-01-02 10:00:00 INFO [ingest] routed", "review", false},
		{"anything", "", true},
	}
	for _, tt := range tests {
		if got := logs.MatchComponent(tt.line, tt.component); got != tt.want {
			t.Errorf("MatchComponent(%q, %q) = %v, want %v", tt.line, tt.component, got, tt.want)
		}
	}
}
