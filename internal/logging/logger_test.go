package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spines/internal/config"
	"spines/internal/logging"
	"spines/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from config") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller", logging.String("isbn", "9780306406157"))

	content, _ := os.ReadFile(path)
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", content)
	}
	if !strings.Contains(string(content), "- isbn: 9780306406157") {
		t.Fatalf("expected attribute line, got %q", content)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected source information in debug logs, got %q", content)
	}
}

func TestConsoleHeaderCarriesComponentAndDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithDocumentID(context.Background(), "abc123def456")
	ctx = services.WithStage(ctx, "finalize")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "ingest"))
	logger.Info("document catalogued")

	content, _ := os.ReadFile(path)
	line := strings.SplitN(string(content), "\n", 2)[0]
	if !strings.Contains(line, "[ingest] abc123def456 (finalize) · document catalogued") {
		t.Fatalf("unexpected header line %q", line)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithCorrelationID(context.Background(), "corr-1")
	logging.WithContext(ctx, logger).Info("structured", logging.Float64("confidence", 0.8))

	content, _ := os.ReadFile(path)
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	for _, key := range []string{"ts", "level", "msg", "correlation_id", "confidence"} {
		if _, ok := record[key]; !ok {
			t.Fatalf("expected key %q in %v", key, record)
		}
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
}

func TestLogValuesTrimConfidenceAndQualifySource(t *testing.T) {
	dir := t.TempDir()
	consolePath := filepath.Join(dir, "console.log")
	console, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{consolePath}})
	if err != nil {
		t.Fatalf("New console: %v", err)
	}
	score := 0.4
	score += 0.2
	console.Debug("scored", logging.Float64("confidence", score))

	content, _ := os.ReadFile(consolePath)
	if !strings.Contains(string(content), "confidence: 0.6\n") {
		t.Fatalf("expected trimmed confidence, got %q", content)
	}
	if !strings.Contains(string(content), "logging/logger_test.go:") {
		t.Fatalf("expected package-qualified source, got %q", content)
	}

	jsonPath := filepath.Join(dir, "json.log")
	structured, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{jsonPath}})
	if err != nil {
		t.Fatalf("New json: %v", err)
	}
	structured.Debug("scored")

	raw, _ := os.ReadFile(jsonPath)
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, raw)
	}
	ts, _ := record["ts"].(string)
	if _, err := time.Parse("2006-01-02T15:04:05.000Z07:00", ts); err != nil {
		t.Fatalf("expected millisecond UTC timestamp, got %q", ts)
	}
	if src, _ := record["source"].(string); !strings.HasPrefix(src, "logging/logger_test.go:") {
		t.Fatalf("expected package-qualified source, got %v", record["source"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "provider failed", "enrichment_provider_failed")

	content, _ := os.ReadFile(path)
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldEventType] != "enrichment_provider_failed" {
		t.Fatalf("unexpected event type %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] == nil || record[logging.FieldImpact] == nil {
		t.Fatalf("expected hint and impact defaults, got %v", record)
	}
}

func TestWithRunIDTagsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	base, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger, runID := logging.WithRunID(base, "")
	if runID == "" {
		t.Fatal("expected generated run id")
	}
	logger.Info("tagged")

	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), `"run_id":"`+runID+`"`) {
		t.Fatalf("expected run id in %q", content)
	}
}

func TestPruneLogsRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "spines-2020.log")
	fresh := filepath.Join(dir, "spines-today.log")
	active := filepath.Join(dir, logging.LogFileName)
	for _, path := range []string{old, fresh, active} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -40)
	for _, path := range []string{old, active} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.PruneLogs(logging.NewNop(), dir, 30, time.Now())
	if removed != 1 {
		t.Fatalf("expected 1 removed file, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	if _, err := os.Stat(active); err != nil {
		t.Fatalf("active log must remain: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh log must remain: %v", err)
	}
}
