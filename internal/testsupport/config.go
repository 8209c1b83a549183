package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"spines/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Enrichment is disabled so tests never reach the network.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "books")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.TempDir = filepath.Join(base, "temp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Enrichment.Enabled = false
	cfgVal.Enrichment.Cache = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return builder.cfg
}

// WithEnrichment enables enrichment against the given provider base URLs.
func WithEnrichment(openLibraryURL, googleBooksURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.Enabled = true
		b.cfg.Enrichment.OpenLibraryURL = openLibraryURL
		b.cfg.Enrichment.GoogleBooksURL = googleBooksURL
		b.cfg.Enrichment.RetryAttempts = 1
	}
}

// WithSQLiteMirror enables the catalog mirror.
func WithSQLiteMirror() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.SQLiteMirror = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external tools are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ebook-meta", "ebook-convert", "pdftotext", "pdftoppm", "tesseract"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LibraryDir)
}
