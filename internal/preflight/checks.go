package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"spines/internal/config"
	"spines/internal/deps"
)

// CheckProvider verifies that a bibliographic provider answers at checkURL.
// Any response below 500 counts as reachable.
func CheckProvider(ctx context.Context, name, checkURL string) Result {
	checkURL = strings.TrimSpace(checkURL)
	if checkURL == "" {
		return Result{Name: name, Optional: true, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, checkURL, nil)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("provider error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: "Reachable"}
}

// CheckEnrichment checks each configured provider.
func CheckEnrichment(ctx context.Context, cfg *config.Config) []Result {
	var results []Result
	for _, provider := range cfg.Enrichment.Providers {
		switch provider {
		case config.ProviderOpenLibrary:
			results = append(results, CheckProvider(ctx, "Open Library", cfg.Enrichment.OpenLibraryURL+"/search.json?limit=1&q=isbn"))
		case config.ProviderGoogleBooks:
			results = append(results, CheckProvider(ctx, "Google Books", cfg.Enrichment.GoogleBooksURL+"/volumes?maxResults=1&q=isbn"))
		}
	}
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external document tools named in the config.
// Both the daemon and `spines deps` use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	e := cfg.Extraction
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "ebook-meta",
			Command:     e.EbookMetaBinary,
			Description: "Calibre metadata reader for ebook files",
		},
		{
			Name:        "ebook-convert",
			Command:     e.EbookConvertBinary,
			Description: "Calibre converter used to recover text",
		},
		{
			Name:        "pdftotext",
			Command:     e.PdftotextBinary,
			Description: "Poppler text layer extraction",
		},
		{
			Name:        "pdftoppm",
			Command:     e.PdftoppmBinary,
			Description: "Poppler page rasterizer for OCR",
			Optional:    true,
		},
		{
			Name:        "tesseract",
			Command:     e.TesseractBinary,
			Description: "OCR engine for scanned documents",
			Optional:    true,
		},
	})
}
