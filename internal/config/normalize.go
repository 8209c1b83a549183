package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeExtraction()
	c.normalizeOCR()
	c.Similarity.Metric = strings.ToLower(defaultString(c.Similarity.Metric, defaultSimilarityMetric))
	c.normalizeEnrichment()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if err := c.normalizeSchedule(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(strings.TrimSpace(c.Paths.TempDir)); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeExtraction() {
	e := &c.Extraction
	e.EbookMetaBinary = defaultString(e.EbookMetaBinary, "ebook-meta")
	e.EbookConvertBinary = defaultString(e.EbookConvertBinary, "ebook-convert")
	e.PdftotextBinary = defaultString(e.PdftotextBinary, "pdftotext")
	e.PdftoppmBinary = defaultString(e.PdftoppmBinary, "pdftoppm")
	e.TesseractBinary = defaultString(e.TesseractBinary, "tesseract")
}

func (c *Config) normalizeOCR() {
	c.OCR.Language = defaultString(c.OCR.Language, defaultOCRLanguage)
}

func (c *Config) normalizeEnrichment() {
	providers := make([]string, 0, len(c.Enrichment.Providers))
	seen := make(map[string]struct{}, len(c.Enrichment.Providers))
	for _, name := range c.Enrichment.Providers {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		providers = append(providers, name)
	}
	c.Enrichment.Providers = providers
	c.Enrichment.OpenLibraryURL = strings.TrimRight(defaultString(c.Enrichment.OpenLibraryURL, defaultOpenLibraryURL), "/")
	c.Enrichment.GoogleBooksURL = strings.TrimRight(defaultString(c.Enrichment.GoogleBooksURL, defaultGoogleBooksURL), "/")
	c.Enrichment.GoogleBooksAPIKey = strings.TrimSpace(c.Enrichment.GoogleBooksAPIKey)
}

func (c *Config) normalizeSchedule() error {
	c.Schedule.OCRBatch = strings.TrimSpace(c.Schedule.OCRBatch)
	c.Schedule.LivenessCheck = strings.TrimSpace(c.Schedule.LivenessCheck)
	c.Schedule.TempCleanup = strings.TrimSpace(c.Schedule.TempCleanup)
	inbox := strings.TrimSpace(c.Schedule.InboxDir)
	if inbox == "" {
		c.Schedule.InboxDir = ""
		return nil
	}
	expanded, err := expandPath(inbox)
	if err != nil {
		return fmt.Errorf("schedule.inbox_dir: %w", err)
	}
	c.Schedule.InboxDir = expanded
	return nil
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
