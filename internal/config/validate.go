package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateSimilarity(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.TempDir == "" {
		return errors.New("paths.temp_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	e := c.Extraction
	for name, value := range map[string]float64{
		"extraction.auto_accept_threshold": e.AutoAcceptThreshold,
		"extraction.ocr_floor":             e.OCRFloor,
		"extraction.ocr_commit_threshold":  e.OCRCommitThreshold,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if e.OCRFloor > e.AutoAcceptThreshold {
		return errors.New("extraction.ocr_floor must not exceed extraction.auto_accept_threshold")
	}
	if e.MetadataTimeoutSeconds <= 0 || e.ConvertTimeoutSeconds <= 0 || e.OCRTimeoutSeconds <= 0 {
		return errors.New("extraction timeouts must be positive")
	}
	if e.BasicMaxPages <= 0 || e.BasicFirstPages < 0 || e.BasicLastPages < 0 {
		return errors.New("extraction basic page limits must be positive")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if c.OCR.FirstPages < 0 || c.OCR.LastPages < 0 {
		return errors.New("ocr page counts must not be negative")
	}
	if c.OCR.FirstPages+c.OCR.LastPages == 0 {
		return errors.New("ocr must select at least one page")
	}
	if c.OCR.DPI <= 0 {
		return errors.New("ocr.dpi must be positive")
	}
	return nil
}

func (c *Config) validateSimilarity() error {
	if c.Similarity.TitleThreshold <= 0 || c.Similarity.TitleThreshold > 1 {
		return errors.New("similarity.title_threshold must be in (0, 1]")
	}
	if c.Similarity.AuthorThreshold <= 0 || c.Similarity.AuthorThreshold > 1 {
		return errors.New("similarity.author_threshold must be in (0, 1]")
	}
	switch c.Similarity.Metric {
	case "ratio", "token_cosine":
	default:
		return fmt.Errorf("similarity.metric: unsupported value %q (want ratio or token_cosine)", c.Similarity.Metric)
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	for _, name := range c.Enrichment.Providers {
		switch name {
		case ProviderOpenLibrary, ProviderGoogleBooks:
		default:
			return fmt.Errorf("enrichment.providers: unknown provider %q", name)
		}
	}
	if c.Enrichment.TimeoutSeconds <= 0 {
		return errors.New("enrichment.timeout_seconds must be positive")
	}
	if c.Enrichment.RetryAttempts < 1 {
		return errors.New("enrichment.retry_attempts must be at least 1")
	}
	return nil
}
