package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the catalog lives in.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	DataDir    string `toml:"data_dir"`
	TempDir    string `toml:"temp_dir"`
	LogDir     string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Extraction contains escalation thresholds, tool timeouts and binaries.
type Extraction struct {
	AutoAcceptThreshold    float64 `toml:"auto_accept_threshold"`
	OCRFloor               float64 `toml:"ocr_floor"`
	OCRCommitThreshold     float64 `toml:"ocr_commit_threshold"`
	MetadataTimeoutSeconds int     `toml:"metadata_timeout_seconds"`
	ConvertTimeoutSeconds  int     `toml:"convert_timeout_seconds"`
	OCRTimeoutSeconds      int     `toml:"ocr_timeout_seconds"`
	BasicMaxPages          int     `toml:"basic_max_pages"`
	BasicFirstPages        int     `toml:"basic_first_pages"`
	BasicLastPages         int     `toml:"basic_last_pages"`
	EbookMetaBinary        string  `toml:"ebook_meta_binary"`
	EbookConvertBinary     string  `toml:"ebook_convert_binary"`
	PdftotextBinary        string  `toml:"pdftotext_binary"`
	PdftoppmBinary         string  `toml:"pdftoppm_binary"`
	TesseractBinary        string  `toml:"tesseract_binary"`
}

// OCR contains page selection and recognition settings for the OCR method.
type OCR struct {
	FirstPages int    `toml:"first_pages"`
	LastPages  int    `toml:"last_pages"`
	DPI        int    `toml:"dpi"`
	Language   string `toml:"language"`
}

// Similarity contains the fuzzy duplicate thresholds.
type Similarity struct {
	TitleThreshold  float64 `toml:"title_threshold"`
	AuthorThreshold float64 `toml:"author_threshold"`
	Metric          string  `toml:"metric"`
}

// Enrichment contains bibliographic provider settings.
type Enrichment struct {
	Enabled           bool     `toml:"enabled"`
	Providers         []string `toml:"providers"`
	OpenLibraryURL    string   `toml:"open_library_url"`
	GoogleBooksURL    string   `toml:"google_books_url"`
	GoogleBooksAPIKey string   `toml:"google_books_api_key"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	RetryAttempts     int      `toml:"retry_attempts"`
	Cache             bool     `toml:"cache"`
}

// Catalog contains catalog storage options.
type Catalog struct {
	SQLiteMirror bool `toml:"sqlite_mirror"`
}

// Schedule contains cron specs for daemon jobs. An empty spec disables the job.
type Schedule struct {
	OCRBatch      string `toml:"ocr_batch"`
	LivenessCheck string `toml:"liveness_check"`
	TempCleanup   string `toml:"temp_cleanup"`
	InboxDir      string `toml:"inbox_dir"`
}

// Notifications contains ntfy delivery settings. An empty topic disables
// notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	ReviewNeeded          bool   `toml:"review_needed"`
}

// Config encapsulates all configuration values for spines.
//
// Configuration sections by subsystem:
//   - Paths: library, data, temp and log directories
//   - Logging: log format and level
//   - Extraction: escalation thresholds, tool binaries and timeouts
//   - OCR: page selection for the OCR method
//   - Similarity: duplicate detection thresholds
//   - Enrichment: ISBN lookup providers
//   - Catalog: optional sqlite mirror
//   - Schedule: daemon cron jobs and inbox watching
//   - Notifications: ntfy topic for queue events
type Config struct {
	Paths      Paths      `toml:"paths"`
	Logging    Logging    `toml:"logging"`
	Extraction Extraction `toml:"extraction"`
	OCR        OCR        `toml:"ocr"`
	Similarity Similarity `toml:"similarity"`
	Enrichment Enrichment `toml:"enrichment"`
	Catalog    Catalog    `toml:"catalog"`
	Schedule   Schedule   `toml:"schedule"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file is decoded. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("spines.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the catalog writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LibraryDir, c.Paths.DataDir, c.Paths.TempDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LibraryIndexPath returns the path of the JSON catalog index.
func (c *Config) LibraryIndexPath() string {
	return filepath.Join(c.Paths.DataDir, "library.json")
}

// ReviewQueuePath returns the path of the persisted review queue.
func (c *Config) ReviewQueuePath() string {
	return filepath.Join(c.Paths.DataDir, "review_queue.json")
}

// OCRQueuePath returns the path of the persisted OCR queue.
func (c *Config) OCRQueuePath() string {
	return filepath.Join(c.Paths.DataDir, "ocr_queue.json")
}

// EnrichmentCachePath returns the path of the ISBN lookup cache.
func (c *Config) EnrichmentCachePath() string {
	return filepath.Join(c.Paths.DataDir, "enrichment_cache.json")
}

// CollectionsPath returns the path of the saved collections document.
func (c *Config) CollectionsPath() string {
	return filepath.Join(c.Paths.DataDir, "collections.json")
}

// MirrorPath returns the path of the sqlite catalog mirror.
func (c *Config) MirrorPath() string {
	return filepath.Join(c.Paths.DataDir, "library.db")
}

// LockPath returns the path of the single-writer lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "spines.lock")
}

// MetadataTimeout returns the ebook-meta timeout.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Extraction.MetadataTimeoutSeconds) * time.Second
}

// ConvertTimeout returns the ebook-convert timeout.
func (c *Config) ConvertTimeout() time.Duration {
	return time.Duration(c.Extraction.ConvertTimeoutSeconds) * time.Second
}

// OCRTimeout returns the per-page OCR timeout.
func (c *Config) OCRTimeout() time.Duration {
	return time.Duration(c.Extraction.OCRTimeoutSeconds) * time.Second
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		return defaultNtfyTimeoutSeconds * time.Second
	}
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// EnrichmentTimeout returns the per-request provider timeout.
func (c *Config) EnrichmentTimeout() time.Duration {
	return time.Duration(c.Enrichment.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
