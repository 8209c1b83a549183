package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFile populates the process environment from a dotenv file. Variables
// already present in the environment are left untouched. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv("SPINES_BOOKS_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Paths.LibraryDir = value
	}
	if value, ok := os.LookupEnv("SPINES_DATA_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = value
	}
	if value, ok := os.LookupEnv("SPINES_TEMP_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Paths.TempDir = value
	}
	if value, ok := os.LookupEnv("SPINES_LOGS_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Paths.LogDir = value
	}
	if value, ok := os.LookupEnv("SPINES_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	if value, ok := os.LookupEnv("SPINES_LOG_FORMAT"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Format = value
	}
	if value, ok := os.LookupEnv("SPINES_GOOGLE_BOOKS_API_KEY"); ok {
		c.Enrichment.GoogleBooksAPIKey = value
	} else if value, ok := os.LookupEnv("GOOGLE_BOOKS_API_KEY"); ok {
		c.Enrichment.GoogleBooksAPIKey = value
	}
	if value, ok := os.LookupEnv("SPINES_ENRICHMENT_ENABLED"); ok {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			c.Enrichment.Enabled = enabled
		}
	}
	if value, ok := os.LookupEnv("SPINES_NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = value
	}
	if value, ok := os.LookupEnv("SPINES_SQLITE_MIRROR"); ok {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			c.Catalog.SQLiteMirror = enabled
		}
	}
}
