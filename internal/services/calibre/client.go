// Package calibre wraps the ebook-meta and ebook-convert command-line tools.
package calibre

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spines/internal/services"
	"spines/internal/services/command"
	"spines/internal/staging"
)

// Metadata holds the fields ebook-meta reports. Empty strings mean the field
// was absent.
type Metadata struct {
	Title     string
	Authors   string
	Published string
	Publisher string
	// IdentifierLines are raw output lines mentioning an ISBN.
	IdentifierLines []string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec command.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithBinaries overrides the ebook-meta and ebook-convert binary names.
func WithBinaries(meta, convert string) Option {
	return func(c *Client) {
		if strings.TrimSpace(meta) != "" {
			c.metaBinary = strings.TrimSpace(meta)
		}
		if strings.TrimSpace(convert) != "" {
			c.convertBinary = strings.TrimSpace(convert)
		}
	}
}

// WithTimeouts sets per-invocation deadlines for metadata reads and conversions.
func WithTimeouts(meta, convert time.Duration) Option {
	return func(c *Client) {
		c.metaTimeout = meta
		c.convertTimeout = convert
	}
}

// Client invokes calibre tools.
type Client struct {
	metaBinary     string
	convertBinary  string
	metaTimeout    time.Duration
	convertTimeout time.Duration
	exec           command.Executor
}

// New constructs a calibre client with default binaries and timeouts.
func New(opts ...Option) *Client {
	client := &Client{
		metaBinary:     "ebook-meta",
		convertBinary:  "ebook-convert",
		metaTimeout:    30 * time.Second,
		convertTimeout: 60 * time.Second,
		exec:           command.System{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ReadMetadata runs ebook-meta against path and parses its report.
func (c *Client) ReadMetadata(ctx context.Context, path string) (Metadata, error) {
	runCtx, cancel := withTimeout(ctx, c.metaTimeout)
	defer cancel()

	out, err := c.exec.Output(runCtx, c.metaBinary, path)
	if err != nil {
		return Metadata{}, err
	}
	if strings.TrimSpace(string(out)) == "" {
		return Metadata{}, services.Wrap(services.ErrExternalTool, "calibre", "ebook-meta", "empty output", nil)
	}
	return ParseMetadata(string(out)), nil
}

// ParseMetadata interprets ebook-meta "Key : value" output.
func ParseMetadata(output string) Metadata {
	var meta Metadata
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch {
		case found && key == "Title":
			meta.Title = value
		case found && strings.HasPrefix(key, "Author(s)"):
			meta.Authors = stripAuthorSort(value)
		case found && key == "Published":
			meta.Published = value
		case found && key == "Publisher":
			meta.Publisher = value
		}
		if strings.Contains(strings.ToUpper(line), "ISBN") {
			meta.IdentifierLines = append(meta.IdentifierLines, line)
		}
	}
	return meta
}

// stripAuthorSort drops the "[Sort, Author]" suffix calibre appends.
func stripAuthorSort(value string) string {
	if idx := strings.Index(value, " ["); idx > 0 && strings.HasSuffix(value, "]") {
		return strings.TrimSpace(value[:idx])
	}
	return value
}

// ConvertToText converts path to plain text with ebook-convert and returns it.
// The intermediate file is created in workDir (or the system temp dir) and
// removed afterwards.
func (c *Client) ConvertToText(ctx context.Context, path, workDir string) (string, error) {
	tmp, err := os.CreateTemp(workDir, staging.Pattern("convert", ".txt"))
	if err != nil {
		return "", fmt.Errorf("create conversion target: %w", err)
	}
	target := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(target)

	runCtx, cancel := withTimeout(ctx, c.convertTimeout)
	defer cancel()

	if _, err := c.exec.Output(runCtx, c.convertBinary, path, target); err != nil {
		return "", err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrExternalTool, "calibre", "ebook-convert", "no output produced", err)
		}
		return "", fmt.Errorf("read converted text %s: %w", filepath.Base(target), err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
