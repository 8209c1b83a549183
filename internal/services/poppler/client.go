// Package poppler wraps the pdftotext and pdftoppm tools from poppler-utils.
package poppler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spines/internal/services"
	"spines/internal/services/command"
)

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

// WithBinaries overrides the pdftotext and pdftoppm binary names.
func WithBinaries(pdftotext, pdftoppm string) Option {
	return func(c *Client) {
		if strings.TrimSpace(pdftotext) != "" {
			c.textBinary = strings.TrimSpace(pdftotext)
		}
		if strings.TrimSpace(pdftoppm) != "" {
			c.renderBinary = strings.TrimSpace(pdftoppm)
		}
	}
}

// WithTimeout bounds each individual tool invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// Client invokes poppler tools.
type Client struct {
	textBinary   string
	renderBinary string
	timeout      time.Duration
	exec         command.Executor
}

// New constructs a poppler client.
func New(opts ...Option) *Client {
	client := &Client{
		textBinary:   "pdftotext",
		renderBinary: "pdftoppm",
		timeout:      60 * time.Second,
		exec:         command.System{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// PageText extracts the text layer of one 1-based page, preserving layout.
func (c *Client) PageText(ctx context.Context, path string, page int) (string, error) {
	if page < 1 {
		return "", services.Wrap(services.ErrValidation, "poppler", "pdftotext", "page must be positive", nil)
	}
	n := strconv.Itoa(page)
	return c.text(ctx, "-f", n, "-l", n, "-layout", path, "-")
}

// Text extracts the full text layer.
func (c *Client) Text(ctx context.Context, path string) (string, error) {
	return c.text(ctx, "-layout", path, "-")
}

func (c *Client) text(ctx context.Context, args ...string) (string, error) {
	runCtx, cancel := c.withTimeout(ctx)
	defer cancel()
	out, err := c.exec.Output(runCtx, c.textBinary, args...)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(out), ""), nil
}

// RenderPage rasterizes one 1-based page to a PNG in outDir at dpi and returns
// the image path.
func (c *Client) RenderPage(ctx context.Context, path string, page, dpi int, outDir string) (string, error) {
	if page < 1 {
		return "", services.Wrap(services.ErrValidation, "poppler", "pdftoppm", "page must be positive", nil)
	}
	if dpi <= 0 {
		dpi = 300
	}
	prefix := filepath.Join(outDir, fmt.Sprintf("page-%04d", page))
	n := strconv.Itoa(page)

	runCtx, cancel := c.withTimeout(ctx)
	defer cancel()
	args := []string{"-r", strconv.Itoa(dpi), "-png", "-f", n, "-l", n, "-singlefile", path, prefix}
	if _, err := c.exec.Output(runCtx, c.renderBinary, args...); err != nil {
		return "", err
	}
	image := prefix + ".png"
	if _, err := os.Stat(image); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "poppler", "pdftoppm", "image not produced", err)
	}
	return image, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
