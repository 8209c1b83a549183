// Package tesseract wraps the tesseract OCR command-line tool.
package tesseract

import (
	"context"
	"strings"
	"time"

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

// WithBinary overrides the tesseract binary name.
func WithBinary(binary string) Option {
	return func(c *Client) {
		if strings.TrimSpace(binary) != "" {
			c.binary = strings.TrimSpace(binary)
		}
	}
}

// WithLanguage sets the recognition language (default eng).
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if strings.TrimSpace(lang) != "" {
			c.language = strings.TrimSpace(lang)
		}
	}
}

// WithTimeout bounds each recognition call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// Client runs OCR over page images.
type Client struct {
	binary   string
	language string
	timeout  time.Duration
	exec     command.Executor
}

// New constructs a tesseract client.
func New(opts ...Option) *Client {
	client := &Client{
		binary:   "tesseract",
		language: "eng",
		timeout:  120 * time.Second,
		exec:     command.System{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Recognize returns the text tesseract reads from image.
func (c *Client) Recognize(ctx context.Context, image string) (string, error) {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	out, err := c.exec.Output(runCtx, c.binary, image, "stdout", "-l", c.language)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(out), ""), nil
}
