package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spines/internal/config"
	"spines/internal/logging"
	"spines/internal/services"
)

// Provider is one external bibliographic source.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, isbn string) (Record, bool, error)
}

// Looker is the lookup capability extraction depends on.
type Looker interface {
	Lookup(ctx context.Context, isbn string) (Record, bool)
}

// Client queries providers in order.
type Client struct {
	providers []Provider
	cache     *Cache
	logger    *slog.Logger
}

var _ Looker = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithCache enables the on-disk record cache.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.NewComponentLogger(logger, "enrichment") }
}

// New creates a client over providers.
func New(providers []Provider, opts ...Option) *Client {
	c := &Client{providers: providers, logger: logging.NewComponentLogger(nil, "enrichment")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds the configured provider chain. Disabled enrichment
// yields a client with no providers.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	opts := []Option{WithLogger(logger)}
	if !cfg.Enrichment.Enabled {
		return New(nil, opts...)
	}
	httpClient := &http.Client{Timeout: cfg.EnrichmentTimeout()}
	retryOpt := WithRetry(uint(cfg.Enrichment.RetryAttempts), 500*time.Millisecond)

	var providers []Provider
	for _, name := range cfg.Enrichment.Providers {
		switch name {
		case config.ProviderOpenLibrary:
			providers = append(providers, NewOpenLibrary(cfg.Enrichment.OpenLibraryURL, httpClient, retryOpt))
		case config.ProviderGoogleBooks:
			providers = append(providers, NewGoogleBooks(cfg.Enrichment.GoogleBooksURL, cfg.Enrichment.GoogleBooksAPIKey, httpClient, retryOpt))
		}
	}
	if cfg.Enrichment.Cache {
		opts = append(opts, WithCache(NewCache(cfg.EnrichmentCachePath(), logger)))
	}
	return New(providers, opts...)
}

// Lookup returns the first usable record for isbn. Failures are logged and
// reported as a negative result.
func (c *Client) Lookup(ctx context.Context, isbn string) (Record, bool) {
	isbn = strings.TrimSpace(isbn)
	if c == nil || isbn == "" {
		return Record{}, false
	}
	if rec, ok := c.cache.Lookup(isbn); ok {
		c.logger.Debug("enrichment cache hit", logging.String("isbn", isbn), logging.String("provider", rec.Provider))
		return rec, true
	}
	for _, provider := range c.providers {
		if ctx.Err() != nil {
			return Record{}, false
		}
		rec, ok, err := provider.Lookup(ctx, isbn)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.logger.Debug("provider has no record", logging.String("provider", provider.Name()), logging.String("isbn", isbn))
				continue
			}
			logging.WarnWithContext(c.logger, "enrichment provider failed", "enrichment_provider_failed",
				logging.String("provider", provider.Name()),
				logging.String("isbn", isbn),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check network access or provider configuration"),
				logging.String(logging.FieldImpact, "next provider will be tried"))
			continue
		}
		if !ok {
			continue
		}
		if rec.Provider == "" {
			rec.Provider = provider.Name()
		}
		c.logger.Info("enrichment record found",
			logging.String("isbn", isbn),
			logging.String("provider", rec.Provider),
			logging.String("title", rec.Title))
		if err := c.cache.Store(isbn, rec); err != nil {
			logging.WarnWithContext(c.logger, "failed to cache enrichment record", "enrichment_cache_store_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "record will be fetched again next time"))
		}
		return rec, true
	}
	return Record{}, false
}

// ProviderNames lists the configured providers in order.
func (c *Client) ProviderNames() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}
