package enrichment

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"spines/internal/jsonfile"
	"spines/internal/logging"
)

// CacheEntry is a cached positive lookup.
type CacheEntry struct {
	ISBN     string    `json:"isbn"`
	Record   Record    `json:"record"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache stores successful lookups keyed by ISBN. A Cache with an empty path
// is inert.
type Cache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewCache loads the cache at path. Load failures start an empty cache.
func NewCache(path string, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "enrichment_cache")
	c := &Cache{path: path, logger: logger, entries: make(map[string]CacheEntry)}
	if path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load enrichment cache", "enrichment_cache_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "previously enriched ISBNs will be looked up again"))
	}
	return c
}

// Lookup returns the cached record for isbn.
func (c *Cache) Lookup(isbn string) (Record, bool) {
	isbn = strings.TrimSpace(isbn)
	if c == nil || isbn == "" || c.path == "" {
		return Record{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[isbn]
	return entry.Record, ok
}

// Store records a positive lookup and persists the cache.
func (c *Cache) Store(isbn string, rec Record) error {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return errors.New("isbn cannot be empty")
	}
	if c == nil || c.path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[isbn] = CacheEntry{ISBN: isbn, Record: rec, CachedAt: time.Now().UTC()}
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	c.logger.Debug("cached enrichment record",
		logging.String("isbn", isbn),
		logging.String("provider", rec.Provider),
		logging.String("title", rec.Title))
	return nil
}

// Count returns the number of cached records.
func (c *Cache) Count() int {
	if c == nil || c.path == "" {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every cached record.
func (c *Cache) Clear() error {
	if c == nil || c.path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
	return c.save()
}

func (c *Cache) load() error {
	var entries []CacheEntry
	if _, err := jsonfile.Load(c.path, &entries, c.logger); err != nil {
		return err
	}
	for _, entry := range entries {
		if strings.TrimSpace(entry.ISBN) != "" {
			c.entries[entry.ISBN] = entry
		}
	}
	c.logger.Debug("loaded enrichment cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

func (c *Cache) save() error {
	entries := make([]CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ISBN < entries[j].ISBN
	})
	return jsonfile.Save(c.path, entries)
}
