package catalog

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spines/internal/jsonfile"
	"spines/internal/logging"
	"spines/internal/services"
)

// Collection modes.
const (
	CollectionStatic  = "static"
	CollectionDynamic = "dynamic"
)

// CollectionFilters select entries for a dynamic collection. Empty fields
// match everything; set fields must all match.
type CollectionFilters struct {
	// Contributor matches when any listed contributor is on the entry.
	Contributor    []string `json:"contributor,omitempty"`
	AuthorContains string   `json:"author_contains,omitempty"`
	TitleContains  string   `json:"title_contains,omitempty"`
	MediaType      string   `json:"media_type,omitempty"`
	TagsAny        []string `json:"tags_any,omitempty"`
	ReadByAny      []string `json:"read_by_any,omitempty"`
}

// Collection is a named shelf of entries. Static collections list their
// members; dynamic ones are resolved from Filters at read time.
type Collection struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Icon        string            `json:"icon,omitempty"`
	Mode        string            `json:"mode"`
	Filters     CollectionFilters `json:"filters"`
	BookIDs     []string          `json:"book_ids"`
	Created     time.Time         `json:"created"`
	Updated     time.Time         `json:"updated"`
}

// CollectionUpdate carries the fields an update may change. Nil fields are
// left alone.
type CollectionUpdate struct {
	Name        *string
	Description *string
	Icon        *string
	Mode        *string
	Filters     *CollectionFilters
}

type collectionsDocument struct {
	Collections map[string]Collection `json:"collections"`
}

// CollectionStore persists collections as a single collections.json document.
type CollectionStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// CollectionOption customises a CollectionStore.
type CollectionOption func(*CollectionStore)

// WithCollectionClock overrides the time source used for timestamps.
func WithCollectionClock(now func() time.Time) CollectionOption {
	return func(s *CollectionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCollectionStore opens the collections document at path.
func NewCollectionStore(path string, logger *slog.Logger, opts ...CollectionOption) *CollectionStore {
	s := &CollectionStore{
		path:   path,
		logger: logging.NewComponentLogger(logger, "collections"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the collections document location.
func (s *CollectionStore) Path() string { return s.path }

// List returns every collection ordered by name.
func (s *CollectionStore) List(ctx context.Context) ([]Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Collection, 0, len(doc.Collections))
	for _, c := range doc.Collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get returns a collection by id.
func (s *CollectionStore) Get(ctx context.Context, id string) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return Collection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Collection{}, err
	}
	c, ok := doc.Collections[id]
	if !ok {
		return Collection{}, services.Wrap(services.ErrNotFound, "collections", "get", "unknown collection "+id, nil)
	}
	return c, nil
}

// Create stores a new collection and returns it with its assigned id.
func (s *CollectionStore) Create(ctx context.Context, c Collection) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return Collection{}, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Collection{}, services.Wrap(services.ErrValidation, "collections", "create", "name is required", nil)
	}
	if c.Mode == "" {
		c.Mode = CollectionStatic
	}
	if err := validateMode("create", c.Mode); err != nil {
		return Collection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Collection{}, err
	}
	c.ID = newCollectionID(doc)
	now := s.now().UTC()
	c.Created, c.Updated = now, now
	c.BookIDs = uniqueIDs(c.BookIDs)
	doc.Collections[c.ID] = c
	if err := s.save(doc); err != nil {
		return Collection{}, err
	}
	s.logger.Info("collection created",
		logging.String("collection_id", c.ID),
		logging.String("mode", c.Mode),
	)
	return c, nil
}

// Update applies the non-nil fields of u to the collection id.
func (s *CollectionStore) Update(ctx context.Context, id string, u CollectionUpdate) (Collection, error) {
	return s.mutate(ctx, id, "update", func(c *Collection) error {
		if u.Name != nil {
			name := strings.TrimSpace(*u.Name)
			if name == "" {
				return services.Wrap(services.ErrValidation, "collections", "update", "name is required", nil)
			}
			c.Name = name
		}
		if u.Description != nil {
			c.Description = *u.Description
		}
		if u.Icon != nil {
			c.Icon = *u.Icon
		}
		if u.Mode != nil {
			if err := validateMode("update", *u.Mode); err != nil {
				return err
			}
			c.Mode = *u.Mode
		}
		if u.Filters != nil {
			c.Filters = *u.Filters
		}
		return nil
	})
}

// Delete removes a collection. Entries are untouched.
func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Collections[id]; !ok {
		return services.Wrap(services.ErrNotFound, "collections", "delete", "unknown collection "+id, nil)
	}
	delete(doc.Collections, id)
	return s.save(doc)
}

// AddBook adds an entry id to a static collection. Adding a member twice is
// a no-op.
func (s *CollectionStore) AddBook(ctx context.Context, id, bookID string) (Collection, error) {
	if bookID == "" {
		return Collection{}, services.Wrap(services.ErrValidation, "collections", "add book", "book id is required", nil)
	}
	return s.mutate(ctx, id, "add book", func(c *Collection) error {
		if err := requireStatic(c, "add book"); err != nil {
			return err
		}
		if !slices.Contains(c.BookIDs, bookID) {
			c.BookIDs = append(c.BookIDs, bookID)
		}
		return nil
	})
}

// RemoveBook drops an entry id from a static collection.
func (s *CollectionStore) RemoveBook(ctx context.Context, id, bookID string) (Collection, error) {
	return s.mutate(ctx, id, "remove book", func(c *Collection) error {
		if err := requireStatic(c, "remove book"); err != nil {
			return err
		}
		c.BookIDs = slices.DeleteFunc(c.BookIDs, func(b string) bool { return b == bookID })
		return nil
	})
}

// Resolve returns the entries of c. Static members missing from the catalog
// are skipped. limit <= 0 returns everything.
func (s *CollectionStore) Resolve(ctx context.Context, repo Repository, c Collection, limit int) ([]Entry, error) {
	var out []Entry
	if c.Mode == CollectionStatic {
		for _, bookID := range c.BookIDs {
			if limit > 0 && len(out) >= limit {
				break
			}
			entry, ok, err := repo.Get(ctx, bookID)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, entry)
			}
		}
		return out, nil
	}
	entries, err := repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		if c.Filters.Match(entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Match reports whether entry satisfies every set filter.
func (f CollectionFilters) Match(entry Entry) bool {
	if len(f.Contributor) > 0 && !anyShared(f.Contributor, entry.Contributors) {
		return false
	}
	if f.AuthorContains != "" && !containsFold(entry.Author, f.AuthorContains) {
		return false
	}
	if f.TitleContains != "" && !containsFold(entry.Title, f.TitleContains) {
		return false
	}
	if f.MediaType != "" && entry.MediaType != f.MediaType {
		return false
	}
	if len(f.TagsAny) > 0 && !anyShared(f.TagsAny, entry.Tags) {
		return false
	}
	if len(f.ReadByAny) > 0 && !anyShared(f.ReadByAny, entry.ReadBy) {
		return false
	}
	return true
}

func (s *CollectionStore) mutate(ctx context.Context, id, op string, fn func(*Collection) error) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return Collection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Collection{}, err
	}
	c, ok := doc.Collections[id]
	if !ok {
		return Collection{}, services.Wrap(services.ErrNotFound, "collections", op, "unknown collection "+id, nil)
	}
	if err := fn(&c); err != nil {
		return Collection{}, err
	}
	c.Updated = s.now().UTC()
	doc.Collections[id] = c
	if err := s.save(doc); err != nil {
		return Collection{}, err
	}
	return c, nil
}

func (s *CollectionStore) load() (*collectionsDocument, error) {
	doc := &collectionsDocument{}
	res, err := jsonfile.Load(s.path, doc, s.logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "collections", "load", s.path, err)
	}
	if res.Missing || res.Reset {
		doc = &collectionsDocument{}
	}
	if doc.Collections == nil {
		doc.Collections = make(map[string]Collection)
	}
	return doc, nil
}

func (s *CollectionStore) save(doc *collectionsDocument) error {
	for id, c := range doc.Collections {
		if c.BookIDs == nil {
			c.BookIDs = []string{}
			doc.Collections[id] = c
		}
	}
	if err := jsonfile.Save(s.path, doc); err != nil {
		return services.Wrap(services.ErrTransient, "collections", "save", s.path, err)
	}
	return nil
}

func validateMode(op, mode string) error {
	if mode != CollectionStatic && mode != CollectionDynamic {
		return services.Wrap(services.ErrValidation, "collections", op,
			"mode must be static or dynamic, got "+mode, nil)
	}
	return nil
}

func requireStatic(c *Collection, op string) error {
	if c.Mode != CollectionStatic {
		return services.Wrap(services.ErrValidation, "collections", op,
			"collection "+c.ID+" is dynamic; edit its filters instead", nil)
	}
	return nil
}

func newCollectionID(doc *collectionsDocument) string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		if _, taken := doc.Collections[id]; !taken {
			return id
		}
	}
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func anyShared(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
