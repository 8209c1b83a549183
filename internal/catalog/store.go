package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"spines/internal/jsonfile"
	"spines/internal/logging"
	"spines/internal/services"
)

// LibraryVersion is written into the metadata block of library.json.
const LibraryVersion = "1.1"

// MetadataFile is the per-entry sidecar written beside each asset.
const MetadataFile = "metadata.json"

// LibraryMetadata is the library-level block of library.json.
type LibraryMetadata struct {
	Version      string     `json:"version"`
	Created      time.Time  `json:"created"`
	LastUpdated  time.Time  `json:"last_updated"`
	LastScan     *time.Time `json:"last_scan,omitempty"`
	TotalBooks   int        `json:"total_books"`
	LibraryPath  string     `json:"library_path"`
	Contributors []string   `json:"contributors"`
	Readers      []string   `json:"readers"`
}

type libraryDocument struct {
	Metadata LibraryMetadata  `json:"metadata"`
	Books    map[string]Entry `json:"books"`
}

// JSONStore persists the catalog as a single library.json document.
type JSONStore struct {
	path       string
	libraryDir string
	logger     *slog.Logger
	now        func() time.Time

	mu sync.Mutex
}

// StoreOption customises a JSONStore.
type StoreOption func(*JSONStore)

// WithClock overrides the time source used for bookkeeping timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *JSONStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewJSONStore opens the library index at path. libraryDir is where asset
// folders live; per-entry metadata.json files there are refreshed on upsert.
func NewJSONStore(path, libraryDir string, logger *slog.Logger, opts ...StoreOption) *JSONStore {
	s := &JSONStore{
		path:       path,
		libraryDir: libraryDir,
		logger:     logging.NewComponentLogger(logger, "catalog"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the library index location.
func (s *JSONStore) Path() string { return s.path }

// LibraryDir returns the asset root.
func (s *JSONStore) LibraryDir() string { return s.libraryDir }

// GetAll returns every entry sorted by author then title.
func (s *JSONStore) GetAll(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(doc.Books))
	for id, entry := range doc.Books {
		if entry.ID == "" {
			entry.ID = id
		}
		entries = append(entries, entry)
	}
	SortEntries(entries)
	return entries, nil
}

// Get returns the entry for id.
func (s *JSONStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := doc.Books[strings.TrimSpace(id)]
	if ok && entry.ID == "" {
		entry.ID = id
	}
	return entry, ok, nil
}

// Upsert inserts or replaces entry and folds its contributors into the
// library-wide contributor list.
func (s *JSONStore) Upsert(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry.ID = strings.TrimSpace(entry.ID)
	if entry.ID == "" {
		return services.Wrap(services.ErrValidation, "catalog", "upsert", "entry id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Books[entry.ID] = entry
	doc.Metadata.Contributors = mergeNames(doc.Metadata.Contributors, entry.Contributors...)
	if err := s.save(doc); err != nil {
		return err
	}
	s.writeSidecar(entry)
	s.logger.Debug("catalog entry stored", logging.String("entry_id", entry.ID))
	return nil
}

// Delete removes id from the index. Asset folders are left on disk.
func (s *JSONStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Books[id]; !ok {
		return services.Wrap(services.ErrNotFound, "catalog", "delete", fmt.Sprintf("entry %q not found", id), nil)
	}
	delete(doc.Books, id)
	return s.save(doc)
}

// Metadata returns the library metadata block.
func (s *JSONStore) Metadata(ctx context.Context) (LibraryMetadata, error) {
	if err := ctx.Err(); err != nil {
		return LibraryMetadata{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return LibraryMetadata{}, err
	}
	return doc.Metadata, nil
}

// AddContributor records name in the library-wide contributor list.
func (s *JSONStore) AddContributor(ctx context.Context, name string) error {
	return s.updateMetadata(ctx, func(m *LibraryMetadata) {
		m.Contributors = mergeNames(m.Contributors, name)
	})
}

// AddReaders records names in the library-wide reader list.
func (s *JSONStore) AddReaders(ctx context.Context, names ...string) error {
	return s.updateMetadata(ctx, func(m *LibraryMetadata) {
		m.Readers = mergeNames(m.Readers, names...)
	})
}

// MarkScanned stamps the last directory scan time.
func (s *JSONStore) MarkScanned(ctx context.Context, at time.Time) error {
	return s.updateMetadata(ctx, func(m *LibraryMetadata) {
		at := at.UTC()
		m.LastScan = &at
	})
}

func (s *JSONStore) updateMetadata(ctx context.Context, fn func(*LibraryMetadata)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	fn(&doc.Metadata)
	return s.save(doc)
}

func (s *JSONStore) load() (*libraryDocument, error) {
	doc := &libraryDocument{}
	res, err := jsonfile.Load(s.path, doc, s.logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "load library", s.path, err)
	}
	if res.Missing || res.Reset {
		doc = &libraryDocument{}
	}
	if doc.Books == nil {
		doc.Books = make(map[string]Entry)
	}
	if doc.Metadata.Version == "" {
		doc.Metadata.Version = LibraryVersion
	}
	if doc.Metadata.Created.IsZero() {
		doc.Metadata.Created = s.now().UTC()
	}
	if doc.Metadata.LibraryPath == "" {
		doc.Metadata.LibraryPath = s.libraryDir
	}
	if doc.Metadata.Contributors == nil {
		doc.Metadata.Contributors = []string{}
	}
	if doc.Metadata.Readers == nil {
		doc.Metadata.Readers = []string{}
	}
	return doc, nil
}

func (s *JSONStore) save(doc *libraryDocument) error {
	doc.Metadata.TotalBooks = len(doc.Books)
	doc.Metadata.LastUpdated = s.now().UTC()
	if err := jsonfile.Save(s.path, doc); err != nil {
		return services.Wrap(services.ErrTransient, "catalog", "save library", s.path, err)
	}
	return nil
}

// writeSidecar refreshes <library>/<folder>/metadata.json when the folder exists.
func (s *JSONStore) writeSidecar(entry Entry) {
	if s.libraryDir == "" || entry.FolderName == "" {
		return
	}
	dir := filepath.Join(s.libraryDir, entry.FolderName)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	if err := jsonfile.Save(filepath.Join(dir, MetadataFile), entry); err != nil {
		logging.WarnWithContext(s.logger, "failed to refresh entry metadata file", "catalog_sidecar_failed",
			logging.String("entry_id", entry.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "metadata.json is stale; library.json remains authoritative"),
		)
	}
}

// SortEntries orders entries by author, then title, then id.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ai, aj := strings.ToLower(entries[i].Author), strings.ToLower(entries[j].Author)
		if ai != aj {
			return ai < aj
		}
		ti, tj := strings.ToLower(entries[i].Title), strings.ToLower(entries[j].Title)
		if ti != tj {
			return ti < tj
		}
		return entries[i].ID < entries[j].ID
	})
}

func mergeNames(existing []string, names ...string) []string {
	out := slices.Clone(existing)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return normalizeList(out)
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
