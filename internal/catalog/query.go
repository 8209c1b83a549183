package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"spines/internal/services"
)

// DefaultLowConfidenceThreshold is the cut-off used by LowConfidence when the
// caller passes zero.
const DefaultLowConfidenceThreshold = 0.5

// Stats summarises the catalog.
type Stats struct {
	Total         int
	UniqueAuthors int
	WithISBN      int
	ByFileType    map[string]int
	ByMediaType   map[string]int
	ByMethod      map[string]int
}

// ComputeStats aggregates entries.
func ComputeStats(entries []Entry) Stats {
	stats := Stats{
		Total:       len(entries),
		ByFileType:  make(map[string]int),
		ByMediaType: make(map[string]int),
		ByMethod:    make(map[string]int),
	}
	authors := make(map[string]struct{})
	for _, e := range entries {
		author := strings.ToLower(strings.TrimSpace(e.Author))
		if author == "" {
			author = "unknown"
		}
		authors[author] = struct{}{}
		if e.ISBN != "" {
			stats.WithISBN++
		}
		stats.ByFileType[orUnknown(e.FileType)]++
		stats.ByMediaType[orUnknown(e.MediaType)]++
		stats.ByMethod[orUnknown(e.ExtractionMethod)]++
	}
	stats.UniqueAuthors = len(authors)
	return stats
}

// LowConfidence returns entries whose extraction confidence is below
// threshold, lowest first.
func LowConfidence(ctx context.Context, repo Repository, threshold float64) ([]Entry, error) {
	if threshold <= 0 {
		threshold = DefaultLowConfidenceThreshold
	}
	entries, err := repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if e.ExtractionConfidence < threshold {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExtractionConfidence < out[j].ExtractionConfidence
	})
	return out, nil
}

// UpdateEntry applies operator edits to id and marks the fields manually
// edited.
func UpdateEntry(ctx context.Context, repo Repository, id string, edits Edits) (Entry, error) {
	if edits.Empty() {
		return Entry{}, services.Wrap(services.ErrValidation, "catalog", "update", "no fields to update", nil)
	}
	entry, ok, err := repo.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, services.Wrap(services.ErrNotFound, "catalog", "update", fmt.Sprintf("entry %q not found", id), nil)
	}
	entry.ApplyEdits(edits)
	if err := repo.Upsert(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// MarkRead records reader on id. It reports false when reader was already
// listed.
func MarkRead(ctx context.Context, repo Repository, id, reader string) (Entry, bool, error) {
	reader = strings.TrimSpace(reader)
	if reader == "" {
		return Entry{}, false, services.Wrap(services.ErrValidation, "catalog", "mark read", "reader is required", nil)
	}
	entry, ok, err := repo.Get(ctx, id)
	if err != nil {
		return Entry{}, false, err
	}
	if !ok {
		return Entry{}, false, services.Wrap(services.ErrNotFound, "catalog", "mark read", fmt.Sprintf("entry %q not found", id), nil)
	}
	before := len(entry.ReadBy)
	entry.ReadBy = mergeNames(entry.ReadBy, reader)
	if len(entry.ReadBy) == before {
		return entry, false, nil
	}
	if err := repo.Upsert(ctx, entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// FindByOriginalFilename returns the first entry ingested from name.
func FindByOriginalFilename(ctx context.Context, repo Repository, name string) (Entry, bool, error) {
	entries, err := repo.GetAll(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.OriginalFilename == name {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Search filters entries by a case-insensitive substring of title, author or
// year.
func Search(entries []Entry, query string) []Entry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), query) ||
			strings.Contains(strings.ToLower(e.Author), query) ||
			(e.Year > 0 && strings.Contains(strconv.Itoa(e.Year), query)) {
			out = append(out, e)
		}
	}
	return out
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
