// Package similarity compares extraction results against catalog entries to
// find exact identifier matches and likely duplicates.
package similarity

import (
	"sort"
	"strings"

	"spines/internal/catalog"
	"spines/internal/config"
	"spines/internal/textutil"
)

// Classification labels how a match was established.
type Classification string

const (
	ExactIdentifier Classification = "exact_identifier"
	LikelyDuplicate Classification = "likely_duplicate"
	HighSimilarity  Classification = "high_similarity"
)

const (
	DefaultTitleThreshold  = 0.85
	DefaultAuthorThreshold = 0.90
	identifierBonus        = 0.1
)

// Match is one scored comparison. It is never persisted directly; catalog
// entries keep a RelatedCopy snapshot instead.
type Match struct {
	EntryID        string         `json:"book_id"`
	Classification Classification `json:"similarity_type"`
	Confidence     float64        `json:"confidence"`
	TitleScore     float64        `json:"title_similarity,omitempty"`
	AuthorScore    float64        `json:"author_similarity,omitempty"`
	Entry          catalog.Entry  `json:"-"`
}

// Duplicate reports whether the match is strong enough to require a copy
// decision from an operator.
func (m Match) Duplicate() bool {
	return m.Classification == ExactIdentifier || m.Classification == LikelyDuplicate
}

// Snapshot converts the match into the related-copy record stored on the new
// entry.
func (m Match) Snapshot() catalog.RelatedCopy {
	return m.Entry.RelatedCopy(string(m.Classification), m.Confidence)
}

// Detector holds the thresholds and string metric.
type Detector struct {
	metric          textutil.Metric
	titleThreshold  float64
	authorThreshold float64
}

// Option configures a Detector.
type Option func(*Detector)

// WithMetric replaces the sequence-ratio metric.
func WithMetric(m textutil.Metric) Option {
	return func(d *Detector) {
		if m != nil {
			d.metric = m
		}
	}
}

// WithThresholds overrides the title and author thresholds.
func WithThresholds(title, author float64) Option {
	return func(d *Detector) {
		if title > 0 {
			d.titleThreshold = title
		}
		if author > 0 {
			d.authorThreshold = author
		}
	}
}

// New builds a detector with default thresholds.
func New(opts ...Option) *Detector {
	d := &Detector{
		metric:          textutil.SequenceRatio,
		titleThreshold:  DefaultTitleThreshold,
		authorThreshold: DefaultAuthorThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFromConfig builds a detector from the similarity section.
func NewFromConfig(cfg *config.Config) (*Detector, error) {
	metric, err := textutil.MetricByName(cfg.Similarity.Metric)
	if err != nil {
		return nil, err
	}
	return New(WithMetric(metric), WithThresholds(cfg.Similarity.TitleThreshold, cfg.Similarity.AuthorThreshold)), nil
}

// FindSimilar compares meta against entries and returns matches ordered by
// descending confidence. The entry with excludeID is skipped.
func (d *Detector) FindSimilar(meta catalog.Metadata, excludeID string, entries []catalog.Entry) []Match {
	var matches []Match
	for _, entry := range entries {
		if excludeID != "" && entry.ID == excludeID {
			continue
		}
		if m, ok := d.Compare(meta, entry); ok {
			matches = append(matches, m)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return rank(matches[i].Classification) < rank(matches[j].Classification)
	})
	return matches
}

// Compare scores one entry.
func (d *Detector) Compare(meta catalog.Metadata, entry catalog.Entry) (Match, bool) {
	if blank(entry.Title) && blank(entry.Author) {
		return Match{}, false
	}
	draftISBN := strings.TrimSpace(meta.ISBN)
	entryISBN := strings.TrimSpace(entry.ISBN)
	if draftISBN != "" && draftISBN == entryISBN {
		return Match{EntryID: entry.ID, Classification: ExactIdentifier, Confidence: 1, Entry: entry}, true
	}

	title := d.metric.Similarity(textutil.Normalize(meta.Title), textutil.Normalize(entry.Title))
	author := d.metric.Similarity(textutil.Normalize(meta.Author), textutil.Normalize(entry.Author))
	if title < d.titleThreshold || author < d.authorThreshold {
		return Match{}, false
	}
	m := Match{
		EntryID:        entry.ID,
		Classification: HighSimilarity,
		Confidence:     (title + author) / 2,
		TitleScore:     title,
		AuthorScore:    author,
		Entry:          entry,
	}
	if draftISBN != "" || entryISBN != "" {
		m.Confidence = min(m.Confidence+identifierBonus, 1)
		m.Classification = LikelyDuplicate
	}
	return m, true
}

// FirstDuplicate returns the highest-ranked exact or likely duplicate.
func FirstDuplicate(matches []Match) (Match, bool) {
	for _, m := range matches {
		if m.Duplicate() {
			return m, true
		}
	}
	return Match{}, false
}

func rank(c Classification) int {
	switch c {
	case ExactIdentifier:
		return 0
	case LikelyDuplicate:
		return 1
	default:
		return 2
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
