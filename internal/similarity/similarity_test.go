package similarity_test

import (
	"testing"

	"spines/internal/catalog"
	"spines/internal/similarity"
	"spines/internal/textutil"
)

func entry(id, title, author, isbn string) catalog.Entry {
	return catalog.Entry{ID: id, Metadata: catalog.Metadata{Title: title, Author: author, ISBN: isbn}}
}

func TestExactIdentifierOverridesTextualDistance(t *testing.T) {
	d := similarity.New(similarity.WithMetric(textutil.MetricFunc(func(a, b string) float64 { return 0.3 })))
	draft := catalog.Metadata{Title: "Something else", Author: "Nobody", ISBN: "9780306406157"}
	matches := d.FindSimilar(draft, "", []catalog.Entry{entry("a1", "Information Theory", "A. Author", "9780306406157")})
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	if matches[0].Classification != similarity.ExactIdentifier || matches[0].Confidence != 1 {
		t.Fatalf("unexpected match %+v", matches[0])
	}
}

func TestFindSimilarClassifications(t *testing.T) {
	d := similarity.New()
	entries := []catalog.Entry{
		entry("plain", "The Go Programming Language", "Alan Donovan", ""),
		entry("withisbn", "The Go Programming  language", "alan donovan", "9780134190440"),
		entry("other", "Cooking for Engineers", "Someone Else", ""),
		entry("blank", "", "", "9780134190440x"),
		entry("self", "The Go Programming Language", "Alan Donovan", ""),
	}
	draft := catalog.Metadata{Title: "The Go Programming Language", Author: "Alan Donovan"}

	matches := d.FindSimilar(draft, "self", entries)
	if len(matches) != 2 {
		t.Fatalf("expected two matches, got %+v", matches)
	}
	if matches[0].EntryID != "withisbn" || matches[0].Classification != similarity.LikelyDuplicate {
		t.Fatalf("expected likely duplicate first, got %+v", matches[0])
	}
	if matches[0].Confidence != 1 {
		t.Fatalf("expected bonus capped at 1, got %v", matches[0].Confidence)
	}
	if matches[1].EntryID != "plain" || matches[1].Classification != similarity.HighSimilarity {
		t.Fatalf("expected high similarity second, got %+v", matches[1])
	}
	if !matches[0].Duplicate() || matches[1].Duplicate() {
		t.Fatal("unexpected duplicate classification")
	}
	if dup, ok := similarity.FirstDuplicate(matches); !ok || dup.EntryID != "withisbn" {
		t.Fatalf("unexpected first duplicate %+v", dup)
	}
}

func TestThresholdsAreInclusiveAndIndependent(t *testing.T) {
	tests := []struct {
		name   string
		title  float64
		author float64
		want   bool
	}{
		{"both at threshold", 0.85, 0.90, true},
		{"title short", 0.84, 0.99, false},
		{"author short", 0.99, 0.89, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metric := textutil.MetricFunc(func(a, b string) float64 {
				if a == "title" {
					return tt.title
				}
				return tt.author
			})
			d := similarity.New(similarity.WithMetric(metric))
			_, ok := d.Compare(catalog.Metadata{Title: "Title", Author: "Author"}, entry("x", "t", "a", ""))
			if ok != tt.want {
				t.Fatalf("Compare ok=%v, want %v", ok, tt.want)
			}
		})
	}
}

func TestSnapshotCarriesEntryDetails(t *testing.T) {
	e := entry("abc", "Dune", "Frank Herbert", "9780441013593")
	e.Contributors = []string{"alice"}
	e.FolderName = "Frank_Herbert_Dune_1965_9780441013593"
	m, ok := similarity.New().Compare(catalog.Metadata{ISBN: "9780441013593"}, e)
	if !ok {
		t.Fatal("expected exact match")
	}
	snap := m.Snapshot()
	if snap.BookID != "abc" || snap.SimilarityType != "exact_identifier" || snap.FolderName != e.FolderName {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Contributors) != 1 || snap.Contributors[0] != "alice" {
		t.Fatalf("expected contributors copied, got %v", snap.Contributors)
	}
}
