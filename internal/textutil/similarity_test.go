package textutil

import (
	"math"
	"testing"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"abcd", "bcde", 0.75},
		{"hello", "hallo", 0.8},
		{"the pragmatic programmer", "the pragmatic programmer", 1},
		{"abc", "xyz", 0},
	}
	for _, tt := range tests {
		got := Ratio(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRatioIsSymmetricForSimpleCases(t *testing.T) {
	a, b := "domain driven design", "domain-driven design"
	if math.Abs(Ratio(a, b)-Ratio(b, a)) > 1e-9 {
		t.Fatalf("expected symmetric ratio, got %v vs %v", Ratio(a, b), Ratio(b, a))
	}
	if Ratio(a, b) < 0.9 {
		t.Fatalf("expected high ratio for hyphen variant, got %v", Ratio(a, b))
	}
}

func TestMetricByName(t *testing.T) {
	if m, err := MetricByName(""); err != nil || m == nil {
		t.Fatalf("expected default metric, got %v %v", m, err)
	}
	if _, err := MetricByName("token_cosine"); err != nil {
		t.Fatalf("token_cosine: %v", err)
	}
	if _, err := MetricByName("levenshtein"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestTokenCosineIgnoresWordOrder(t *testing.T) {
	got := TokenCosine.Similarity("programming pearls jon bentley", "bentley jon pearls programming")
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected 1 for reordered tokens, got %v", got)
	}
}

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
	}{
		{"both nil", nil, nil},
		{"a nil", nil, NewFingerprint("hello world")},
		{"b nil", NewFingerprint("hello world"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
		})
	}
}

func TestCosineSimilarityPartialOverlap(t *testing.T) {
	got := CosineSimilarity(NewFingerprint("the quick brown fox"), NewFingerprint("the slow brown cat"))
	if got <= 0 || got >= 1 {
		t.Errorf("CosineSimilarity(partial) = %v, want between 0 and 1", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  The   Pragmatic\tProgrammer ", "the pragmatic programmer"},
		{"STRASSE", "strasse"},
		{"Straße", "strasse"},
		{"ﬁnance", "finance"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanForFilename(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Hunt, Andrew", 30, "Hunt_Andrew"},
		{"C++: The   Complete Reference!", 40, "C_The_Complete_Reference"},
		{"Gödel, Escher, Bach", 0, "Gödel_Escher_Bach"},
		{"a-b c", 2, "a-"},
	}
	for _, tt := range tests {
		if got := CleanForFilename(tt.in, tt.max); got != tt.want {
			t.Errorf("CleanForFilename(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := map[string]string{
		"Alice Smith":    "alice_smith",
		"  ":             "unknown",
		"José  Saramago": "jose_saramago",
		"o'brien, flann": "o_brien_flann",
		"__reader-1__":   "reader-1",
	}
	for in, want := range tests {
		if got := SanitizeToken(in); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenizeFoldsAndSkipsShortWords(t *testing.T) {
	got := Tokenize("The Art of Gödel, an  Essay")
	want := []string{"the", "art", "gödel", "essay"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize = %v, want %v", got, want)
		}
	}
}
