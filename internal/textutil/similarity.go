package textutil

import (
	"fmt"
	"strings"
)

// Metric scores two strings in [0,1]; 1 means identical.
type Metric interface {
	Similarity(a, b string) float64
}

// MetricFunc adapts a function into a Metric.
type MetricFunc func(a, b string) float64

func (f MetricFunc) Similarity(a, b string) float64 { return f(a, b) }

// Metric names accepted by MetricByName.
const (
	MetricRatio       = "ratio"
	MetricTokenCosine = "token_cosine"
)

// SequenceRatio is the default metric: matching characters over total
// characters, computed from recursive longest common blocks.
var SequenceRatio Metric = MetricFunc(Ratio)

// TokenCosine compares term-frequency fingerprints, which ignores word order.
var TokenCosine Metric = MetricFunc(func(a, b string) float64 {
	if a == b {
		return 1
	}
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
})

// MetricByName resolves a configured metric name.
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MetricRatio:
		return SequenceRatio, nil
	case MetricTokenCosine:
		return TokenCosine, nil
	default:
		return nil, fmt.Errorf("unknown similarity metric %q", name)
	}
}

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}
