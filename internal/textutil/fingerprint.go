package textutil

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTokenRunes drops articles and initials from title and author vectors.
const minTokenRunes = 3

// Fingerprint is a term-frequency vector over normalized tokens.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint returns nil when text yields no tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var sum float64
	for _, count := range counts {
		sum += count * count
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(sum)}
}

// Tokenize normalizes text and splits it on anything that is not a letter or
// digit. Tokens shorter than three runes are skipped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, token := range fields {
		if utf8.RuneCountInString(token) >= minTokenRunes {
			terms = append(terms, token)
		}
	}
	return terms
}
