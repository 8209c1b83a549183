package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize case-folds s, applies NFKC compatibility composition and
// collapses runs of whitespace to single spaces.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}

// CleanForFilename keeps letters, digits, underscores, whitespace and hyphens,
// collapses whitespace, joins words with underscores and truncates to
// maxRunes. A non-positive maxRunes disables truncation.
func CleanForFilename(s string, maxRunes int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFC.String(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), "_")
	if maxRunes > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxRunes {
			cleaned = string(runes[:maxRunes])
		}
	}
	return cleaned
}

// SanitizeToken lowercases value into an ASCII token for ids and folder
// suffixes. Accents are stripped, other runs of unsafe runes become a single
// underscore, and empty input yields "unknown".
func SanitizeToken(value string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), strings.TrimSpace(value))
	if err != nil {
		stripped = value
	}
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	if out := strings.Trim(b.String(), "_-"); out != "" {
		return out
	}
	return "unknown"
}
