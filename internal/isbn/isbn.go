package isbn

import (
	"regexp"
	"sort"
	"strings"
)

const (
	sep       = `[-\x{2013} \t]?`
	pattern13 = `97[89](?:` + sep + `[0-9]){10}`
	pattern10 = `[0-9](?:` + sep + `[0-9]){8}` + sep + `[0-9Xx]`
)

var (
	labelledPattern = regexp.MustCompile(`(?i)\b(?:ISBN|SBN)(?:[- ]?1[03])?[ \t]*[:#]?[ \t]*(` + pattern13 + `|` + pattern10 + `)`)
	barePattern     = regexp.MustCompile(`\b(` + pattern13 + `|` + pattern10 + `)\b`)
)

// Candidate is one identifier-shaped run found in text.
type Candidate struct {
	Raw      string
	Cleaned  string
	Position int
	Labelled bool
}

// Find returns the best valid identifier in text.
func Find(text string) (string, bool) {
	for _, candidate := range Candidates(text) {
		if Valid(candidate.Cleaned) {
			return candidate.Cleaned, true
		}
	}
	return "", false
}

// Candidates returns de-duplicated, ranked candidates without validating them.
func Candidates(text string) []Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	seen := make(map[string]int)
	var out []Candidate
	add := func(raw string, pos int, labelled bool) {
		cleaned := Clean(raw)
		if idx, ok := seen[cleaned]; ok {
			if pos < out[idx].Position {
				out[idx].Position = pos
			}
			out[idx].Labelled = out[idx].Labelled || labelled
			return
		}
		seen[cleaned] = len(out)
		out = append(out, Candidate{Raw: raw, Cleaned: cleaned, Position: pos, Labelled: labelled})
	}

	for _, loc := range labelledPattern.FindAllStringSubmatchIndex(text, -1) {
		add(text[loc[2]:loc[3]], loc[2], true)
	}
	for _, loc := range barePattern.FindAllStringSubmatchIndex(text, -1) {
		add(text[loc[2]:loc[3]], loc[2], false)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Cleaned) != len(out[j].Cleaned) {
			return len(out[i].Cleaned) > len(out[j].Cleaned)
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// Clean strips separators and upper-cases a trailing check character.
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteByte('X')
		}
	}
	return b.String()
}

// Valid reports whether value is a checksum-valid, non-degenerate ISBN.
// Separators are ignored.
func Valid(value string) bool {
	cleaned := Clean(value)
	if Blacklisted(cleaned) {
		return false
	}
	switch len(cleaned) {
	case 10:
		return ValidISBN10(cleaned)
	case 13:
		return ValidISBN13(cleaned)
	default:
		return false
	}
}

// Blacklisted reports degenerate identifiers: the 0-9 sequence and runs of
// a single repeated character.
func Blacklisted(cleaned string) bool {
	if cleaned == "0123456789" {
		return true
	}
	if cleaned == "" {
		return false
	}
	return strings.Count(cleaned, cleaned[:1]) == len(cleaned)
}

// ValidISBN10 checks the mod-11 checksum of a cleaned 10 character ISBN.
func ValidISBN10(cleaned string) bool {
	if len(cleaned) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := cleaned[i]
		var digit int
		switch {
		case c >= '0' && c <= '9':
			digit = int(c - '0')
		case c == 'X' && i == 9:
			digit = 10
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

// ValidISBN13 checks the prefix and mod-10 checksum of a cleaned 13 digit ISBN.
func ValidISBN13(cleaned string) bool {
	if len(cleaned) != 13 {
		return false
	}
	if !strings.HasPrefix(cleaned, "978") && !strings.HasPrefix(cleaned, "979") {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		c := cleaned[i]
		if c < '0' || c > '9' {
			return false
		}
		weight := 1
		if i%2 == 1 {
			weight = 3
		}
		sum += int(c-'0') * weight
	}
	return sum%10 == 0
}

// ToISBN13 converts a valid ISBN-10 to its 978-prefixed ISBN-13 form. Valid
// ISBN-13 values are returned unchanged.
func ToISBN13(value string) (string, bool) {
	cleaned := Clean(value)
	if !Valid(cleaned) {
		return "", false
	}
	if len(cleaned) == 13 {
		return cleaned, true
	}
	body := "978" + cleaned[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		weight := 1
		if i%2 == 1 {
			weight = 3
		}
		sum += int(body[i]-'0') * weight
	}
	check := (10 - sum%10) % 10
	return body + string(rune('0'+check)), true
}
