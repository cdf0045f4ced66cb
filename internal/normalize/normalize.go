// file: internal/normalize/normalize.go
// version: 1.0.0
// guid: 1976415a-b77a-41a1-82d2-8c3f6e222cf5

// Package normalize turns raw filename text into display and comparison
// forms, and derives stable slugs and series codes from canonical titles.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Title is a raw title in its two normalized forms.
type Title struct {
	// Observed keeps case and diacritics and is safe to display.
	Observed string `json:"observed"`
	// Comparable is case folded, diacritic free and punctuation collapsed.
	// It is used only for similarity scoring.
	Comparable string `json:"comparable"`
}

// IsEmpty reports whether nothing comparable survived normalization.
func (t Title) IsEmpty() bool {
	return t.Comparable == ""
}

// Normalize repairs raw and returns both normalized forms. Empty input
// yields an empty Title.
func Normalize(raw string) Title {
	observed := CollapseSpace(Repair(raw))
	if observed == "" {
		return Title{}
	}
	return Title{
		Observed:   observed,
		Comparable: Comparable(observed),
	}
}

// Comparable folds s to its comparison form: lower case, NFKD with
// combining marks removed, every rune that is not a letter or digit turned
// into a space, and runs of spaces collapsed.
func Comparable(s string) string {
	if s == "" {
		return ""
	}
	folded := StripDiacritics(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte(' ')
		}
	}
	return CollapseSpace(b.String())
}

// StripDiacritics decomposes s with NFKD and drops the combining marks.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseSpace trims s and replaces internal whitespace runs with a single
// space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
