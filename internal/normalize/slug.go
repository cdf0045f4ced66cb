// file: internal/normalize/slug.go
// version: 1.0.0
// guid: b30e58bc-8cbd-441a-b10d-afc537b49874

package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// CodeLength is the number of hex characters in a series code.
const CodeLength = 4

// Slugify lower-cases title, strips diacritics and joins the remaining
// letter and digit runs with single hyphens. The result never starts or ends
// with a hyphen and may be empty.
func Slugify(title string) string {
	return strings.ReplaceAll(Comparable(Repair(title)), " ", "-")
}

// GenerateCode derives the series code for a canonical title: the first
// four hex characters of SHA-1 over the slug, upper-cased. Titles that
// slugify identically share a code.
func GenerateCode(canonicalTitle string) string {
	sum := sha1.Sum([]byte(Slugify(canonicalTitle)))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:CodeLength])
}

// IsCode reports whether s has the shape of a series code.
func IsCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
