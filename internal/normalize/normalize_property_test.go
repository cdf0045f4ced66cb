// file: internal/normalize/normalize_property_test.go
// version: 1.0.0
// guid: 7de99cfd-5750-4a6b-9fe0-a7053e54ab5e

package normalize

import (
	"testing"

	"pgregory.net/rapid"
)

// titleRunes mixes ASCII, accented letters, mojibake fragments, punctuation
// and assorted whitespace.
var titleRunes = []rune("abcdeXYZ019 \t\n-_!¡¿?.,:|｜áéíóúñÁÉÑüÃÂ³±©¡⇴αιε")

func titleGen() *rapid.Generator[string] {
	return rapid.StringOfN(rapid.SampledFrom(titleRunes), 0, 40, -1)
}

func TestPropertyNormalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := titleGen().Draw(t, "raw")
		first := Normalize(raw)
		second := Normalize(first.Observed)
		if second.Comparable != first.Comparable {
			t.Fatalf("comparable drifted: %q -> %q", first.Comparable, second.Comparable)
		}
	})
}

func TestPropertyComparableDerivedFromObserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := titleGen().Draw(t, "raw")
		n := Normalize(raw)
		if got := Comparable(n.Observed); got != n.Comparable {
			t.Fatalf("Comparable(%q) = %q, want %q", n.Observed, got, n.Comparable)
		}
	})
}

func TestPropertySlugShape(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := titleGen().Draw(t, "raw")
		slug := Slugify(raw)
		if slug == "" {
			return
		}
		if slug[0] == '-' || slug[len(slug)-1] == '-' {
			t.Fatalf("slug %q has edge hyphen", slug)
		}
		for i := 1; i < len(slug); i++ {
			if slug[i] == '-' && slug[i-1] == '-' {
				t.Fatalf("slug %q has doubled hyphen", slug)
			}
		}
		if !IsCode(GenerateCode(raw)) {
			t.Fatalf("GenerateCode(%q) is not a code", raw)
		}
	})
}
