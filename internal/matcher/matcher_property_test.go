// file: internal/matcher/matcher_property_test.go
// version: 1.0.0
// guid: 3d61f271-cd17-45ce-b51d-4d3cbb44fc55

package matcher

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

func wordsGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-e]{1,6}( [a-e]{1,6}){0,3}`)
}

func TestPropertyExactMatchScoresOne(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := wordsGen().Draw(t, "a")
		if got := ScoreOne(a, a); got != 1 {
			t.Fatalf("ScoreOne(%q, %q) = %v", a, a, got)
		}
	})
}

func TestPropertyScoreBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := wordsGen().Draw(t, "a")
		b := wordsGen().Draw(t, "b")
		got := ScoreOne(a, b)
		if got < 0 || got > 1 {
			t.Fatalf("ScoreOne(%q, %q) = %v out of range", a, b, got)
		}
	})
}

func TestPropertyThresholdMonotonicity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		title := wordsGen().Draw(t, "title")
		n := rapid.IntRange(1, 4).Draw(t, "n")
		catalog := make([]Candidate, n)
		for i := range catalog {
			catalog[i] = Candidate{
				ID:             string(rune('a' + i)),
				TitleCanonical: wordsGen().Draw(t, "canonical"),
			}
		}

		r := MatchAgainstCatalog(context.Background(), normalize.Normalize(title), title, catalog, nil)
		if r.Score >= 0.90 && r.Decision == DecisionNewSeries {
			t.Fatalf("score %.3f yielded NEW_SERIES", r.Score)
		}
		if r.Score < 0.80 && r.Decision == DecisionAutoMatch {
			t.Fatalf("score %.3f yielded AUTO_MATCH", r.Score)
		}
		if (r.Via == nil) != (r.Decision == DecisionNewSeries) {
			t.Fatalf("via/decision mismatch: via=%v decision=%s", r.Via, r.Decision)
		}
		if r.Decision == DecisionEscalate {
			t.Fatalf("escalation left unresolved at score %.3f", r.Score)
		}
	})
}

func TestPropertyBuildIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z ]{1,20} [0-9]{1,3}(-[0-9]{1,3})?\.pdf`).Draw(t, "name")
		a := Resolve(context.Background(), name, nil, nil)
		b := Resolve(context.Background(), name, nil, nil)
		if a.Filename != b.Filename || a.Code != b.Code {
			t.Fatalf("resolution not deterministic for %q", name)
		}
	})
}
