// file: internal/matcher/score.go
// version: 2.0.0
// guid: e25604e1-4a0f-40e1-9d6c-bd8cc5a01874

package matcher

import (
	"cmp"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

// ScoreOne scores two comparable strings with the reference weights.
// See Policy.Score.
func ScoreOne(a, b string) float64 {
	return DefaultPolicy().Score(a, b)
}

// Score combines Jaro-Winkler similarity with the token-set overlap of a
// and b using the policy weights. Identical non-empty strings score 1.
func (p Policy) Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	edit := float64(edlib.JaroWinklerSimilarity(a, b))
	score := p.EditWeight*edit + p.TokenWeight*TokenSetRatio(a, b)
	return min(max(score, 0), 1)
}

// TokenSetRatio is the intersection-over-union of the whitespace separated
// words of a and b.
func TokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Scored is a candidate with its best score and the string that produced it.
type Scored struct {
	Index     int // index into the catalog slice
	Candidate Candidate
	Score     float64
	Via       string
}

// ScoreCandidate scores comparable against the candidate's canonical title
// and each alias, returning the best score and the string that produced it.
// The canonical title wins ties.
func (p Policy) ScoreCandidate(comparable string, c Candidate) (float64, string) {
	best := p.Score(comparable, normalize.Comparable(c.TitleCanonical))
	via := c.TitleCanonical
	for _, alias := range c.Aliases {
		if best == 1 {
			break
		}
		if s := p.Score(comparable, normalize.Comparable(alias)); s > best {
			best, via = s, alias
		}
	}
	return best, via
}

// Rank scores every candidate and returns those scoring at least minScore,
// best first. Equal scores keep catalog order.
func (p Policy) Rank(comparable string, catalog []Candidate, minScore float64) []Scored {
	var results []Scored
	for i, c := range catalog {
		s, via := p.ScoreCandidate(comparable, c)
		if s >= minScore {
			results = append(results, Scored{Index: i, Candidate: c, Score: s, Via: via})
		}
	}
	slices.SortStableFunc(results, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return results
}
