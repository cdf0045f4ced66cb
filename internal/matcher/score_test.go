// file: internal/matcher/score_test.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8901-bcde-f23456789012

package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreOne(t *testing.T) {
	tests := []struct {
		a, b     string
		min, max float64
	}{
		// Exact match
		{"given", "given", 1, 1},
		{"el amor es una ilusion", "el amor es una ilusion", 1, 1},
		// Empty
		{"", "given", 0, 0},
		{"given", "", 0, 0},
		{"", "", 0, 0},
		// One dropped word in a long title
		{"that time i got reincarnated as a slime", "that time i got reincarnated as slime", 0.92, 0.97},
		// Dropped article
		{"el amor es una ilusion", "el amor es ilusion", 0.86, 0.89},
		// Different last word
		{"the demon king", "the demon lord", 0.70, 0.76},
		// Unrelated
		{"one piece", "chainsaw man", 0, 0.6},
	}
	for _, tt := range tests {
		got := ScoreOne(tt.a, tt.b)
		assert.GreaterOrEqual(t, got, tt.min, "ScoreOne(%q, %q)", tt.a, tt.b)
		assert.LessOrEqual(t, got, tt.max, "ScoreOne(%q, %q)", tt.a, tt.b)
	}
}

func TestScoreOneWordOrder(t *testing.T) {
	// Token overlap keeps reordered titles well above unrelated ones.
	reordered := ScoreOne("love titan bride", "titan bride love")
	unrelated := ScoreOne("love titan bride", "blue period")
	assert.Greater(t, reordered, unrelated)
	assert.GreaterOrEqual(t, reordered, 0.4)
}

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"a b c", "a b c", 1},
		{"a b", "b a", 1},
		{"a a b", "a b", 1},
		{"a b", "c d", 0},
		{"a b c d", "a b", 0.5},
		{"", "a", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, TokenSetRatio(tt.a, tt.b), 1e-9, "TokenSetRatio(%q, %q)", tt.a, tt.b)
	}
}

func TestScoreCandidateUsesBestAlias(t *testing.T) {
	p := DefaultPolicy()
	c := Candidate{
		ID:             "1",
		TitleCanonical: "Tensei Shitara Slime Datta Ken",
		Aliases:        []string{"Slime", "That Time I Got Reincarnated as a Slime"},
	}
	score, via := p.ScoreCandidate("that time i got reincarnated as a slime", c)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, "That Time I Got Reincarnated as a Slime", via)

	score, via = p.ScoreCandidate("tensei shitara slime datta ken", c)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, c.TitleCanonical, via)
}

func TestRankOrdersAndFilters(t *testing.T) {
	p := DefaultPolicy()
	catalog := []Candidate{
		{ID: "a", TitleCanonical: "Blue Period"},
		{ID: "b", TitleCanonical: "The Demon King"},
		{ID: "c", TitleCanonical: "The Demon Lord"},
	}
	ranked := p.Rank("the demon king", catalog, 0.7)
	if assert.Len(t, ranked, 2) {
		assert.Equal(t, "b", ranked[0].Candidate.ID)
		assert.Equal(t, 1, ranked[0].Index)
		assert.Equal(t, "c", ranked[1].Candidate.ID)
	}
}
