// file: internal/matcher/subtitle_test.go
// version: 1.0.0
// guid: 011eee53-1907-46f4-84e5-a1a90159e411

package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	p := DefaultPolicy()
	amor := &Candidate{
		ID:             "amor",
		TitleCanonical: "¡El Amor Es Una Ilusión!",
		TreatAsArc:     []string{"Superstar", "extra"},
		TreatAsSpinoff: []string{"Another Story"},
	}
	tests := []struct {
		name       string
		candidate  *Candidate
		subtitle   string
		residual   string
		want       Classification
		wantMarker string
	}{
		{"nothing", amor, "", "", ClassificationNone, ""},
		{"candidate arc", amor, "superstar", "Superstar", ClassificationArc, "superstar"},
		{"candidate spinoff", amor, "another story", "Another Story", ClassificationSpinoff, "another story"},
		{"sequel residual", amor, "", "2", ClassificationSequel, "2"},
		{"season residual", amor, "", "Season 3", ClassificationSequel, "season 3"},
		{"default spinoff vocabulary", amor, "side-b", "Side B", ClassificationSpinoff, "side-b"},
		{"default arc vocabulary", amor, "omake", "Omake", ClassificationArc, "omake"},
		{"no candidate uses defaults", nil, "gaiden", "", ClassificationArc, "gaiden"},
		{"chapter residual is not sequel", amor, "", "12", ClassificationNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, marker := p.Classify(tt.candidate, tt.subtitle, tt.residual)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMarker, marker)
		})
	}
}

func TestClassifyUnknown(t *testing.T) {
	p := DefaultPolicy()
	p.ArcVocabulary = nil
	got, marker := p.Classify(&Candidate{TitleCanonical: "Given"}, "gaiden", "")
	assert.Equal(t, ClassificationUnknown, got)
	assert.Equal(t, "gaiden", marker)
	assert.False(t, got.ForcesNewSeries())
}

func TestApplySubtitlePolicyKeepsArc(t *testing.T) {
	m := New(DefaultPolicy())
	via := "Given"
	in := Result{Score: 1, Via: &via, Decision: DecisionAutoMatch, Candidate: &Candidate{ID: "g", TitleCanonical: "Given"}}

	out := m.ApplySubtitlePolicy(in, "extra", "Extra")
	assert.Equal(t, DecisionAutoMatch, out.Decision)
	assert.Equal(t, ClassificationArc, out.Classification)
	assert.NotNil(t, out.Via)
}

func TestApplySubtitlePolicyForcesNewSeries(t *testing.T) {
	m := New(DefaultPolicy())
	via := "Given"
	in := Result{Score: 0.95, Via: &via, Decision: DecisionAutoMatch, Candidate: &Candidate{ID: "g", TitleCanonical: "Given"}, LowConfidence: true}

	out := m.ApplySubtitlePolicy(in, "", "II")
	assert.Equal(t, DecisionNewSeries, out.Decision)
	assert.Equal(t, MethodNewSeries, out.Method)
	assert.Equal(t, 0.95, out.Score)
	assert.Nil(t, out.Via)
	assert.Nil(t, out.Candidate)
	assert.False(t, out.LowConfidence)
	if assert.NotNil(t, out.Related) {
		assert.Equal(t, "g", out.Related.ID)
	}
	assert.Equal(t, "Given II", ResolveTitle(out, "Given"))
}

func TestResolveTitle(t *testing.T) {
	locked := &Candidate{ID: "t", TitleCanonical: "La Novia del Titán", TitleLocked: true}
	via := "La Novia del Titán"

	assert.Equal(t, "La Novia del Titán",
		ResolveTitle(Result{Decision: DecisionAutoMatch, Candidate: locked, Via: &via}, "Love Titan"))
	assert.Equal(t, "Given", ResolveTitle(Result{Decision: DecisionNewSeries}, "Given"))
	assert.Equal(t, "Given",
		ResolveTitle(Result{Decision: DecisionNeedsReview, Candidate: locked, Via: &via}, "Given"))
	assert.Equal(t, "La Novia del Titán Season 2",
		ResolveTitle(Result{Decision: DecisionNewSeries, Classification: ClassificationSequel, Related: locked, Marker: "season 2"}, "La novia del titan"))

	// No related series yet: the marker still goes back on the observed title.
	assert.Equal(t, "The Demon King II",
		ResolveTitle(Result{Decision: DecisionNewSeries, Classification: ClassificationSequel, Marker: "ii"}, "The Demon King"))
	assert.Equal(t, "Given",
		ResolveTitle(Result{Decision: DecisionNewSeries, Classification: ClassificationArc, Marker: "extra"}, "Given"))
}
