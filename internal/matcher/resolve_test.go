// file: internal/matcher/resolve_test.go
// version: 1.0.0
// guid: 9bd93e99-b096-439a-8e9e-d356277a64cd

package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

func TestResolveNewSeriesEmptyCatalog(t *testing.T) {
	res := Resolve(context.Background(), "Given Vol 1.pdf", nil, nil)

	assert.Equal(t, DecisionNewSeries, res.Result.Decision)
	assert.Nil(t, res.Result.Via)
	assert.Nil(t, res.Parsed.Info.Chapter)
	assert.Equal(t, "Given", res.Title)
	assert.Equal(t, "1D71", res.Code)
	assert.Equal(t, res.Code, normalize.GenerateCode("Given"))
	assert.Equal(t, "given-cap-0.pdf", res.Filename)
}

func TestResolveArcSubtitle(t *testing.T) {
	catalog := []Candidate{{
		ID:             "amor",
		TitleCanonical: "¡El Amor Es Una Ilusión!",
		TreatAsArc:     []string{"superstar"},
	}}
	res := Resolve(context.Background(), "23 | ¡El Amor Es Una Ilusión! - Superstar.pdf", catalog, nil)

	assert.Equal(t, DecisionAutoMatch, res.Result.Decision)
	assert.GreaterOrEqual(t, res.Result.Score, 0.90)
	assert.Equal(t, ClassificationArc, res.Result.Classification)
	require.NotNil(t, res.Parsed.Info.Chapter)
	assert.Equal(t, 23, *res.Parsed.Info.Chapter)
	assert.Equal(t, "superstar", res.Parsed.Info.SubtitleText())
	assert.Equal(t, "el-amor-es-una-ilusion-arc-superstar-cap-23.pdf", res.Filename)
	assert.Equal(t, "EC99", res.Code)
}

func TestResolveSequelForcesNewSeries(t *testing.T) {
	catalog := []Candidate{{ID: "king", TitleCanonical: "The Demon King"}}
	res := Resolve(context.Background(), "The Demon King 2.pdf", catalog, nil)

	assert.GreaterOrEqual(t, res.Result.Score, 0.90, "base title alone would auto match")
	assert.Equal(t, DecisionNewSeries, res.Result.Decision)
	assert.Equal(t, ClassificationSequel, res.Result.Classification)
	assert.Nil(t, res.Result.Via)
	require.NotNil(t, res.Result.Related)
	assert.Equal(t, "king", res.Result.Related.ID)
	assert.Equal(t, "The Demon King 2", res.Title)
	assert.NotEqual(t, normalize.GenerateCode("The Demon King"), res.Code)
	assert.Nil(t, res.Parsed.Info.Chapter, "sequel number is not a chapter")
	assert.Equal(t, "the-demon-king-2-cap-0.pdf", res.Filename)
}

func TestResolveArcListBeatsSequelPattern(t *testing.T) {
	catalog := []Candidate{{ID: "king", TitleCanonical: "The Demon King", TreatAsArc: []string{"2"}}}
	res := Resolve(context.Background(), "The Demon King 2.pdf", catalog, nil)

	assert.Equal(t, DecisionAutoMatch, res.Result.Decision)
	assert.Equal(t, ClassificationArc, res.Result.Classification)
	assert.Equal(t, "The Demon King", res.Title)
}

func TestResolveSpinoffForcesNewSeries(t *testing.T) {
	catalog := []Candidate{{
		ID:             "amor",
		TitleCanonical: "¡El Amor Es Una Ilusión!",
		TitleLocked:    true,
		TreatAsArc:     []string{"superstar"},
		TreatAsSpinoff: []string{"another story"},
	}}
	res := Resolve(context.Background(), "¡El Amor Es Una Ilusión! - Another Story 3.pdf", catalog, nil)

	assert.Equal(t, DecisionNewSeries, res.Result.Decision)
	assert.Equal(t, ClassificationSpinoff, res.Result.Classification)
	assert.Equal(t, "¡El Amor Es Una Ilusión! Another Story", res.Title)
	assert.NotEqual(t, "EC99", res.Code)
	assert.Equal(t, "el-amor-es-una-ilusion-another-story-cap-3.pdf", res.Filename)
}

func TestResolveRange(t *testing.T) {
	res := Resolve(context.Background(), "Diferencia de tamano (1-30).pdf", nil, nil)
	require.NotNil(t, res.Parsed.Info.ChapterStart)
	require.NotNil(t, res.Parsed.Info.ChapterEnd)
	assert.Equal(t, 1, *res.Parsed.Info.ChapterStart)
	assert.Equal(t, 30, *res.Parsed.Info.ChapterEnd)
	assert.Equal(t, "diferencia-de-tamano-cap-1-30.pdf", res.Filename)
}

func TestResolveLockedTitle(t *testing.T) {
	catalog := []Candidate{{
		ID:             "titan",
		TitleCanonical: "La Novia del Titán",
		TitleLocked:    true,
		DoNotTranslate: true,
		Aliases:        []string{"Titan's Bride"},
	}}

	first := Resolve(context.Background(), "La Novia Del Titan 4.pdf", catalog, nil)
	second := Resolve(context.Background(), "La novia del titán - Capitulo 5.pdf", catalog, nil)

	for _, res := range []Resolution{first, second} {
		assert.Equal(t, DecisionAutoMatch, res.Result.Decision)
		assert.Equal(t, "La Novia del Titán", res.Title)
		assert.NotEqual(t, "Love Titan", res.Title)
	}
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, "8CAC", first.Code)
	assert.Equal(t, "la-novia-del-titan-cap-4.pdf", first.Filename)
	assert.Equal(t, "la-novia-del-titan-cap-5.pdf", second.Filename)
}

func TestResolveUsesStoredCode(t *testing.T) {
	catalog := []Candidate{{ID: "g", Code: "ABCD", TitleCanonical: "Given"}}
	res := Resolve(context.Background(), "Given 3.pdf", catalog, nil)
	assert.Equal(t, "ABCD", res.Code)
}

func TestResolvePolicyTokenFromCatalog(t *testing.T) {
	catalog := []Candidate{{ID: "g", TitleCanonical: "Given", TreatAsArc: []string{"the end"}}}
	res := Resolve(context.Background(), "Given - The End 9.pdf", catalog, nil)

	assert.Equal(t, "the end", res.Parsed.Info.SubtitleText())
	assert.Equal(t, ClassificationArc, res.Result.Classification)
	assert.Equal(t, "given-arc-the-end-cap-9.pdf", res.Filename)
}

func TestResolveIsDeterministic(t *testing.T) {
	catalog := amorCatalog()
	a := Resolve(context.Background(), "23 | ¡El Amor Es Una Ilusión! - Superstar.pdf", catalog, nil)
	b := Resolve(context.Background(), "23 | ¡El Amor Es Una Ilusión! - Superstar.pdf", catalog, nil)
	assert.Equal(t, a, b)
}

func TestResolveSequelWithoutBaseSeries(t *testing.T) {
	first := Resolve(context.Background(), "The Demon King 2.pdf", nil, nil)

	assert.Equal(t, DecisionNewSeries, first.Result.Decision)
	assert.Equal(t, ClassificationSequel, first.Result.Classification)
	assert.Nil(t, first.Result.Related)
	assert.Equal(t, "The Demon King 2", first.Title)
	assert.Equal(t, normalize.GenerateCode("The Demon King 2"), first.Code)
	assert.Equal(t, "the-demon-king-2-cap-0.pdf", first.Filename)

	// Once stored, the same filename files into the same series.
	catalog := []Candidate{{ID: "king2", Code: first.Code, TitleCanonical: first.Title}}
	again := Resolve(context.Background(), "The Demon King 2.pdf", catalog, nil)
	assert.Equal(t, first.Code, again.Code)
	assert.Equal(t, first.Title, again.Title)
	assert.Equal(t, first.Filename, again.Filename)
}

func TestResolveSpinoffWithoutBaseSeries(t *testing.T) {
	res := Resolve(context.Background(), "Kimi ni Todoke - Another Story 3.pdf", nil, nil)

	assert.Equal(t, DecisionNewSeries, res.Result.Decision)
	assert.Equal(t, ClassificationSpinoff, res.Result.Classification)
	assert.Equal(t, "Kimi ni Todoke Another Story", res.Title)
	assert.Equal(t, normalize.GenerateCode("Kimi ni Todoke Another Story"), res.Code)
	assert.Equal(t, "kimi-ni-todoke-another-story-cap-3.pdf", res.Filename)
}

func TestResolveArcSegmentFollowsClassification(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		catalog  []Candidate
		class    Classification
		want     string
	}{
		{
			name:     "vocabulary word inside the title is not a subtitle",
			filename: "Extra Life 3.pdf",
			catalog:  []Candidate{{ID: "el", TitleCanonical: "Extra Life"}},
			class:    ClassificationNone,
			want:     "extra-life-cap-3.pdf",
		},
		{
			name:     "vocabulary arc on a series with its own arcs",
			filename: "Given - Extra 3.pdf",
			catalog:  []Candidate{{ID: "g", TitleCanonical: "Given", TreatAsArc: []string{"winter"}}},
			class:    ClassificationArc,
			want:     "given-arc-extra-cap-3.pdf",
		},
		{
			name:     "series arc",
			filename: "Given - Winter 4.pdf",
			catalog:  []Candidate{{ID: "g", TitleCanonical: "Given", TreatAsArc: []string{"winter"}}},
			class:    ClassificationArc,
			want:     "given-arc-winter-cap-4.pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(context.Background(), tt.filename, tt.catalog, nil)
			assert.Equal(t, DecisionAutoMatch, res.Result.Decision)
			assert.Equal(t, tt.class, res.Result.Classification)
			assert.Equal(t, tt.want, res.Filename)
		})
	}
}
