// file: internal/parser/parser_test.go
// version: 1.0.0
// guid: 29454abd-95af-4e14-9a52-6c5fc3669f19

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func TestStripExtension(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Given Vol 1.pdf", "Given Vol 1"},
		{"/uploads/tmp/Given.PDF", "Given"},
		{"Chapter 1.5", "Chapter 1.5"},
		{"Given Vol. 1", "Given Vol. 1"},
		{"noext", "noext"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripExtension(tt.in), "StripExtension(%q)", tt.in)
	}
}

func TestParseChapterInfo(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     ChapterInfo
	}{
		{
			name:     "volume only has no chapter",
			filename: "Given Vol 1.pdf",
			want:     ChapterInfo{Volume: intPtr(1)},
		},
		{
			name:     "leading chapter with arc subtitle",
			filename: "23 | ¡El Amor Es Una Ilusión! - Superstar.pdf",
			want: ChapterInfo{
				Chapter: intPtr(23), ChapterStart: intPtr(23), ChapterEnd: intPtr(23),
				Subtitle: strPtr("superstar"),
			},
		},
		{
			name:     "parenthesised range",
			filename: "Diferencia de tamano (1-30).pdf",
			want:     ChapterInfo{ChapterStart: intPtr(1), ChapterEnd: intPtr(30)},
		},
		{
			name:     "en dash range",
			filename: "Titan 1–14.pdf",
			want:     ChapterInfo{ChapterStart: intPtr(1), ChapterEnd: intPtr(14)},
		},
		{
			name:     "reversed range is ordered",
			filename: "Titan 22-15.pdf",
			want:     ChapterInfo{ChapterStart: intPtr(15), ChapterEnd: intPtr(22)},
		},
		{
			name:     "range and subtitle together",
			filename: "Given Another Story 15 - 22.pdf",
			want: ChapterInfo{
				ChapterStart: intPtr(15), ChapterEnd: intPtr(22),
				Subtitle: strPtr("another story"),
			},
		},
		{
			name:     "trailing sequel number reads as chapter",
			filename: "The Demon King 2.pdf",
			want:     ChapterInfo{Chapter: intPtr(2), ChapterStart: intPtr(2), ChapterEnd: intPtr(2)},
		},
		{
			name:     "series code tag ignored",
			filename: "[1D71] Given.pdf",
			want:     ChapterInfo{},
		},
		{
			name:     "subtitle only",
			filename: "Given - Side B.pdf",
			want:     ChapterInfo{Subtitle: strPtr("side-b")},
		},
		{
			name:     "subtitle needs word boundary",
			filename: "Extraordinary Days.pdf",
			want:     ChapterInfo{},
		},
		{
			name:     "nothing recognisable",
			filename: "Given.pdf",
			want:     ChapterInfo{},
		},
		{
			name:     "empty",
			filename: "",
			want:     ChapterInfo{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseChapterInfo(tt.filename))
		})
	}
}

func TestChapterInfoHelpers(t *testing.T) {
	single := ParseChapterInfo("Given 7.pdf")
	assert.True(t, single.HasChapter())
	assert.False(t, single.IsRange())
	assert.Equal(t, "", single.SubtitleText())

	rng := ParseChapterInfo("Given 1-3 extra.pdf")
	assert.True(t, rng.IsRange())
	assert.Equal(t, "extra", rng.SubtitleText())

	none := ParseChapterInfo("Given.pdf")
	assert.False(t, none.HasChapter())
}

func TestDetectSubtitle(t *testing.T) {
	tests := []struct {
		in    string
		extra []string
		want  string
		found bool
	}{
		{"Given - SUPERSTAR", nil, "superstar", true},
		{"Given Another   Story", nil, "another story", true},
		{"Given Backstage", nil, "back stage", true},
		{"Given Omake 2", nil, "omake", true},
		{"Given Gaiden", nil, "gaiden", true},
		{"Given Extras", nil, "extra", true},
		{"Superstars Unite", nil, "", false},
		{"Given - The End", []string{"The End"}, "the end", true},
		{"Given", []string{"the end"}, "", false},
		{"", nil, "", false},
	}
	for _, tt := range tests {
		got, ok := DetectSubtitle(tt.in, tt.extra...)
		assert.Equal(t, tt.found, ok, "DetectSubtitle(%q)", tt.in)
		assert.Equal(t, tt.want, got, "DetectSubtitle(%q)", tt.in)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Given Vol 1.pdf", "Given"},
		{"23 | ¡El Amor Es Una Ilusión! - Superstar.pdf", "¡El Amor Es Una Ilusión!"},
		{"The Demon King 2.pdf", "The Demon King"},
		{"Diferencia de tamano (1-30).pdf", "Diferencia de tamano"},
		{"La Novia Del Titan - Capitulo 12.pdf", "La Novia Del Titan"},
		{"La novia del titán ch.3.pdf", "La novia del titán"},
		{"Given [1D71] raw.pdf", "Given"},
		{"Â¡El Amor Es Una IlusiÃ³n! 15-22.pdf", "¡El Amor Es Una Ilusión!"},
		{"Given Season 2.pdf", "Given"},
		{"Given - Superstar 23.pdf", "Given"},
		{"1984.pdf", "1984"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTitle(tt.in), "ExtractTitle(%q)", tt.in)
	}
}

func TestParse(t *testing.T) {
	p := Parse("23 | ¡El Amor Es Una Ilusión! - Superstar.pdf")
	assert.Equal(t, "¡El Amor Es Una Ilusión!", p.RawTitle)
	assert.Equal(t, "el amor es una ilusion", p.Title.Comparable)
	assert.Equal(t, "Superstar", p.Residual)
	require.NotNil(t, p.Info.Chapter)
	assert.Equal(t, 23, *p.Info.Chapter)

	seq := Parse("The Demon King 2.pdf")
	assert.Equal(t, "the demon king", seq.Title.Comparable)
	assert.Equal(t, "2", seq.Residual)
}

func TestDetectSequel(t *testing.T) {
	tests := []struct {
		residual string
		want     string
		found    bool
	}{
		{"2", "2", true},
		{"II", "ii", true},
		{"Season 2", "season 2", true},
		{"parte 3", "parte 3", true},
		{"- Two", "two", true},
		{"Season 1", "", false},
		{"12", "", false},
		{"23", "", false},
		{"Vol 2", "", false},
		{"(1-30)", "", false},
		{"2-5", "", false},
		{"Superstar", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectSequel(tt.residual)
		assert.Equal(t, tt.found, ok, "DetectSequel(%q)", tt.residual)
		assert.Equal(t, tt.want, got, "DetectSequel(%q)", tt.residual)
	}
}

func TestSplitTrailingToken(t *testing.T) {
	title, token, ok := SplitTrailingToken("Given - The End", []string{"prologue", "the end"})
	assert.True(t, ok)
	assert.Equal(t, "Given", title)
	assert.Equal(t, "The End", token)

	title, _, ok = SplitTrailingToken("The End", []string{"the end"})
	assert.False(t, ok, "a title is never reduced to nothing")
	assert.Equal(t, "The End", title)

	_, _, ok = SplitTrailingToken("Given The End", []string{"the end"})
	assert.False(t, ok, "a separator is required")
}
