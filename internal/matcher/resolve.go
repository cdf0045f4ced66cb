// file: internal/matcher/resolve.go
// version: 1.1.0
// guid: 401496d9-1641-46e3-a1b1-5f80c0103e32

package matcher

import (
	"context"
	"strconv"
	"strings"

	"github.com/jdfalk/manga-organizer/internal/normalize"
	"github.com/jdfalk/manga-organizer/internal/organizer"
	"github.com/jdfalk/manga-organizer/internal/parser"
)

// Resolution is the full outcome of resolving one filename.
type Resolution struct {
	Parsed       parser.Parsed `json:"parsed"`
	Result       Result        `json:"result"`
	Title        string        `json:"title"`
	Code         string        `json:"code"`
	Filename     string        `json:"filename"`
	ArcWhitelist []string      `json:"arc_whitelist,omitempty"`
}

// Resolve runs the whole pipeline for filename with the reference policy.
func Resolve(ctx context.Context, filename string, catalog []Candidate, oracle Oracle) Resolution {
	return defaultMatcher.Resolve(ctx, filename, catalog, oracle)
}

// Resolve parses filename, matches its title against catalog, applies the
// subtitle policy and builds the canonical filename and series code.
func (m *Matcher) Resolve(ctx context.Context, filename string, catalog []Candidate, oracle Oracle) Resolution {
	parsed := parser.Parse(filename)

	// Series policies may name subtitles the parser does not know.
	if stripped, token, ok := parser.SplitTrailingToken(parsed.RawTitle, catalogTokens(catalog)); ok {
		parsed.RawTitle = stripped
		parsed.Title = normalize.Normalize(stripped)
		parsed.Residual = strings.TrimSpace(token + " " + parsed.Residual)
	}

	result := m.MatchAgainstCatalog(ctx, parsed.Title, filename, catalog, oracle)

	// Only text after the title can be a subtitle: "Extra Life 3" has none.
	var extra []string
	if result.Candidate != nil {
		extra = append(extra, result.Candidate.TreatAsArc...)
		extra = append(extra, result.Candidate.TreatAsSpinoff...)
	}
	extra = append(extra, m.policy.ArcVocabulary...)
	extra = append(extra, m.policy.SpinoffVocabulary...)
	subtitle := ""
	parsed.Info.Subtitle = nil
	if token, ok := parser.DetectSubtitle(parsed.Residual, extra...); ok {
		subtitle = token
		parsed.Info.Subtitle = &token
	}

	result = m.ApplySubtitlePolicy(result, subtitle, parsed.Residual)

	// "The Demon King 2": the bare number was the sequel marker, not a chapter.
	if result.Classification == ClassificationSequel && parsed.Info.Chapter != nil &&
		strconv.Itoa(*parsed.Info.Chapter) == result.Marker {
		parsed.Info.Chapter, parsed.Info.ChapterStart, parsed.Info.ChapterEnd = nil, nil, nil
	}

	title := ResolveTitle(result, parsed.Title.Observed)
	code := normalize.GenerateCode(title)
	if result.Decision == DecisionAutoMatch && result.Candidate != nil && result.Candidate.Code != "" {
		code = result.Candidate.Code
	}

	whitelist := m.arcWhitelist(result)
	return Resolution{
		Parsed:       parsed,
		Result:       result,
		Title:        title,
		Code:         code,
		Filename:     organizer.BuildFilename(title, parsed.Info, whitelist),
		ArcWhitelist: whitelist,
	}
}

// arcWhitelist returns the subtitles that are filed as arcs: the matched
// series' treat_as_arc plus the arc vocabulary. These are the same lists
// Classify consults, so a subtitle appears in the filename exactly when it
// classifies as an arc. Spin-offs and sequels start their own series and get
// no arc segment.
func (m *Matcher) arcWhitelist(r Result) []string {
	if r.Classification.ForcesNewSeries() {
		return nil
	}
	var out []string
	if r.Candidate != nil {
		out = append(out, r.Candidate.TreatAsArc...)
	}
	for _, token := range m.policy.ArcVocabulary {
		if !containsToken(out, token) {
			out = append(out, token)
		}
	}
	return out
}

// catalogTokens collects every arc and spin-off token named by the catalog.
func catalogTokens(catalog []Candidate) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range catalog {
		for _, list := range [][]string{c.TreatAsArc, c.TreatAsSpinoff} {
			for _, token := range list {
				key := normalize.Comparable(token)
				if key == "" {
					continue
				}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, token)
			}
		}
	}
	return out
}
