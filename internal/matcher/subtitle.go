// file: internal/matcher/subtitle.go
// version: 1.1.0
// guid: d602d37d-cd04-4c50-98b8-1f1ccf501ec6

package matcher

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jdfalk/manga-organizer/internal/normalize"
	"github.com/jdfalk/manga-organizer/internal/parser"
)

// Classification describes how a subtitle or suffix relates to the matched
// series.
type Classification string

const (
	ClassificationNone    Classification = ""
	ClassificationArc     Classification = "arc"
	ClassificationSpinoff Classification = "spinoff"
	ClassificationSequel  Classification = "sequel"
	ClassificationUnknown Classification = "unknown"
)

// ForcesNewSeries reports whether the classification splits the title from
// the matched series.
func (c Classification) ForcesNewSeries() bool {
	return c == ClassificationSpinoff || c == ClassificationSequel
}

// containsToken reports whether list holds token, ignoring case, accents
// and punctuation.
func containsToken(list []string, token string) bool {
	needle := normalize.Comparable(token)
	if needle == "" {
		return false
	}
	for _, item := range list {
		if normalize.Comparable(item) == needle {
			return true
		}
	}
	return false
}

// Classify decides what subtitle and the sequel marker found in residual
// mean for candidate. The candidate's own lists take precedence over the
// policy vocabularies; an arc entry beats every other signal.
func (p Policy) Classify(candidate *Candidate, subtitle, residual string) (Classification, string) {
	sequel, hasSequel := parser.DetectSequel(residual)
	if subtitle == "" && !hasSequel {
		return ClassificationNone, ""
	}

	var arcs, spinoffs []string
	if candidate != nil {
		arcs, spinoffs = candidate.TreatAsArc, candidate.TreatAsSpinoff
	}

	switch {
	case subtitle != "" && containsToken(arcs, subtitle):
		return ClassificationArc, subtitle
	case hasSequel && containsToken(arcs, sequel):
		return ClassificationArc, sequel
	case subtitle != "" && containsToken(spinoffs, subtitle):
		return ClassificationSpinoff, subtitle
	case hasSequel && containsToken(spinoffs, sequel):
		return ClassificationSpinoff, sequel
	case hasSequel:
		return ClassificationSequel, sequel
	case containsToken(p.SpinoffVocabulary, subtitle):
		return ClassificationSpinoff, subtitle
	case containsToken(p.ArcVocabulary, subtitle):
		return ClassificationArc, subtitle
	default:
		return ClassificationUnknown, subtitle
	}
}

// ApplySubtitlePolicy classifies the subtitle and residual suffix against
// the matched candidate. Arcs leave the result unchanged; spin-offs and
// sequels force NEW_SERIES whatever the title score was.
func (m *Matcher) ApplySubtitlePolicy(r Result, subtitle, residual string) Result {
	class, marker := m.policy.Classify(r.Candidate, subtitle, residual)
	r.Classification = class
	r.Marker = marker

	if !class.ForcesNewSeries() || r.Candidate == nil {
		return r
	}

	related := r.Candidate
	r.Related = related
	r.Decision = DecisionNewSeries
	r.Method = MethodNewSeries
	r.Via = nil
	r.Candidate = nil
	r.LowConfidence = false
	r.Reason = fmt.Sprintf("%s %q splits from %q", class, marker, related.TitleCanonical)
	return r
}

var titleCaser = cases.Title(language.Und)

// ResolveTitle returns the canonical title a result should be filed under.
// A matched series always keeps its canonical title, which makes locked
// titles immune to filename variants. Spin-offs and sequels get the base
// title plus their marker so they never share a series code with the
// series they split from, whether or not that series is known yet.
func ResolveTitle(r Result, observed string) string {
	if r.Decision == DecisionAutoMatch && r.Candidate != nil {
		return r.Candidate.TitleCanonical
	}
	if r.Classification.ForcesNewSeries() && r.Marker != "" {
		base := observed
		if r.Related != nil && (r.Related.TitleLocked || base == "") {
			base = r.Related.TitleCanonical
		}
		return strings.TrimSpace(base + " " + displayMarker(r.Marker))
	}
	return observed
}

func displayMarker(marker string) string {
	if len(marker) <= 3 && strings.Trim(marker, "iv") == "" {
		return strings.ToUpper(marker)
	}
	return titleCaser.String(marker)
}
