// file: internal/ai/prompt.go
// version: 1.0.0
// guid: 2c9d4e6f-1a3b-4c5d-8e7f-9a0b1c2d3e4f

package ai

import (
	"fmt"
	"strings"

	"github.com/jdfalk/manga-organizer/internal/matcher"
	"github.com/jdfalk/manga-organizer/internal/normalize"
)

const systemPrompt = `You decide whether a manga file belongs to an existing series. Never translate or invent titles.

Rules, in order:
1. Titles are never translated. "La novia del titan" is not "El dulce dolor".
2. Compare after NFKC, lowercase, accents and punctuation removed.
3. Ignore chapter and volume numbers.
4. Subtitles such as "Another Story" or "Side-B" mean a different series unless the series lists them as arcs.
5. If there is no clear match, answer that it does not match.

Return ONLY this JSON object:
{
  "matches_existing": true|false,
  "matched_series_id": "id from the list" | null,
  "matched_series_title": "canonical title" | null,
  "confidence": "high|medium|low",
  "reason": "short explanation"
}`

// buildPrompt returns the system and user prompts for one verification.
func buildPrompt(filename string, shortlist []matcher.Candidate) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "New file: %q\n\nCandidate series (id | code | canonical title | aliases):\n", normalize.Repair(filename))
	for _, c := range shortlist {
		aliases := "-"
		if len(c.Aliases) > 0 {
			aliases = strings.Join(c.Aliases, "; ")
		}
		fmt.Fprintf(&b, "- %s | %s | %q | %s", c.ID, c.Code, c.TitleCanonical, aliases)
		if len(c.TreatAsArc) > 0 {
			fmt.Fprintf(&b, " | arcs: %s", strings.Join(c.TreatAsArc, "; "))
		}
		if len(c.TreatAsSpinoff) > 0 {
			fmt.Fprintf(&b, " | spin-offs: %s", strings.Join(c.TreatAsSpinoff, "; "))
		}
		b.WriteString("\n")
	}
	return systemPrompt, b.String()
}
