// file: internal/parser/subtitle.go
// version: 1.0.0
// guid: ab60530c-1c3c-411b-9c88-f50bf092dd6c

package parser

import (
	"regexp"
	"strings"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

type subtitleTerm struct {
	token    string
	anywhere *regexp.Regexp // token between non-alphanumeric runes
	trailing *regexp.Regexp // token after a separator at the end of a title
}

func newSubtitleTerm(token, expr string) subtitleTerm {
	return subtitleTerm{
		token:    token,
		anywhere: regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(?:` + expr + `)(?:$|[^\pL\pN])`),
		trailing: regexp.MustCompile(`(?i)\s*[-|:~]\s*(?:` + expr + `)\s*$`),
	}
}

// subtitleVocabulary lists the recognised arc and side-story markers.
// Multi-word phrases come first so "side story" wins over shorter terms.
var subtitleVocabulary = []subtitleTerm{
	newSubtitleTerm("another story", `another[\s_]+story`),
	newSubtitleTerm("side story", `side[\s_]+story`),
	newSubtitleTerm("back stage", `back[\s_]*stage`), // "Back Stage", "Backstage"
	newSubtitleTerm("superstar", `super[\s_]?star`),
	newSubtitleTerm("side-b", `side[\s_-]?b`), // "Side-B", "Side B"
	newSubtitleTerm("special", `special`),
	newSubtitleTerm("gaiden", `gaiden`),
	newSubtitleTerm("extra", `extras?`),
	newSubtitleTerm("omake", `omake`),
}

// Vocabulary returns the subtitle tokens the parser recognises.
func Vocabulary() []string {
	out := make([]string, len(subtitleVocabulary))
	for i, v := range subtitleVocabulary {
		out[i] = v.token
	}
	return out
}

// DetectSubtitle finds the first known subtitle token in s. Extra tokens,
// typically taken from series policies, are checked after the built-in
// vocabulary. The returned token is lower-cased with single spaces.
func DetectSubtitle(s string, extra ...string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, v := range subtitleVocabulary {
		if v.anywhere.MatchString(s) {
			return v.token, true
		}
	}
	if len(extra) == 0 {
		return "", false
	}
	haystack := " " + normalize.Comparable(s) + " "
	for _, token := range extra {
		needle := normalize.Comparable(token)
		if needle == "" {
			continue
		}
		if strings.Contains(haystack, " "+needle+" ") {
			return NormalizeToken(token), true
		}
	}
	return "", false
}

// NormalizeToken lower-cases a subtitle or policy token and collapses its
// whitespace.
func NormalizeToken(s string) string {
	return normalize.CollapseSpace(strings.ToLower(normalize.Repair(s)))
}

// stripTrailingSubtitle removes a recognised subtitle that follows a
// separator at the end of s ("Title - Superstar").
func stripTrailingSubtitle(s string) string {
	for _, v := range subtitleVocabulary {
		if loc := v.trailing.FindStringIndex(s); loc != nil {
			return s[:loc[0]]
		}
	}
	return s
}

// SplitTrailingToken removes one of tokens when it follows a separator at
// the end of title ("Given - The End"). It returns the shortened title and
// the token text as it appeared.
func SplitTrailingToken(title string, tokens []string) (string, string, bool) {
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\s*[-|:~]\s*(` + regexp.QuoteMeta(token) + `)\s*$`)
		if err != nil {
			continue
		}
		m := re.FindStringSubmatchIndex(title)
		if m == nil || m[0] == 0 {
			continue
		}
		return strings.TrimSpace(title[:m[0]]), title[m[2]:m[3]], true
	}
	return title, "", false
}
