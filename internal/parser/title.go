// file: internal/parser/title.go
// version: 1.0.0
// guid: cf1ece58-18c9-4622-980c-c3211b32e2f9

package parser

import (
	"regexp"
	"strings"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

// Each pattern removes one kind of non-title noise. They run in order and
// repeat until the title stops changing.
var titleNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[-|:]?\s*\b(?:cap(?:itulo|ítulo)?|ch(?:apter)?|ep(?:isodio|isode)?)\b[.\s#]*\d+.*$`), // "Title - Cap 12", "Title ch.3 end"
	regexp.MustCompile(`(?i)\s*[-|:]?\s*\b(?:vol(?:umen|ume)?|tomo)\b[.\s#]*\d+.*$`),                              // "Title Vol 1", "Title Volumen 2 (raw)"
	regexp.MustCompile(`\s*[(\[]\s*\d+(?:\s*[-–—]\s*\d+)?\s*[)\]]\s*$`),                                            // "Title (1-30)", "Title [12]"
	regexp.MustCompile(`\s*\[[0-9A-F]{4}\].*$`),                                                                    // "Title [1D71] ..."
	regexp.MustCompile(`\s+\d+\s*[-–—]\s*\d+\s*$`),                                                                 // "Title 15-22"
	regexp.MustCompile(`\s+\d+\s*$`),                                                                               // "Title 23"
	regexp.MustCompile(`(?i)\s+(?:season|part|parte|temporada)\s*\d+\s*$`),                                        // "Title Season 2"
	regexp.MustCompile(`(?i)\s+(?:ii|iii|iv)\s*$`),                                                                 // "Title II"
}

var (
	leadingChapterPattern = regexp.MustCompile(`^\s*\d{1,4}\s*[-|.:)~]\s*`) // "23 | Title", "05 - Title"
	leadingCodePattern    = regexp.MustCompile(`^\s*\[[0-9A-F]{4}\]\s*`)
	edgeSeparators        = "-|:~_.,;/ \t"
	maxTitlePasses        = 6
)

// ExtractTitle returns the series-title portion of a filename: the stem
// without a leading chapter marker, chapter, volume and range suffixes,
// series code tags and a trailing subtitle. When nothing is left, the
// repaired stem is returned instead.
func ExtractTitle(filename string) string {
	title, _ := splitTitle(filename)
	return title
}

// splitTitle returns the extracted title and the stem text that followed it.
func splitTitle(filename string) (string, string) {
	stem := normalize.CollapseSpace(normalize.Repair(StripExtension(filename)))
	if stem == "" {
		return "", ""
	}
	body := leadingCodePattern.ReplaceAllString(stem, "")
	body = leadingChapterPattern.ReplaceAllString(body, "")

	title := body
	for range maxTitlePasses {
		next := stripTrailingSubtitle(title)
		for _, re := range titleNoisePatterns {
			next = re.ReplaceAllString(next, "")
		}
		next = strings.TrimRight(next, edgeSeparators)
		if next == title {
			break
		}
		title = next
	}
	title = strings.Trim(title, edgeSeparators)
	if title == "" {
		return stem, ""
	}

	residual := ""
	if idx := strings.Index(body, title); idx >= 0 {
		residual = strings.Trim(body[idx+len(title):], edgeSeparators)
	}
	return title, residual
}
