// file: internal/parser/parse.go
// version: 1.0.0
// guid: 27997e4b-2f93-4873-ae6a-471a77edadf1

package parser

import (
	"regexp"
	"strings"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

// Parsed is everything the resolution pipeline needs from one filename.
type Parsed struct {
	Filename string          `json:"filename"`
	RawTitle string          `json:"raw_title"`
	Title    normalize.Title `json:"title"`
	Info     ChapterInfo     `json:"chapter_info"`
	// Residual is the stem text after the title, such as "2" in
	// "The Demon King 2" or "Superstar" in "Title - Superstar".
	Residual string `json:"residual,omitempty"`
}

// Parse repairs and splits filename into its title, chapter info and
// residual text.
func Parse(filename string) Parsed {
	title, residual := splitTitle(filename)
	return Parsed{
		Filename: filename,
		RawTitle: title,
		Title:    normalize.Normalize(title),
		Info:     ParseChapterInfo(filename),
		Residual: residual,
	}
}

var (
	sequelPattern = regexp.MustCompile(`(?i)^(?:(?:season|part|parte|temporada)\s*0*(?:[2-9]|[1-9]\d)|ii|iii|iv|v|two|2)$`)
	residualNoise = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:cap(?:itulo|ítulo)?|ch(?:apter)?|ep(?:isodio|isode)?|vol(?:umen|ume)?|tomo)\b[.\s#]*\d+`),
		regexp.MustCompile(`[(\[]\s*\d+(?:\s*[-–—]\s*\d+)?\s*[)\]]`),
		regexp.MustCompile(`\[[0-9A-F]{4}\]`),
		regexp.MustCompile(`\b\d+\s*[-–—]\s*\d+\b`),
	}
	separatorRun = regexp.MustCompile(`[\s\-|:~_.,;/]+`)
)

// DetectSequel reports whether the residual text after a title marks a
// sequel ("2", "II", "Season 2", "Parte 3"). Chapter, volume and range
// markers are ignored, as are recognised subtitles. The marker found is
// returned lower-cased.
func DetectSequel(residual string) (string, bool) {
	s := residual
	for _, re := range residualNoise {
		s = re.ReplaceAllString(s, " ")
	}
	for _, v := range subtitleVocabulary {
		s = v.anywhere.ReplaceAllString(s, " ")
	}
	fields := strings.Fields(separatorRun.ReplaceAllString(s, " "))
	if len(fields) == 0 {
		return "", false
	}
	// The marker is the first field, or the first two for "season 2".
	candidates := []string{fields[0]}
	if len(fields) > 1 {
		candidates = append(candidates, fields[0]+" "+fields[1])
	}
	for _, c := range candidates {
		if sequelPattern.MatchString(c) {
			return strings.ToLower(c), true
		}
	}
	return "", false
}
