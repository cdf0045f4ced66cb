// file: internal/organizer/filename.go
// version: 1.0.0
// guid: 619b67ef-ab75-421e-9b87-ce735e9e9df1

package organizer

import (
	"strconv"
	"strings"

	"github.com/jdfalk/manga-organizer/internal/normalize"
	"github.com/jdfalk/manga-organizer/internal/parser"
)

// FallbackSlug names files whose title slugifies to nothing.
const FallbackSlug = "untitled"

// BuildFilename returns the canonical library filename for a resolved
// title: slug, an optional "-arc-<subtitle>" when the subtitle is in
// arcWhitelist, a chapter segment and ".pdf". Files without chapter info get
// "-cap-0" so every name has the same shape.
func BuildFilename(resolvedTitle string, info parser.ChapterInfo, arcWhitelist []string) string {
	var b strings.Builder

	slug := normalize.Slugify(resolvedTitle)
	if slug == "" {
		slug = FallbackSlug
	}
	b.WriteString(slug)

	if sub := info.SubtitleText(); sub != "" && inWhitelist(arcWhitelist, sub) {
		if subSlug := normalize.Slugify(sub); subSlug != "" {
			b.WriteString("-arc-")
			b.WriteString(subSlug)
		}
	}

	b.WriteString("-cap-")
	switch {
	case info.IsRange():
		b.WriteString(strconv.Itoa(*info.ChapterStart))
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(*info.ChapterEnd))
	case info.HasChapter():
		b.WriteString(strconv.Itoa(*info.ChapterStart))
	case info.Chapter != nil:
		b.WriteString(strconv.Itoa(*info.Chapter))
	default:
		b.WriteByte('0')
	}

	b.WriteString(".pdf")
	return b.String()
}

func inWhitelist(list []string, subtitle string) bool {
	want := normalize.Slugify(subtitle)
	for _, item := range list {
		if normalize.Slugify(item) == want {
			return true
		}
	}
	return false
}
