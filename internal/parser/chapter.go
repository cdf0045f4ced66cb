// file: internal/parser/chapter.go
// version: 1.0.0
// guid: 3450b6c7-7b88-4771-af57-df6539b671d3

// Package parser extracts chapter ranges, subtitles and the series title
// portion from manga PDF filenames.
package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

// ChapterInfo is the chapter and subtitle data carried by a filename.
// Either a single chapter (mirrored into the range fields), a range, or
// nothing is populated.
type ChapterInfo struct {
	Chapter      *int    `json:"chapter"`
	ChapterStart *int    `json:"chapter_start"`
	ChapterEnd   *int    `json:"chapter_end"`
	Subtitle     *string `json:"subtitle"`
	Volume       *int    `json:"volume,omitempty"`
}

// HasChapter reports whether a single chapter or a range was found.
func (c ChapterInfo) HasChapter() bool {
	return c.ChapterStart != nil && c.ChapterEnd != nil
}

// IsRange reports whether the info spans more than one chapter.
func (c ChapterInfo) IsRange() bool {
	return c.HasChapter() && *c.ChapterStart != *c.ChapterEnd
}

// SubtitleText returns the subtitle or an empty string.
func (c ChapterInfo) SubtitleText() string {
	if c.Subtitle == nil {
		return ""
	}
	return *c.Subtitle
}

var (
	extensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9]*[A-Za-z][A-Za-z0-9]*$`)
	rangePattern     = regexp.MustCompile(`\b(\d+)\s*[-–—]\s*(\d+)\b`)
	singlePattern    = regexp.MustCompile(`\b(\d{1,4})\b`)
	volumePattern    = regexp.MustCompile(`(?i)\b(?:vol(?:umen|ume)?|tomo)\b\.?\s*#?\s*(\d{1,4})\b`)
	codeTagPattern   = regexp.MustCompile(`\[[0-9A-F]{4}\]`)
)

// StripExtension removes a trailing file extension. Dotted suffixes that
// contain spaces or only digits ("Vol. 1", "Chapter 1.5") are kept.
func StripExtension(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	ext := filepath.Ext(base)
	if ext != "" && extensionPattern.MatchString(ext) {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// ParseChapterInfo extracts the chapter number or range and a known
// subtitle from filename. Chapter and subtitle detection are independent;
// a filename with neither yields an all-nil ChapterInfo.
func ParseChapterInfo(filename string) ChapterInfo {
	var info ChapterInfo
	stem := normalize.Repair(StripExtension(filename))
	if stem == "" {
		return info
	}

	// Volume markers and series code tags are not chapters.
	work := stem
	if m := volumePattern.FindStringSubmatchIndex(work); m != nil {
		if n, err := strconv.Atoi(work[m[2]:m[3]]); err == nil {
			info.Volume = &n
		}
		work = blank(work, volumePattern)
	}
	work = blank(work, codeTagPattern)

	if m := rangePattern.FindStringSubmatch(work); m != nil {
		start, errStart := strconv.Atoi(m[1])
		end, errEnd := strconv.Atoi(m[2])
		if errStart == nil && errEnd == nil {
			if start > end {
				start, end = end, start
			}
			info.ChapterStart = &start
			info.ChapterEnd = &end
		}
	}
	if !info.HasChapter() {
		if m := singlePattern.FindStringSubmatch(work); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				start, end := n, n
				info.Chapter = &n
				info.ChapterStart = &start
				info.ChapterEnd = &end
			}
		}
	}

	if token, ok := DetectSubtitle(stem); ok {
		info.Subtitle = &token
	}
	return info
}

// blank replaces every match of re with a space so surrounding word
// boundaries stay intact.
func blank(s string, re *regexp.Regexp) string {
	return re.ReplaceAllString(s, " ")
}
