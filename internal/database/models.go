// file: internal/database/models.go
// version: 1.0.0
// guid: 1e6c0a3d-7b2f-4f58-a9d4-3c5e7f8a9b01

package database

import "time"

// Reading statuses of a volume.
const (
	StatusUnread    = "unread"
	StatusReading   = "reading"
	StatusCompleted = "completed"
)

// Series is one entry of the catalog. SeriesCode is unique and names the
// series directory in the library.
type Series struct {
	ID              string    `json:"id"`
	SeriesCode      string    `json:"series_code"`
	Title           string    `json:"title"`
	NormalizedTitle string    `json:"normalized_title"`
	Author          string    `json:"author,omitempty"`
	Genre           string    `json:"genre,omitempty"`
	Year            *int      `json:"year,omitempty"`
	Description     string    `json:"description,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	ReadingStatus   string    `json:"reading_status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SeriesPolicy holds the per-series overrides consulted by the matcher.
type SeriesPolicy struct {
	SeriesID       string    `json:"series_id" yaml:"-"`
	TitleCanonical string    `json:"title_canonical" yaml:"title_canonical"`
	TitleLocked    bool      `json:"title_locked" yaml:"title_locked"`
	DoNotTranslate bool      `json:"do_not_translate" yaml:"do_not_translate"`
	Aliases        []string  `json:"aliases" yaml:"aliases,omitempty"`
	TreatAsArc     []string  `json:"treat_as_arc" yaml:"treat_as_arc,omitempty"`
	TreatAsSpinoff []string  `json:"treat_as_spinoff" yaml:"treat_as_spinoff,omitempty"`
	Romanizations  []string  `json:"romanizations" yaml:"romanizations,omitempty"`
	Notes          string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}

// Volume is one imported file.
type Volume struct {
	ID            string     `json:"id"`
	SeriesID      string     `json:"series_id"`
	Title         string     `json:"title"`
	VolumeNumber  *int       `json:"volume_number,omitempty"`
	ChapterNumber *int       `json:"chapter_number,omitempty"`
	ChapterStart  *int       `json:"chapter_start,omitempty"`
	ChapterEnd    *int       `json:"chapter_end,omitempty"`
	FilePath      string     `json:"file_path"`
	FileSize      int64      `json:"file_size"`
	FileHash      string     `json:"file_hash"`
	TotalPages    int        `json:"total_pages"`
	CurrentPage   int        `json:"current_page"`
	Status        string     `json:"status"`
	LastReadAt    *time.Time `json:"last_read_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// MatchingLog records how one filename was resolved.
type MatchingLog struct {
	ID                     string    `json:"id"`
	Filename               string    `json:"filename"`
	SeriesID               string    `json:"series_id,omitempty"`
	Matched                bool      `json:"matched"`
	Score                  float64   `json:"score"`
	Method                 string    `json:"method"`
	AliasUsed              string    `json:"alias_used,omitempty"`
	SubtitleDetected       string    `json:"subtitle_detected,omitempty"`
	SubtitleClassification string    `json:"subtitle_classification,omitempty"`
	Reason                 string    `json:"reason,omitempty"`
	LLMResponse            string    `json:"llm_response,omitempty"`
	Error                  string    `json:"error,omitempty"`
	ProcessingTimeMs       int64     `json:"processing_time_ms"`
	LowConfidence          bool      `json:"low_confidence"`
	CreatedAt              time.Time `json:"created_at"`
}

// ProgressStatus derives the reading status from a page position.
func ProgressStatus(currentPage, totalPages int) string {
	switch {
	case currentPage <= 0:
		return StatusUnread
	case totalPages > 0 && currentPage >= totalPages:
		return StatusCompleted
	default:
		return StatusReading
	}
}

// applyProgress updates the page, status and last read time of v.
func applyProgress(v *Volume, currentPage int, now time.Time) {
	if currentPage < 0 {
		currentPage = 0
	}
	v.CurrentPage = currentPage
	v.Status = ProgressStatus(currentPage, v.TotalPages)
	v.LastReadAt = &now
}
