// file: internal/server/response_types.go
// version: 2.1.0
// guid: 7f8a9b0c-1d2e-3f4a-5b6c-7d8e9f0a1b2c

package server

import (
	"github.com/jdfalk/manga-organizer/internal/database"
	"github.com/jdfalk/manga-organizer/internal/matcher"
)

// ListResponse provides a consistent format for paginated list responses
type ListResponse struct {
	Items  any `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// DeleteResponse provides a consistent format for deletion responses
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// StatusResponse provides a consistent format for status check responses
type StatusResponse struct {
	Status string `json:"status"` // "ok", "degraded"
	Data   any    `json:"data,omitempty"`
}

// PaginationParams holds common pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// SeriesDetail is a series with its policy and volume count.
type SeriesDetail struct {
	database.Series
	Policy      *database.SeriesPolicy `json:"policy"`
	VolumeCount int                    `json:"volume_count"`
}

// LibraryStats counts the library contents and reading progress.
type LibraryStats struct {
	Series     int   `json:"series"`
	Volumes    int   `json:"volumes"`
	TotalPages int   `json:"total_pages"`
	PagesRead  int   `json:"pages_read"`
	TotalBytes int64 `json:"total_bytes"`
	Unread     int   `json:"unread"`
	Reading    int   `json:"reading"`
	Completed  int   `json:"completed"`
}

// Upload outcomes.
const (
	UploadImported  = "imported"
	UploadDuplicate = "duplicate"
	UploadFailed    = "failed"
)

// UploadItem is the outcome for one uploaded file.
type UploadItem struct {
	Filename      string           `json:"filename"`
	Status        string           `json:"status"`
	Error         string           `json:"error,omitempty"`
	VolumeID      string           `json:"volume_id,omitempty"`
	Path          string           `json:"path,omitempty"`
	SeriesID      string           `json:"series_id,omitempty"`
	SeriesCode    string           `json:"series_code,omitempty"`
	SeriesTitle   string           `json:"series_title,omitempty"`
	CreatedSeries bool             `json:"created_series,omitempty"`
	Decision      matcher.Decision `json:"decision,omitempty"`
	Method        string           `json:"method,omitempty"`
	Score         float64          `json:"score,omitempty"`
	LowConfidence bool             `json:"low_confidence,omitempty"`
}

// UploadResponse summarizes a multi-file upload.
type UploadResponse struct {
	Total      int          `json:"total"`
	Imported   int          `json:"imported"`
	Duplicates int          `json:"duplicates"`
	Failed     int          `json:"failed"`
	Results    []UploadItem `json:"results"`
}

// NewListResponse creates a new ListResponse for one page out of total.
func NewListResponse(items any, count, limit, offset, total int) *ListResponse {
	return &ListResponse{
		Items:  items,
		Count:  count,
		Limit:  limit,
		Offset: offset,
		Total:  total,
	}
}

// NewUploadResponse counts the outcomes of results.
func NewUploadResponse(results []UploadItem) *UploadResponse {
	resp := &UploadResponse{Total: len(results), Results: results}
	for _, item := range results {
		switch item.Status {
		case UploadImported:
			resp.Imported++
		case UploadDuplicate:
			resp.Duplicates++
		default:
			resp.Failed++
		}
	}
	return resp
}

// NewStatusResponse creates a new StatusResponse
func NewStatusResponse(status string, data any) *StatusResponse {
	return &StatusResponse{
		Status: status,
		Data:   data,
	}
}
