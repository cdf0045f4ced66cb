// file: internal/server/series_handlers.go
// version: 1.1.0
// guid: 7b3780be-f951-449b-95c2-89dba41814e1

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jdfalk/manga-organizer/internal/database"
	"github.com/jdfalk/manga-organizer/internal/normalize"
)

func (s *Server) listSeries(c *gin.Context) {
	series, err := s.deps.Store.ListSeries()
	if err != nil {
		RespondWithInternalError(c, "failed to list series: "+err.Error())
		return
	}
	p := ParsePaginationParams(c)
	page := paginate(series, p)
	c.JSON(http.StatusOK, NewListResponse(page, len(page), p.Limit, p.Offset, len(series)))
}

func (s *Server) searchSeries(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		RespondWithValidationError(c, "q", "required")
		return
	}
	limit := ParseQueryInt(c, "limit", 20)
	results, err := s.deps.Store.SearchSeries(query, limit)
	if err != nil {
		RespondWithInternalError(c, "failed to search series: "+err.Error())
		return
	}
	results = nonNil(results)
	c.JSON(http.StatusOK, NewListResponse(results, len(results), limit, 0, len(results)))
}

func (s *Server) getSeries(c *gin.Context) {
	id := c.Param("id")
	series, err := s.deps.Store.GetSeriesByID(id)
	if err != nil {
		respondWithStoreError(c, "series", id, err)
		return
	}

	detail := SeriesDetail{Series: *series}
	policy, err := s.deps.Store.GetPolicy(id)
	switch {
	case err == nil:
		detail.Policy = policy
	case !errors.Is(err, database.ErrNotFound):
		RespondWithInternalError(c, "failed to load policy: "+err.Error())
		return
	}
	volumes, err := s.deps.Store.ListVolumesBySeries(id)
	if err != nil {
		RespondWithInternalError(c, "failed to list volumes: "+err.Error())
		return
	}
	detail.VolumeCount = len(volumes)

	c.JSON(http.StatusOK, detail)
}

func (s *Server) listSeriesVolumes(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.deps.Store.GetSeriesByID(id); err != nil {
		respondWithStoreError(c, "series", id, err)
		return
	}
	volumes, err := s.deps.Store.ListVolumesBySeries(id)
	if err != nil {
		RespondWithInternalError(c, "failed to list volumes: "+err.Error())
		return
	}
	volumes = nonNil(volumes)
	c.JSON(http.StatusOK, NewListResponse(volumes, len(volumes), len(volumes), 0, len(volumes)))
}

// seriesUpdateRequest carries the editable metadata of a series. Absent
// fields keep their stored value.
type seriesUpdateRequest struct {
	Title         *string   `json:"title"`
	Author        *string   `json:"author"`
	Genre         *string   `json:"genre"`
	Year          *int      `json:"year"`
	Description   *string   `json:"description"`
	Publisher     *string   `json:"publisher"`
	Tags          *[]string `json:"tags"`
	ReadingStatus *string   `json:"reading_status"`
}

// updateSeries edits series metadata. The series code, and with it the
// library directory, never changes here.
func (s *Server) updateSeries(c *gin.Context) {
	id := c.Param("id")
	series, err := s.deps.Store.GetSeriesByID(id)
	if err != nil {
		respondWithStoreError(c, "series", id, err)
		return
	}

	var req seriesUpdateRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			RespondWithValidationError(c, "title", "must not be empty")
			return
		}
		series.Title = *req.Title
	}
	if req.ReadingStatus != nil {
		switch *req.ReadingStatus {
		case database.StatusUnread, database.StatusReading, database.StatusCompleted:
			series.ReadingStatus = *req.ReadingStatus
		default:
			RespondWithValidationError(c, "reading_status", "must be unread, reading or completed")
			return
		}
	}
	if req.Year != nil {
		if *req.Year < 0 {
			RespondWithValidationError(c, "year", "must not be negative")
			return
		}
		series.Year = req.Year
	}
	if req.Author != nil {
		series.Author = strings.TrimSpace(*req.Author)
	}
	if req.Genre != nil {
		series.Genre = strings.TrimSpace(*req.Genre)
	}
	if req.Description != nil {
		series.Description = *req.Description
	}
	if req.Publisher != nil {
		series.Publisher = strings.TrimSpace(*req.Publisher)
	}
	if req.Tags != nil {
		series.Tags = *req.Tags
	}

	if err := s.deps.Store.UpdateSeries(series); err != nil {
		respondWithStoreError(c, "series", id, err)
		return
	}
	s.deps.Importer.InvalidateCatalog()
	log.Info().Str("series_id", id).Str("title", series.Title).Msg("series updated")
	c.JSON(http.StatusOK, series)
}

// deleteSeries removes the series, its policy and its volume records. Files
// in the library are left in place.
func (s *Server) deleteSeries(c *gin.Context) {
	id := c.Param("id")
	if err := s.deps.Store.DeleteSeries(id); err != nil {
		respondWithStoreError(c, "series", id, err)
		return
	}
	s.deps.Importer.InvalidateCatalog()
	log.Info().Str("series_id", id).Msg("series deleted")
	c.JSON(http.StatusOK, DeleteResponse{Deleted: true, ID: id})
}

// getSeriesPolicy returns the stored policy, or the defaults the matcher
// uses for a series without one.
func (s *Server) getSeriesPolicy(c *gin.Context) {
	id := c.Param("id")
	series, err := s.deps.Store.GetSeriesByID(id)
	if err != nil {
		respondWithStoreError(c, "series", id, err)
		return
	}
	policy, err := s.deps.Store.GetPolicy(id)
	if errors.Is(err, database.ErrNotFound) {
		policy = &database.SeriesPolicy{SeriesID: id, TitleCanonical: series.Title}
	} else if err != nil {
		RespondWithInternalError(c, "failed to load policy: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (s *Server) updateSeriesPolicy(c *gin.Context) {
	id := c.Param("id")
	series, err := s.deps.Store.GetSeriesByID(id)
	if err != nil {
		respondWithStoreError(c, "series", id, err)
		return
	}

	var policy database.SeriesPolicy
	if HandleBindError(c, c.ShouldBindJSON(&policy)) {
		return
	}
	policy.SeriesID = id
	policy.TitleCanonical = strings.TrimSpace(policy.TitleCanonical)
	if policy.TitleCanonical == "" {
		policy.TitleCanonical = series.Title
	}

	if err := s.deps.Store.UpsertPolicy(&policy); err != nil {
		RespondWithInternalError(c, "failed to save policy: "+err.Error())
		return
	}
	s.deps.Importer.InvalidateCatalog()
	log.Info().Str("series_id", id).Str("canonical", policy.TitleCanonical).Bool("locked", policy.TitleLocked).Msg("series policy updated")
	c.JSON(http.StatusOK, policy)
}

// seriesCode previews the code a title would be stored under.
func (s *Server) seriesCode(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		RespondWithValidationError(c, "title", "required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": title, "code": normalize.GenerateCode(title)})
}
