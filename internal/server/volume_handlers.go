// file: internal/server/volume_handlers.go
// version: 1.1.0
// guid: 955b361f-b9e1-47bb-87b4-b759fa261425

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jdfalk/manga-organizer/internal/database"
)

type progressRequest struct {
	CurrentPage *int `json:"current_page" binding:"required"`
}

func (s *Server) getVolume(c *gin.Context) {
	id := c.Param("id")
	volume, err := s.deps.Store.GetVolumeByID(id)
	if err != nil {
		respondWithStoreError(c, "volume", id, err)
		return
	}
	c.JSON(http.StatusOK, volume)
}

func (s *Server) updateVolumeProgress(c *gin.Context) {
	id := c.Param("id")
	var req progressRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if *req.CurrentPage < 0 {
		RespondWithValidationError(c, "current_page", "must not be negative")
		return
	}

	volume, err := s.deps.Store.UpdateVolumeProgress(id, *req.CurrentPage)
	if err != nil {
		respondWithStoreError(c, "volume", id, err)
		return
	}
	c.JSON(http.StatusOK, volume)
}

// deleteVolume removes the volume record. The file stays in the library,
// as it does when a whole series is deleted.
func (s *Server) deleteVolume(c *gin.Context) {
	id := c.Param("id")
	if err := s.deps.Store.DeleteVolume(id); err != nil {
		respondWithStoreError(c, "volume", id, err)
		return
	}
	log.Info().Str("volume_id", id).Msg("volume deleted")
	c.JSON(http.StatusOK, DeleteResponse{Deleted: true, ID: id})
}

// getStats summarizes the library and reading progress.
func (s *Server) getStats(c *gin.Context) {
	series, err := s.deps.Store.ListSeries()
	if err != nil {
		RespondWithInternalError(c, "failed to list series: "+err.Error())
		return
	}

	stats := LibraryStats{Series: len(series)}
	for _, sr := range series {
		volumes, err := s.deps.Store.ListVolumesBySeries(sr.ID)
		if err != nil {
			RespondWithInternalError(c, "failed to list volumes: "+err.Error())
			return
		}
		for _, v := range volumes {
			stats.Volumes++
			stats.TotalPages += v.TotalPages
			stats.PagesRead += v.CurrentPage
			stats.TotalBytes += v.FileSize
			switch v.Status {
			case database.StatusCompleted:
				stats.Completed++
			case database.StatusReading:
				stats.Reading++
			default:
				stats.Unread++
			}
		}
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) recentVolumes(c *gin.Context) {
	limit := ParseQueryInt(c, "limit", 20)
	if limit < 1 || limit > 200 {
		limit = 20
	}
	volumes, err := s.deps.Store.GetRecentlyRead(limit)
	if err != nil {
		RespondWithInternalError(c, "failed to list recent volumes: "+err.Error())
		return
	}
	volumes = nonNil(volumes)
	c.JSON(http.StatusOK, NewListResponse(volumes, len(volumes), limit, 0, len(volumes)))
}

func (s *Server) listMatchingLogs(c *gin.Context) {
	limit := ParseQueryInt(c, "limit", 50)
	if limit < 1 || limit > 1000 {
		limit = 50
	}
	logs, err := s.deps.Store.ListMatchingLogs(limit)
	if err != nil {
		RespondWithInternalError(c, "failed to list matching logs: "+err.Error())
		return
	}
	logs = nonNil[database.MatchingLog](logs)
	c.JSON(http.StatusOK, NewListResponse(logs, len(logs), limit, 0, len(logs)))
}
