// file: internal/server/operation_handlers.go
// version: 1.1.0
// guid: 7bcdfdbe-8938-4c6a-9d69-76ac845c702c

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/manga-organizer/internal/operations"
	"github.com/jdfalk/manga-organizer/internal/realtime"
)

func (s *Server) listOperations(c *gin.Context) {
	if s.deps.Queue == nil {
		RespondWithUnavailable(c, "operation queue is not running")
		return
	}
	ops := nonNil[operations.Operation](s.deps.Queue.List())
	c.JSON(http.StatusOK, NewListResponse(ops, len(ops), len(ops), 0, len(ops)))
}

func (s *Server) getOperation(c *gin.Context) {
	if s.deps.Queue == nil {
		RespondWithUnavailable(c, "operation queue is not running")
		return
	}
	id := c.Param("id")
	op, err := s.deps.Queue.GetStatus(id)
	if err != nil {
		respondWithStoreError(c, "operation", id, err)
		return
	}
	c.JSON(http.StatusOK, op)
}

func (s *Server) cancelOperation(c *gin.Context) {
	if s.deps.Queue == nil {
		RespondWithUnavailable(c, "operation queue is not running")
		return
	}
	id := c.Param("id")
	op, err := s.deps.Queue.GetStatus(id)
	if err != nil {
		respondWithStoreError(c, "operation", id, err)
		return
	}
	if op.Finished() {
		RespondWithConflict(c, "operation already "+op.Status)
		return
	}
	if err := s.deps.Queue.Cancel(id); err != nil {
		// Finished between the two calls.
		respondWithStoreError(c, "operation", id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "canceled": true})
}

// streamEvents is the server-sent event stream. ?operation=<id>[,<id>]
// limits it to known operations and replays their current state first.
func (s *Server) streamEvents(c *gin.Context) {
	if s.deps.Hub == nil {
		RespondWithUnavailable(c, "event hub is not running")
		return
	}
	if s.deps.Queue != nil {
		for _, id := range realtime.ParseOperationIDs(c.QueryArray("operation")) {
			if _, err := s.deps.Queue.GetStatus(id); err != nil {
				respondWithStoreError(c, "operation", id, err)
				return
			}
		}
	}
	s.deps.Hub.HandleSSE(c)
}
