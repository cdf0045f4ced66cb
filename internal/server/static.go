// file: internal/server/static.go
// version: 2.0.0
// guid: 2b3c4d5e-6f7a-8b9c-0d1e-2f3a4b5c6d7e

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const placeholderHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Manga Organizer</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; background-color: #f5f5f5; }
        .container { max-width: 800px; margin: 0 auto; background: white; padding: 40px; border-radius: 8px; }
        .api-endpoint { font-family: 'Courier New', monospace; background: #e9ecef; padding: 4px 8px; margin: 2px 0; border-radius: 3px; display: block; }
        .method { color: #007bff; font-weight: bold; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Manga Organizer API Server</h1>

        <h3>Import</h3>
        <code class="api-endpoint"><span class="method">POST</span> /api/v1/upload - Upload PDFs (multipart field "file")</code>
        <code class="api-endpoint"><span class="method">POST</span> /api/v1/resolve - Dry-run a filename</code>
        <code class="api-endpoint"><span class="method">POST</span> /api/v1/operations/import - Import a directory</code>
        <code class="api-endpoint"><span class="method">GET</span> /api/v1/events - Live import events</code>

        <h3>Library</h3>
        <code class="api-endpoint"><span class="method">GET</span> /api/v1/series - List series</code>
        <code class="api-endpoint"><span class="method">GET</span> /api/v1/series/search?q= - Search series</code>
        <code class="api-endpoint"><span class="method">GET</span> /api/v1/series/:id/volumes - Volumes of a series</code>
        <code class="api-endpoint"><span class="method">PUT</span> /api/v1/series/:id/policy - Edit a series policy</code>
        <code class="api-endpoint"><span class="method">PUT</span> /api/v1/volumes/:id/progress - Save reading progress</code>
        <code class="api-endpoint"><span class="method">GET</span> /api/v1/matching-logs - Recent match decisions</code>

        <h3>System</h3>
        <code class="api-endpoint"><span class="method">GET</span> /api/health - Health check</code>
        <code class="api-endpoint"><span class="method">GET</span> /metrics - Prometheus metrics</code>
    </div>
</body>
</html>`

// setupStaticFiles serves the endpoint overview page and a JSON 404 for
// unknown API routes.
func (s *Server) setupStaticFiles() {
	s.router.GET("/", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, placeholderHTML)
	})
	s.router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "endpoint not found", Code: "NOT_FOUND", Status: http.StatusNotFound})
			return
		}
		c.Redirect(http.StatusFound, "/")
	})
}
