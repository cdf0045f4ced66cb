// file: internal/server/import_handlers.go
// version: 1.0.0
// guid: b1265c48-d946-44e4-a7ad-901ad644d299

package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/jdfalk/manga-organizer/internal/config"
	"github.com/jdfalk/manga-organizer/internal/fileops"
	"github.com/jdfalk/manga-organizer/internal/importer"
	"github.com/jdfalk/manga-organizer/internal/operations"
)

type resolveRequest struct {
	Filename string `json:"filename" binding:"required"`
}

type directoryImportRequest struct {
	Path         string `json:"path" binding:"required"`
	RemoveSource bool   `json:"remove_source"`
	Priority     *int   `json:"priority"`
}

func uploadTempDir() string {
	if dir := config.AppConfig.UploadTempDir; dir != "" {
		return dir
	}
	return os.TempDir()
}

// saveUpload stores one multipart file under a unique temporary name.
func saveUpload(c *gin.Context, fh *multipart.FileHeader, dir string) (string, error) {
	tmp := filepath.Join(dir, "upload-"+ulid.Make().String()+".pdf")
	if err := c.SaveUploadedFile(fh, tmp); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return tmp, nil
}

// uploadFiles imports every multipart "file" part. With ?async=true the
// files are handed to a bulk operation and the response is 202 with its id.
func (s *Server) uploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondWithBadRequest(c, "invalid multipart form: "+err.Error())
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		RespondWithValidationError(c, "file", "at least one file is required")
		return
	}

	dir := uploadTempDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		RespondWithInternalError(c, "failed to prepare upload directory: "+err.Error())
		return
	}

	if ParseQueryBool(c, "async") {
		s.enqueueUploads(c, files, dir)
		return
	}

	results := make([]UploadItem, 0, len(files))
	for _, fh := range files {
		results = append(results, s.importUpload(c, fh, dir))
	}

	resp := NewUploadResponse(results)
	status := http.StatusOK
	if resp.Failed == resp.Total {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, resp)
}

func (s *Server) importUpload(c *gin.Context, fh *multipart.FileHeader, dir string) UploadItem {
	name := filepath.Base(fh.Filename)
	item := UploadItem{Filename: name, Status: UploadFailed}
	if !fileops.HasPDFExtension(name) {
		item.Error = importer.ErrNotPDF.Error()
		return item
	}

	tmp, err := saveUpload(c, fh, dir)
	if err != nil {
		item.Error = err.Error()
		return item
	}

	result, err := s.deps.Importer.Import(c.Request.Context(), importer.ImportSource{
		Path:         tmp,
		Name:         name,
		RemoveSource: true,
	})
	if err != nil {
		_ = os.Remove(tmp)
		log.Warn().Err(err).Str("file", name).Msg("upload import failed")
		item.Error = err.Error()
		return item
	}

	item.Status = UploadImported
	if result.Duplicate {
		item.Status = UploadDuplicate
	}
	item.CreatedSeries = result.CreatedSeries
	if result.Volume != nil {
		item.VolumeID = result.Volume.ID
		item.Path = result.Volume.FilePath
	}
	if result.Series != nil {
		item.SeriesID = result.Series.ID
		item.SeriesCode = result.Series.SeriesCode
		item.SeriesTitle = result.Series.Title
	}
	if !result.Duplicate {
		item.Decision = result.Resolution.Result.Decision
		item.Method = result.Resolution.Result.Method
		item.Score = result.Resolution.Result.Score
		item.LowConfidence = result.Resolution.Result.LowConfidence
	}
	return item
}

func (s *Server) enqueueUploads(c *gin.Context, files []*multipart.FileHeader, dir string) {
	if s.deps.Queue == nil {
		RespondWithUnavailable(c, "operation queue is not running")
		return
	}

	var sources []importer.ImportSource
	var rejected []UploadItem
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !fileops.HasPDFExtension(name) {
			rejected = append(rejected, UploadItem{Filename: name, Status: UploadFailed, Error: importer.ErrNotPDF.Error()})
			continue
		}
		tmp, err := saveUpload(c, fh, dir)
		if err != nil {
			rejected = append(rejected, UploadItem{Filename: name, Status: UploadFailed, Error: err.Error()})
			continue
		}
		sources = append(sources, importer.ImportSource{Path: tmp, Name: name, RemoveSource: true})
	}
	if len(sources) == 0 {
		c.JSON(http.StatusUnprocessableEntity, NewUploadResponse(rejected))
		return
	}

	id, err := s.deps.Queue.Enqueue("", operations.TypeImportFiles, operations.PriorityNormal,
		operations.ImportFilesFunc(s.deps.Importer, sources))
	if err != nil {
		for _, src := range sources {
			_ = os.Remove(src.Path)
		}
		respondWithStoreError(c, "operation", "", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"operation_id": id,
		"queued":       len(sources),
		"rejected":     nonNil(rejected),
	})
}

// resolveFilename is a dry run: nothing is stored or moved.
func (s *Server) resolveFilename(c *gin.Context) {
	var req resolveRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		RespondWithValidationError(c, "filename", "required")
		return
	}

	resolution, err := s.deps.Importer.Resolve(c.Request.Context(), req.Filename)
	if err != nil {
		RespondWithInternalError(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, resolution)
}

// startDirectoryImport queues a bulk import of every PDF under a directory.
func (s *Server) startDirectoryImport(c *gin.Context) {
	if s.deps.Queue == nil {
		RespondWithUnavailable(c, "operation queue is not running")
		return
	}
	var req directoryImportRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	info, err := s.deps.Fs.Stat(req.Path)
	if err != nil || !info.IsDir() {
		RespondWithValidationError(c, "path", "must be an existing directory")
		return
	}

	priority := operations.PriorityNormal
	if req.Priority != nil {
		priority = *req.Priority
	}

	id, err := s.deps.Queue.Enqueue("", operations.TypeImportDirectory, priority,
		operations.ImportDirectoryFunc(s.deps.Importer, s.deps.Fs, req.Path, req.RemoveSource))
	if err != nil {
		if errors.Is(err, operations.ErrQueueFull) {
			RespondWithUnavailable(c, err.Error())
			return
		}
		RespondWithInternalError(c, err.Error())
		return
	}

	op, _ := s.deps.Queue.GetStatus(id)
	c.JSON(http.StatusAccepted, op)
}
