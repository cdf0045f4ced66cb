// file: internal/server/server.go
// version: 2.1.0
// guid: 4f5a6b7c-8d9e-0f1a-2b3c-4d5e6f7a8b9c

// Package server exposes the library over HTTP: uploads, dry-run
// resolution, series and policy management, reading progress, matching
// logs, bulk operations and a server-sent event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/jdfalk/manga-organizer/internal/config"
	"github.com/jdfalk/manga-organizer/internal/database"
	"github.com/jdfalk/manga-organizer/internal/importer"
	"github.com/jdfalk/manga-organizer/internal/metrics"
	"github.com/jdfalk/manga-organizer/internal/operations"
	"github.com/jdfalk/manga-organizer/internal/realtime"
	"github.com/jdfalk/manga-organizer/internal/server/middleware"
)

// Version is reported by the health endpoint. Set at build time by cmd.
var Version = "dev"

// Deps are the services the handlers work on.
type Deps struct {
	Store    database.Store
	Importer *importer.Importer
	// Queue may be nil; operation endpoints then answer 503.
	Queue *operations.OperationQueue
	// Hub may be nil; the event stream then answers 503.
	Hub *realtime.EventHub
	// Fs is where directory imports are scanned. Defaults to the OS.
	Fs afero.Fs
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       Deps
	startedAt  time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new server instance
func NewServer(deps Deps) *Server {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(corsMiddleware())
	router.Use(middleware.BasicAuth())
	router.Use(middleware.MaxRequestBodySize(1<<20, config.AppConfig.MaxUploadBytes))

	metrics.Register()

	server := &Server{
		router:    router,
		deps:      deps,
		startedAt: time.Now(),
	}

	server.setupRoutes()
	return server
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("starting server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go s.heartbeat(heartbeatCtx, 5*time.Second)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	if s.deps.Hub != nil {
		s.deps.Hub.SendSystemStatus(map[string]interface{}{"status": "shutdown"})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited")
	return nil
}

// heartbeat publishes process stats to the event stream and the gauges.
func (s *Server) heartbeat(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishStatus()
		}
	}
}

func (s *Server) publishStatus() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()
	metrics.SetMemoryAlloc(mem.Alloc)
	metrics.SetGoroutines(goroutines)

	status := map[string]interface{}{
		"memory_alloc": mem.Alloc,
		"goroutines":   goroutines,
		"uptime":       time.Since(s.startedAt).Round(time.Second).String(),
	}
	if series, err := s.deps.Store.ListSeries(); err == nil {
		metrics.SetSeries(len(series))
		status["series"] = len(series)
	}
	if s.deps.Queue != nil {
		status["active_operations"] = len(s.deps.Queue.ActiveOperations())
	}
	if s.deps.Hub != nil {
		status["clients"] = s.deps.Hub.GetClientCount()
		s.deps.Hub.SendSystemStatus(status)
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/api/health", s.healthCheck)

	uploadLimiter := middleware.NewIPRateLimiter(config.AppConfig.UploadRateLimit, 5)

	api := s.router.Group("/api/v1")
	{
		api.GET("/health", s.healthCheck)
		api.GET("/events", s.streamEvents)
		api.GET("/config", s.getConfig)
		api.GET("/code", s.seriesCode)

		limited := api.Group("", uploadLimiter.Middleware())
		limited.POST("/upload", s.uploadFiles)
		limited.POST("/resolve", s.resolveFilename)

		api.GET("/series", s.listSeries)
		api.GET("/series/search", s.searchSeries)
		api.GET("/series/:id", s.getSeries)
		api.PUT("/series/:id", s.updateSeries)
		api.DELETE("/series/:id", s.deleteSeries)
		api.GET("/series/:id/volumes", s.listSeriesVolumes)
		api.GET("/series/:id/policy", s.getSeriesPolicy)
		api.PUT("/series/:id/policy", s.updateSeriesPolicy)

		api.GET("/volumes/recent", s.recentVolumes)
		api.GET("/volumes/:id", s.getVolume)
		api.DELETE("/volumes/:id", s.deleteVolume)
		api.PUT("/volumes/:id/progress", s.updateVolumeProgress)

		api.GET("/stats", s.getStats)

		api.GET("/matching-logs", s.listMatchingLogs)

		api.GET("/operations", s.listOperations)
		api.POST("/operations/import", s.startDirectoryImport)
		api.GET("/operations/:id", s.getOperation)
		api.DELETE("/operations/:id", s.cancelOperation)
	}

	s.setupStaticFiles()
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck reports liveness and a few counters.
func (s *Server) healthCheck(c *gin.Context) {
	status := "ok"
	data := gin.H{
		"version":        Version,
		"database_type":  config.AppConfig.DatabaseType,
		"oracle_enabled": config.AppConfig.OracleEnabled,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	}

	series, err := s.deps.Store.ListSeries()
	if err != nil {
		status = "degraded"
		data["error"] = err.Error()
	} else {
		data["series"] = len(series)
	}
	if s.deps.Queue != nil {
		data["active_operations"] = len(s.deps.Queue.ActiveOperations())
	}

	c.JSON(http.StatusOK, NewStatusResponse(status, data))
}

// getConfig returns the effective settings with secrets masked.
func (s *Server) getConfig(c *gin.Context) {
	cfg := config.AppConfig
	keys := make([]string, len(cfg.OracleAPIKeys))
	for i, k := range cfg.OracleAPIKeys {
		keys[i] = maskSecret(k)
	}
	c.JSON(http.StatusOK, gin.H{
		"database_type":         cfg.DatabaseType,
		"library_dir":           cfg.LibraryDir,
		"inbox_dir":             cfg.InboxDir,
		"organization_strategy": cfg.OrganizationStrategy,
		"oracle_enabled":        cfg.OracleEnabled,
		"oracle_api_keys":       keys,
		"oracle_model":          cfg.OracleModel,
		"watch_inbox":           cfg.WatchInbox,
		"workers":               cfg.Workers,
		"policy":                cfg.MatcherPolicy(),
	})
}

func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// GetDefaultServerConfig returns default server configuration
func GetDefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         "8484",
		Host:         "localhost",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}
