// Package server implements the conversion service HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alkime/docvoice/internal/config"
	"github.com/alkime/docvoice/internal/extract"
	"github.com/alkime/docvoice/internal/operation"
	"github.com/alkime/docvoice/internal/speech"
	"github.com/alkime/docvoice/internal/storage"
	"github.com/alkime/docvoice/internal/summarize"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// ExtractFunc returns the text content of an uploaded document.
type ExtractFunc func(ctx context.Context, filename string, blob []byte) (string, error)

// Deps are the collaborators the handlers call.
type Deps struct {
	Summarizer  summarize.Summarizer
	Synthesizer speech.Synthesizer
	Store       storage.Store
	// Extract defaults to extract.Text.
	Extract ExtractFunc
}

// Server represents the HTTP server.
type Server struct {
	config *config.Config
	logger *slog.Logger
	router *gin.Engine
	deps   Deps
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if deps.Extract == nil {
		deps.Extract = extract.Extractor{MaxDocumentBytes: cfg.MaxExtractBytes}.Text
	}

	router := gin.Default()

	if cfg.IsProduction() {
		router.TrustedPlatform = gin.PlatformFlyIO
		logger.Debug("Configured trusted platform", "platform", "fly.io")
	}

	server := &Server{
		config: cfg,
		logger: logger,
		router: router,
		deps:   deps,
	}

	setupSecurityMiddleware(router, cfg, logger)
	setupCORS(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the handler for tests and custom listeners.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, s *Server) error {
	//nolint:exhaustruct // defaults are fine for the remaining fields
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "port", s.config.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/upload", s.handleUpload)
	}

	// the conversion routes share their paths with the client
	s.router.POST(operation.ToSpeech.Endpoint(), s.handleToAudio)
	s.router.POST(operation.Summarize.Endpoint(), s.handleSummarise)
	s.router.POST(operation.SummarizeToSpeech.Endpoint(), s.handleSummariseAudio)

	if s.config.StaticDir != "" {
		setupStatic(s.router, s.config.StaticDir, s.logger)
		return
	}

	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "docvoice",
	})
}
