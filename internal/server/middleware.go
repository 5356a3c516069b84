package server

import (
	"log/slog"
	"time"

	"github.com/alkime/docvoice/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// setupSecurityMiddleware configures and applies security middleware to the router.
func setupSecurityMiddleware(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	stsSeconds := int64(0)
	if cfg.IsProduction() {
		stsSeconds = int64(cfg.HSTSMaxAge)
	}

	secureMiddleware := secure.New(secure.Config{
		STSSeconds:            stsSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: config.BuildCSP(cfg.CSPMode),
		IsDevelopment:         !cfg.IsProduction(),
	})
	router.Use(secureMiddleware)

	logger.Debug("Configured security middleware",
		"hsts_enabled", cfg.IsProduction(),
		"csp_mode", cfg.CSPMode,
	)
}

// setupCORS lets the browser front end on another origin call the API.
func setupCORS(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	if len(cfg.AllowedOrigins) == 0 {
		return
	}

	//nolint:exhaustruct // remaining CORS options keep their defaults
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Disposition", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	logger.Debug("Configured CORS", "origins", cfg.AllowedOrigins)
}

// setupStatic serves a bundled web front end from dir.
func setupStatic(router *gin.Engine, dir string, logger *slog.Logger) {
	router.Use(static.Serve("/", static.LocalFile(dir, true)))
	logger.Debug("Serving static files", "dir", dir)
}
