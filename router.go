package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kendall-kelly/install-intake-api/config"
	"github.com/kendall-kelly/install-intake-api/controllers"
	"github.com/kendall-kelly/install-intake-api/metrics"
	"github.com/kendall-kelly/install-intake-api/middleware"
	"github.com/kendall-kelly/install-intake-api/services"
)

// readinessTimeout bounds the database ping behind /ready
const readinessTimeout = time.Second

// setupRouter wires every route over an initialized store lifecycle.
// archive may be nil when S3 is not configured.
func setupRouter(cfg *config.Config, lifecycle *services.StoreLifecycle, archive *services.ArchiveService, logger *zap.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:   []string{middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	submissions := controllers.NewSubmissionController(lifecycle.Store(), archive, logger)
	health := controllers.NewHealthController(lifecycle, logger)

	router.GET("/health", health.Health)

	api := router.Group("/api")
	{
		api.POST("/submit", submissions.Submit)
		api.GET("/debug", health.Debug)
	}

	admin := api.Group("/submissions")
	var requireAdmin gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.AuthEnabled() {
		ensureToken, err := middleware.EnsureValidToken(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("configure auth: %w", err)
		}
		admin.Use(ensureToken)
		requireAdmin = middleware.RequireScope(cfg.AdminScope)
		logger.Info("Admin routes require Auth0 tokens", zap.String("scope", cfg.AdminScope))
	} else {
		logger.Warn("AUTH0_DOMAIN not set, admin routes are unauthenticated")
	}
	{
		admin.GET("", submissions.List)
		admin.GET("/stats", submissions.Stats)
		admin.POST("/archive", requireAdmin, submissions.Archive)
		admin.GET("/:id", submissions.Get)
		admin.PUT("/:id/status", requireAdmin, submissions.UpdateStatus)
	}

	checks := healthcheck.NewHandler()
	checks.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	checks.AddReadinessCheck("submission-store", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
		defer cancel()
		return lifecycle.Check(ctx)
	})
	router.GET("/live", gin.WrapH(checks))
	router.GET("/ready", gin.WrapH(checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.StaticDir != "" {
		if err := mountStatic(router, cfg.StaticDir); err != nil {
			return nil, err
		}
	}

	return router, nil
}

// mountStatic serves the form and the admin page. Unknown /api paths keep
// returning JSON.
func mountStatic(router *gin.Engine, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("static dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("static dir: %s is not a directory", dir)
	}

	router.StaticFile("/admin", filepath.Join(dir, "admin.html"))

	files := http.FileServer(http.Dir(dir))
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	})
	return nil
}
