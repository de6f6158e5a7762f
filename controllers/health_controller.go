package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kendall-kelly/install-intake-api/config"
	"github.com/kendall-kelly/install-intake-api/models"
	"github.com/kendall-kelly/install-intake-api/services"
)

// StoreStatus is the view of the store lifecycle the health endpoints need
type StoreStatus interface {
	Store() services.SubmissionStore
	Mode() string
	Backend() config.Backend
	State() string
}

// HealthController serves /health and /api/debug
type HealthController struct {
	status StoreStatus
	logger *zap.Logger
}

// NewHealthController creates a health controller
func NewHealthController(status StoreStatus, logger *zap.Logger) *HealthController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthController{status: status, logger: logger.Named("health")}
}

// Health handles GET /health
func (hc *HealthController) Health(c *gin.Context) {
	database := "Connected"
	if hc.status.Mode() != services.ModeDatabase {
		database = "Fallback mode"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": models.FormatTimestamp(time.Now()),
		"database":  database,
	})
}

// Debug handles GET /api/debug. Failures are reported in the body with a
// 200 so the page stays readable from a browser.
func (hc *HealthController) Debug(c *gin.Context) {
	store := hc.status.Store()
	if store == nil {
		c.JSON(http.StatusOK, gin.H{
			"success":  false,
			"database": "Error",
			"state":    hc.status.State(),
			"error":    "submission store is not ready",
		})
		return
	}

	stats, err := store.GetStats(c.Request.Context())
	if err != nil {
		hc.logger.Warn("Debug check failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"success":  false,
			"database": "Error",
			"state":    hc.status.State(),
			"error":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"database":        "Working",
		"mode":            hc.status.Mode(),
		"backend":         string(hc.status.Backend()),
		"state":           hc.status.State(),
		"submissionCount": stats.Total,
	})
}
