package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kendall-kelly/install-intake-api/metrics"
	"github.com/kendall-kelly/install-intake-api/middleware"
	"github.com/kendall-kelly/install-intake-api/models"
	"github.com/kendall-kelly/install-intake-api/services"
	"github.com/kendall-kelly/install-intake-api/utils"
)

// SubmitRequest represents the installation form. It binds from JSON or from
// a url-encoded form post.
type SubmitRequest struct {
	DistributorName string         `json:"distributorName" form:"distributorName"`
	EndUser         string         `json:"endUser" form:"endUser"`
	InstallDate     string         `json:"installDate" form:"installDate"`
	NeededByDate    string         `json:"neededByDate" form:"neededByDate"`
	RSM             string         `json:"rsm" form:"rsm"`
	Acknowledgment  utils.FlexBool `json:"acknowledgment" form:"acknowledgment"`

	NexusQuantity           utils.FlexInt `json:"nexusQuantity" form:"nexusQuantity"`
	SensorPowerUnitQuantity utils.FlexInt `json:"sensorPowerUnitQuantity" form:"sensorPowerUnitQuantity"`
	Type1SensorQuantity     utils.FlexInt `json:"type1SensorQuantity" form:"type1SensorQuantity"`
	Type2SensorQuantity     utils.FlexInt `json:"type2SensorQuantity" form:"type2SensorQuantity"`
	ShelfMountKitQuantity   utils.FlexInt `json:"shelfMountKitQuantity" form:"shelfMountKitQuantity"`
	RackMountKitQuantity    utils.FlexInt `json:"rackMountKitQuantity" form:"rackMountKitQuantity"`
	WifiRepeaterQuantity    utils.FlexInt `json:"wifiRepeaterQuantity" form:"wifiRepeaterQuantity"`
	C1HarnessQuantity       utils.FlexInt `json:"c1HarnessQuantity" form:"c1HarnessQuantity"`

	InvoiceNumber   string `json:"invoiceNumber" form:"invoiceNumber"`
	AdditionalNotes string `json:"additionalNotes" form:"additionalNotes"`
}

// UpdateStatusRequest represents the body of PUT /api/submissions/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status" form:"status"`
}

// Validate reports missing required fields (in form order) and out of range quantities
func (r *SubmitRequest) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"distributorName", r.DistributorName},
		{"installDate", r.InstallDate},
		{"neededByDate", r.NeededByDate},
		{"rsm", r.RSM},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if !r.Acknowledgment {
		missing = append(missing, "acknowledgment")
	}
	if len(missing) > 0 {
		return utils.MissingFieldsError(missing)
	}

	for _, q := range []struct {
		name  string
		value utils.FlexInt
	}{
		{"nexusQuantity", r.NexusQuantity},
		{"sensorPowerUnitQuantity", r.SensorPowerUnitQuantity},
		{"type1SensorQuantity", r.Type1SensorQuantity},
		{"type2SensorQuantity", r.Type2SensorQuantity},
		{"shelfMountKitQuantity", r.ShelfMountKitQuantity},
		{"rackMountKitQuantity", r.RackMountKitQuantity},
		{"wifiRepeaterQuantity", r.WifiRepeaterQuantity},
		{"c1HarnessQuantity", r.C1HarnessQuantity},
	} {
		if err := utils.CheckQuantity(q.name, int64(q.value)); err != nil {
			return err
		}
	}
	return nil
}

// Submission converts the form into an unsaved submission
func (r *SubmitRequest) Submission() models.Submission {
	return models.Submission{
		DistributorName:         strings.TrimSpace(r.DistributorName),
		EndUser:                 strings.TrimSpace(r.EndUser),
		InstallDate:             strings.TrimSpace(r.InstallDate),
		NeededByDate:            strings.TrimSpace(r.NeededByDate),
		RSM:                     strings.TrimSpace(r.RSM),
		Acknowledgment:          bool(r.Acknowledgment),
		NexusQuantity:           int(r.NexusQuantity),
		SensorPowerUnitQuantity: int(r.SensorPowerUnitQuantity),
		Type1SensorQuantity:     int(r.Type1SensorQuantity),
		Type2SensorQuantity:     int(r.Type2SensorQuantity),
		ShelfMountKitQuantity:   int(r.ShelfMountKitQuantity),
		RackMountKitQuantity:    int(r.RackMountKitQuantity),
		WifiRepeaterQuantity:    int(r.WifiRepeaterQuantity),
		C1HarnessQuantity:       int(r.C1HarnessQuantity),
		InvoiceNumber:           optional(r.InvoiceNumber),
		AdditionalNotes:         optional(r.AdditionalNotes),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// SubmissionController serves the form and review endpoints over one store
type SubmissionController struct {
	store   services.SubmissionStore
	archive *services.ArchiveService
	logger  *zap.Logger
}

// NewSubmissionController creates a controller. archive may be nil when S3
// is not configured.
func NewSubmissionController(store services.SubmissionStore, archive *services.ArchiveService, logger *zap.Logger) *SubmissionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionController{store: store, archive: archive, logger: logger.Named("submissions")}
}

// Submit handles POST /api/submit
func (sc *SubmissionController) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		metrics.SubmissionsRejectedTotal.WithLabelValues(utils.CodeInvalidBody).Inc()
		respondError(c, http.StatusBadRequest, utils.CodeInvalidBody, "Invalid request data")
		return
	}

	if err := req.Validate(); err != nil {
		sc.handleError(c, err, "Internal server error")
		return
	}

	sub := models.NewSubmission(req.Submission())
	if _, err := sc.store.Create(c.Request.Context(), sub); err != nil {
		sc.handleError(c, err, "Internal server error")
		return
	}

	metrics.SubmissionsReceivedTotal.Inc()
	sc.log(c).Info("Submission received",
		zap.String("submission_id", sub.ID),
		zap.String("distributor", sub.DistributorName))

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Form submitted successfully",
		"submissionId": sub.ID,
	})
}

// List handles GET /api/submissions, optionally filtered by ?status=
func (sc *SubmissionController) List(c *gin.Context) {
	var (
		subs []models.Submission
		err  error
	)

	if raw, ok := c.GetQuery("status"); ok {
		status, perr := utils.ParseStatus(raw)
		if perr != nil {
			sc.handleError(c, perr, "Failed to fetch submissions")
			return
		}
		subs, err = sc.store.GetByStatus(c.Request.Context(), status)
	} else {
		subs, err = sc.store.GetAll(c.Request.Context())
	}
	if err != nil {
		sc.handleError(c, err, "Failed to fetch submissions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": subs,
	})
}

// Get handles GET /api/submissions/:id
func (sc *SubmissionController) Get(c *gin.Context) {
	id := c.Param("id")

	sub, err := sc.store.GetByID(c.Request.Context(), id)
	if err != nil {
		sc.handleError(c, err, "Failed to fetch submission")
		return
	}
	if sub == nil {
		sc.handleError(c, &services.NotFoundError{ID: id}, "Failed to fetch submission")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": sub,
	})
}

// UpdateStatus handles PUT /api/submissions/:id/status
func (sc *SubmissionController) UpdateStatus(c *gin.Context) {
	id := c.Param("id")

	var req UpdateStatusRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, utils.CodeInvalidBody, "Invalid request data")
		return
	}

	status, err := utils.ParseStatus(req.Status)
	if err != nil {
		sc.handleError(c, err, "Internal server error")
		return
	}

	ctx := c.Request.Context()
	if _, err := sc.store.UpdateStatus(ctx, id, status); err != nil {
		sc.handleError(c, err, "Internal server error")
		return
	}

	// The store does not report unknown ids, so confirm by re-reading
	sub, err := sc.store.GetByID(ctx, id)
	if err != nil {
		sc.handleError(c, err, "Internal server error")
		return
	}
	if sub == nil {
		sc.handleError(c, &services.NotFoundError{ID: id}, "Internal server error")
		return
	}

	fields := []zap.Field{zap.String("submission_id", id), zap.String("status", string(status))}
	if subject, err := middleware.GetSubject(c); err == nil {
		fields = append(fields, zap.String("reviewer", subject))
	}
	sc.log(c).Info("Submission status updated", fields...)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Status updated successfully",
		"submission": sub,
	})
}

// Stats handles GET /api/submissions/stats
func (sc *SubmissionController) Stats(c *gin.Context) {
	stats, err := sc.store.GetStats(c.Request.Context())
	if err != nil {
		sc.handleError(c, err, "Failed to fetch statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// Archive handles POST /api/submissions/archive
func (sc *SubmissionController) Archive(c *gin.Context) {
	if sc.archive == nil {
		respondError(c, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "Archive export is not configured")
		return
	}

	result, err := sc.archive.Export(c.Request.Context(), sc.store)
	if err != nil {
		sc.handleError(c, err, "Failed to export submissions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     result.Key,
		"count":   result.Count,
		"url":     result.URL,
	})
}

// handleError maps the error taxonomy onto HTTP responses. Only storage and
// unexpected errors are logged; their details never reach the client.
func (sc *SubmissionController) handleError(c *gin.Context, err error, serverMessage string) {
	var verr *utils.ValidationError
	var nf *services.NotFoundError

	switch {
	case errors.As(err, &verr):
		metrics.SubmissionsRejectedTotal.WithLabelValues(verr.Code).Inc()
		respondError(c, http.StatusBadRequest, verr.Code, verr.Message)
	case errors.As(err, &nf):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Submission not found")
	default:
		sc.log(c).Error(serverMessage, zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", serverMessage)
	}
}

func (sc *SubmissionController) log(c *gin.Context) *zap.Logger {
	return sc.logger.With(zap.String("request_id", middleware.GetRequestID(c)))
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"code":    code,
		"error":   message,
	})
}
