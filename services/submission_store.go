package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/install-intake-api/models"
	"github.com/kendall-kelly/install-intake-api/utils"
)

// SubmissionStore is the persistence contract the HTTP layer depends on.
// The SQL repository and the JSON fallback file both implement it.
type SubmissionStore interface {
	// Create inserts exactly one submission
	Create(ctx context.Context, sub *models.Submission) (WriteResult, error)

	// GetAll returns every submission, newest first
	GetAll(ctx context.Context) ([]models.Submission, error)

	// GetByID returns nil and no error when the id is unknown
	GetByID(ctx context.Context, id string) (*models.Submission, error)

	// GetByStatus returns submissions holding status, newest first
	GetByStatus(ctx context.Context, status models.Status) ([]models.Submission, error)

	// UpdateStatus sets status and stamps status_updated. An unknown id is a
	// no-op reported as zero rows affected; callers re-fetch to confirm.
	UpdateStatus(ctx context.Context, id string, status models.Status) (WriteResult, error)

	// GetStats counts submissions per status
	GetStats(ctx context.Context) (models.Stats, error)
}

// WriteResult acknowledges a write
type WriteResult struct {
	RowsAffected int64 `json:"rows_affected"`
}

// NotFoundError reports an absent submission
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("submission %s not found", e.ID)
}

// now stamps timestamps and status_updated; tests freeze it
var now = models.Now

// prepareForCreate fills defaults and guards the invariants shared by every store
func prepareForCreate(sub *models.Submission) error {
	if sub == nil {
		return &utils.ValidationError{Code: utils.CodeInvalidSubmission, Message: "submission is required"}
	}
	if sub.ID == "" {
		return &utils.ValidationError{Code: utils.CodeInvalidSubmission, Message: "submission id is required"}
	}
	if sub.Timestamp == "" {
		sub.Timestamp = now()
	}
	if sub.Status == "" {
		sub.Status = models.StatusPending
	}
	if !sub.Status.IsValid() {
		return utils.InvalidStatusError(string(sub.Status))
	}
	for name, qty := range quantities(sub) {
		if err := utils.CheckQuantity(name, int64(qty)); err != nil {
			return err
		}
	}
	return nil
}

func quantities(sub *models.Submission) map[string]int {
	return map[string]int{
		"nexus_quantity":             sub.NexusQuantity,
		"sensor_power_unit_quantity": sub.SensorPowerUnitQuantity,
		"type1_sensor_quantity":      sub.Type1SensorQuantity,
		"type2_sensor_quantity":      sub.Type2SensorQuantity,
		"shelf_mount_kit_quantity":   sub.ShelfMountKitQuantity,
		"rack_mount_kit_quantity":    sub.RackMountKitQuantity,
		"wifi_repeater_quantity":     sub.WifiRepeaterQuantity,
		"c1_harness_quantity":        sub.C1HarnessQuantity,
	}
}
