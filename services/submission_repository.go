package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/kendall-kelly/install-intake-api/models"
	"github.com/kendall-kelly/install-intake-api/storage"
)

// submissionColumns is the column order used by every statement below
var submissionColumns = []string{
	"id",
	"timestamp",
	"status",
	"status_updated",
	"distributor_name",
	"end_user",
	"install_date",
	"needed_by_date",
	"nexus_quantity",
	"sensor_power_unit_quantity",
	"type1_sensor_quantity",
	"type2_sensor_quantity",
	"shelf_mount_kit_quantity",
	"rack_mount_kit_quantity",
	"wifi_repeater_quantity",
	"c1_harness_quantity",
	"rsm",
	"acknowledgment",
	"invoice_number",
	"additional_notes",
}

var (
	selectColumns = strings.Join(submissionColumns, ", ")
	// Ids are numeric strings; comparing length first keeps "10" ahead of "9"
	// exactly like models.SortNewestFirst
	newestFirst = "ORDER BY timestamp DESC, LENGTH(id) DESC, id DESC"

	insertSubmissionSQL = fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		storage.SubmissionsTable,
		selectColumns,
		strings.TrimSuffix(strings.Repeat("?, ", len(submissionColumns)), ", "),
	)
	selectAllSQL      = fmt.Sprintf("SELECT %s FROM %s %s", selectColumns, storage.SubmissionsTable, newestFirst)
	selectByIDSQL     = fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", selectColumns, storage.SubmissionsTable)
	selectByStatusSQL = fmt.Sprintf("SELECT %s FROM %s WHERE status = ? %s", selectColumns, storage.SubmissionsTable, newestFirst)
	updateStatusSQL   = fmt.Sprintf("UPDATE %s SET status = ?, status_updated = ? WHERE id = ?", storage.SubmissionsTable)
	statsSQL          = fmt.Sprintf(`SELECT
	COUNT(*) AS total,
	COUNT(CASE WHEN status = ? THEN 1 END) AS pending,
	COUNT(CASE WHEN status = ? THEN 1 END) AS approved,
	COUNT(CASE WHEN status = ? THEN 1 END) AS rejected
FROM %s`, storage.SubmissionsTable)
)

// SubmissionRepository is the SQL-backed SubmissionStore. It only talks to
// the storage adapter, so it runs unchanged on PostgreSQL and SQLite.
type SubmissionRepository struct {
	adapter storage.Adapter
}

// NewSubmissionRepository creates a repository over an initialized adapter
func NewSubmissionRepository(adapter storage.Adapter) *SubmissionRepository {
	return &SubmissionRepository{adapter: adapter}
}

// Create inserts one row. A reused id surfaces as a duplicate-key StorageError.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) (WriteResult, error) {
	if err := prepareForCreate(sub); err != nil {
		return WriteResult{}, err
	}

	res, err := r.adapter.Execute(ctx, insertSubmissionSQL, submissionValues(sub)...)
	if err != nil {
		return WriteResult{}, fmt.Errorf("create submission %s: %w", sub.ID, err)
	}
	return WriteResult{RowsAffected: res.RowsAffected}, nil
}

func (r *SubmissionRepository) GetAll(ctx context.Context) ([]models.Submission, error) {
	rows, err := r.adapter.QueryAll(ctx, selectAllSQL)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissionsFromRows(rows)
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	row, found, err := r.adapter.QueryOne(ctx, selectByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return submissionFromRow(row)
}

func (r *SubmissionRepository) GetByStatus(ctx context.Context, status models.Status) ([]models.Submission, error) {
	rows, err := r.adapter.QueryAll(ctx, selectByStatusSQL, string(status))
	if err != nil {
		return nil, fmt.Errorf("list %s submissions: %w", status, err)
	}
	return submissionsFromRows(rows)
}

// UpdateStatus does not check that the id exists
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.Status) (WriteResult, error) {
	res, err := r.adapter.Execute(ctx, updateStatusSQL, string(status), now(), id)
	if err != nil {
		return WriteResult{}, fmt.Errorf("update status of submission %s: %w", id, err)
	}
	return WriteResult{RowsAffected: res.RowsAffected}, nil
}

func (r *SubmissionRepository) GetStats(ctx context.Context) (models.Stats, error) {
	row, found, err := r.adapter.QueryOne(ctx, statsSQL,
		string(models.StatusPending), string(models.StatusApproved), string(models.StatusRejected))
	if err != nil {
		return models.Stats{}, fmt.Errorf("count submissions: %w", err)
	}
	if !found {
		return models.Stats{}, nil
	}

	var stats models.Stats
	for col, dst := range map[string]*int64{
		"total":    &stats.Total,
		"pending":  &stats.Pending,
		"approved": &stats.Approved,
		"rejected": &stats.Rejected,
	} {
		n, err := row.Int(col)
		if err != nil {
			return models.Stats{}, fmt.Errorf("count submissions: %w", err)
		}
		*dst = n
	}
	return stats, nil
}

// submissionValues lists field values in submissionColumns order
func submissionValues(s *models.Submission) []any {
	return []any{
		s.ID,
		s.Timestamp,
		string(s.Status),
		s.StatusUpdated,
		s.DistributorName,
		s.EndUser,
		s.InstallDate,
		s.NeededByDate,
		s.NexusQuantity,
		s.SensorPowerUnitQuantity,
		s.Type1SensorQuantity,
		s.Type2SensorQuantity,
		s.ShelfMountKitQuantity,
		s.RackMountKitQuantity,
		s.WifiRepeaterQuantity,
		s.C1HarnessQuantity,
		s.RSM,
		s.Acknowledgment,
		s.InvoiceNumber,
		s.AdditionalNotes,
	}
}

func submissionsFromRows(rows []storage.Row) ([]models.Submission, error) {
	subs := make([]models.Submission, 0, len(rows))
	for _, row := range rows {
		s, err := submissionFromRow(row)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, nil
}

func submissionFromRow(row storage.Row) (*models.Submission, error) {
	s := &models.Submission{
		ID:              row.Text("id"),
		Timestamp:       row.Text("timestamp"),
		Status:          models.Status(row.Text("status")),
		StatusUpdated:   row.OptionalString("status_updated"),
		DistributorName: row.Text("distributor_name"),
		EndUser:         row.Text("end_user"),
		InstallDate:     row.Text("install_date"),
		NeededByDate:    row.Text("needed_by_date"),
		RSM:             row.Text("rsm"),
		InvoiceNumber:   row.OptionalString("invoice_number"),
		AdditionalNotes: row.OptionalString("additional_notes"),
	}

	for col, dst := range map[string]*int{
		"nexus_quantity":             &s.NexusQuantity,
		"sensor_power_unit_quantity": &s.SensorPowerUnitQuantity,
		"type1_sensor_quantity":      &s.Type1SensorQuantity,
		"type2_sensor_quantity":      &s.Type2SensorQuantity,
		"shelf_mount_kit_quantity":   &s.ShelfMountKitQuantity,
		"rack_mount_kit_quantity":    &s.RackMountKitQuantity,
		"wifi_repeater_quantity":     &s.WifiRepeaterQuantity,
		"c1_harness_quantity":        &s.C1HarnessQuantity,
	} {
		n, err := row.Int(col)
		if err != nil {
			return nil, fmt.Errorf("decode submission %s: %w", s.ID, err)
		}
		*dst = int(n)
	}

	ack, err := row.Bool("acknowledgment")
	if err != nil {
		return nil, fmt.Errorf("decode submission %s: %w", s.ID, err)
	}
	s.Acknowledgment = ack

	return s, nil
}
