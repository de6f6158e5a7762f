package storage

import (
	"context"
	"fmt"
)

// SubmissionsTable is the single table owned by this service
const SubmissionsTable = "submissions"

// createSubmissionsTable is valid for both PostgreSQL and SQLite
const createSubmissionsTable = `
CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	status TEXT DEFAULT 'pending',
	status_updated TEXT,
	distributor_name TEXT NOT NULL,
	end_user TEXT NOT NULL,
	install_date TEXT NOT NULL,
	needed_by_date TEXT NOT NULL,
	nexus_quantity INTEGER DEFAULT 0,
	sensor_power_unit_quantity INTEGER DEFAULT 0,
	type1_sensor_quantity INTEGER DEFAULT 0,
	type2_sensor_quantity INTEGER DEFAULT 0,
	shelf_mount_kit_quantity INTEGER DEFAULT 0,
	rack_mount_kit_quantity INTEGER DEFAULT 0,
	wifi_repeater_quantity INTEGER DEFAULT 0,
	c1_harness_quantity INTEGER DEFAULT 0,
	rsm TEXT NOT NULL,
	acknowledgment BOOLEAN DEFAULT FALSE,
	invoice_number TEXT,
	additional_notes TEXT
)`

const createStatusIndex = `
CREATE INDEX IF NOT EXISTS idx_submissions_status_timestamp
	ON submissions (status, timestamp)`

// EnsureSchema creates the submissions table and its index when absent.
// Running it against an existing schema changes nothing; it never migrates.
func EnsureSchema(ctx context.Context, adapter Adapter) error {
	for _, stmt := range []string{createSubmissionsTable, createStatusIndex} {
		if _, err := adapter.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("ensure %s schema: %w", SubmissionsTable, err)
		}
	}
	return nil
}
