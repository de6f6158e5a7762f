package models

import (
	"sort"
	"time"
)

// TimestampFormat is the ISO-8601 layout used for timestamp and status_updated
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Status is the review state of a submission
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatuses lists every status a submission may hold, in display order
var ValidStatuses = []Status{StatusPending, StatusApproved, StatusRejected}

// IsValid reports whether s is one of the enumerated statuses
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Submission represents one equipment-installation request
type Submission struct {
	ID            string  `json:"id"`
	Timestamp     string  `json:"timestamp"`
	Status        Status  `json:"status"`
	StatusUpdated *string `json:"status_updated,omitempty"`

	DistributorName string `json:"distributor_name"`
	EndUser         string `json:"end_user"`
	InstallDate     string `json:"install_date"`
	NeededByDate    string `json:"needed_by_date"`
	RSM             string `json:"rsm"`

	NexusQuantity           int `json:"nexus_quantity"`
	SensorPowerUnitQuantity int `json:"sensor_power_unit_quantity"`
	Type1SensorQuantity     int `json:"type1_sensor_quantity"`
	Type2SensorQuantity     int `json:"type2_sensor_quantity"`
	ShelfMountKitQuantity   int `json:"shelf_mount_kit_quantity"`
	RackMountKitQuantity    int `json:"rack_mount_kit_quantity"`
	WifiRepeaterQuantity    int `json:"wifi_repeater_quantity"`
	C1HarnessQuantity       int `json:"c1_harness_quantity"`

	Acknowledgment  bool    `json:"acknowledgment"`
	InvoiceNumber   *string `json:"invoice_number,omitempty"`
	AdditionalNotes *string `json:"additional_notes,omitempty"`
}

// TableName specifies the table name for the Submission model
func (Submission) TableName() string {
	return "submissions"
}

// Stats holds per-status submission counts
type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Add counts one submission with the given status
func (s *Stats) Add(status Status) {
	s.Total++
	switch status {
	case StatusPending:
		s.Pending++
	case StatusApproved:
		s.Approved++
	case StatusRejected:
		s.Rejected++
	}
}

// FormatTimestamp renders t in the stored ISO-8601 form (always UTC)
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Now returns the current time in the stored ISO-8601 form
func Now() string {
	return FormatTimestamp(time.Now())
}

// NewSubmission stamps a fresh id, creation timestamp and pending status onto s
func NewSubmission(s Submission) *Submission {
	s.ID = NewSubmissionID()
	s.Timestamp = Now()
	s.Status = StatusPending
	s.StatusUpdated = nil
	return &s
}

// SortNewestFirst orders submissions by timestamp descending, breaking ties on id
func SortNewestFirst(subs []Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].Timestamp != subs[j].Timestamp {
			return subs[i].Timestamp > subs[j].Timestamp
		}
		return idGreater(subs[i].ID, subs[j].ID)
	})
}

// idGreater compares numeric ids of possibly different lengths
func idGreater(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
