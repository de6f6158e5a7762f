package services

import (
	"context"
	"time"

	"github.com/kendall-kelly/install-intake-api/metrics"
	"github.com/kendall-kelly/install-intake-api/models"
)

// InstrumentedStore records a counter and a latency histogram for every
// call on the wrapped store
type InstrumentedStore struct {
	next    SubmissionStore
	backend string
}

// NewInstrumentedStore wraps next, labelling its metrics with backend
func NewInstrumentedStore(next SubmissionStore, backend string) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend}
}

// Unwrap returns the underlying store
func (s *InstrumentedStore) Unwrap() SubmissionStore {
	return s.next
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(s.backend, operation, result).Inc()
	metrics.StoreOperationDuration.WithLabelValues(s.backend, operation).Observe(time.Since(start).Seconds())
}

func (s *InstrumentedStore) Create(ctx context.Context, sub *models.Submission) (res WriteResult, err error) {
	defer func(start time.Time) { s.observe("create", start, err) }(time.Now())
	return s.next.Create(ctx, sub)
}

func (s *InstrumentedStore) GetAll(ctx context.Context) (subs []models.Submission, err error) {
	defer func(start time.Time) { s.observe("get_all", start, err) }(time.Now())
	return s.next.GetAll(ctx)
}

func (s *InstrumentedStore) GetByID(ctx context.Context, id string) (sub *models.Submission, err error) {
	defer func(start time.Time) { s.observe("get_by_id", start, err) }(time.Now())
	return s.next.GetByID(ctx, id)
}

func (s *InstrumentedStore) GetByStatus(ctx context.Context, status models.Status) (subs []models.Submission, err error) {
	defer func(start time.Time) { s.observe("get_by_status", start, err) }(time.Now())
	return s.next.GetByStatus(ctx, status)
}

func (s *InstrumentedStore) UpdateStatus(ctx context.Context, id string, status models.Status) (res WriteResult, err error) {
	defer func(start time.Time) { s.observe("update_status", start, err) }(time.Now())
	return s.next.UpdateStatus(ctx, id, status)
}

func (s *InstrumentedStore) GetStats(ctx context.Context) (stats models.Stats, err error) {
	defer func(start time.Time) { s.observe("get_stats", start, err) }(time.Now())
	return s.next.GetStats(ctx)
}
