package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/kendall-kelly/install-intake-api/models"
	"github.com/kendall-kelly/install-intake-api/storage"
)

// MockSubmissionStore is an in-memory SubmissionStore for testing
type MockSubmissionStore struct {
	mu          sync.RWMutex
	submissions map[string]models.Submission

	// Err, when set, is returned by every operation
	Err error
}

// NewMockSubmissionStore creates an empty mock store
func NewMockSubmissionStore() *MockSubmissionStore {
	return &MockSubmissionStore{
		submissions: make(map[string]models.Submission),
	}
}

// FailWith makes every following call return err wrapped as a StorageError
func (m *MockSubmissionStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.Err = nil
		return
	}
	m.Err = &storage.StorageError{Op: "mock", Err: err}
}

func (m *MockSubmissionStore) failure() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Err
}

func (m *MockSubmissionStore) Create(ctx context.Context, sub *models.Submission) (WriteResult, error) {
	if err := m.failure(); err != nil {
		return WriteResult{}, err
	}
	if err := prepareForCreate(sub); err != nil {
		return WriteResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.submissions[sub.ID]; exists {
		return WriteResult{}, &storage.StorageError{Op: "create", Err: fmt.Errorf("%w: %s", storage.ErrDuplicateID, sub.ID)}
	}
	m.submissions[sub.ID] = *sub
	return WriteResult{RowsAffected: 1}, nil
}

func (m *MockSubmissionStore) GetAll(ctx context.Context) ([]models.Submission, error) {
	return m.list(func(models.Submission) bool { return true })
}

func (m *MockSubmissionStore) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (m *MockSubmissionStore) GetByStatus(ctx context.Context, status models.Status) ([]models.Submission, error) {
	return m.list(func(s models.Submission) bool { return s.Status == status })
}

func (m *MockSubmissionStore) UpdateStatus(ctx context.Context, id string, status models.Status) (WriteResult, error) {
	if err := m.failure(); err != nil {
		return WriteResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return WriteResult{}, nil
	}
	stamp := now()
	sub.Status = status
	sub.StatusUpdated = &stamp
	m.submissions[id] = sub
	return WriteResult{RowsAffected: 1}, nil
}

func (m *MockSubmissionStore) GetStats(ctx context.Context) (models.Stats, error) {
	subs, err := m.list(func(models.Submission) bool { return true })
	if err != nil {
		return models.Stats{}, err
	}
	var stats models.Stats
	for _, s := range subs {
		stats.Add(s.Status)
	}
	return stats, nil
}

func (m *MockSubmissionStore) list(keep func(models.Submission) bool) ([]models.Submission, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]models.Submission, 0, len(m.submissions))
	for _, s := range m.submissions {
		if keep(s) {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()
	models.SortNewestFirst(out)
	return out, nil
}

// Len returns the number of stored submissions (for testing assertions)
func (m *MockSubmissionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.submissions)
}
