package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/kendall-kelly/install-intake-api/models"
	"github.com/kendall-kelly/install-intake-api/storage"
)

// FileSubmissionStore keeps every submission in one JSON array on disk.
// Each call reads the whole file and rewrites it after mutating, so it is
// only meant to keep the form working while the database is unavailable.
//
// The mutex serializes callers inside this process. Two processes sharing
// the same file will still lose writes.
type FileSubmissionStore struct {
	path string
	mu   sync.Mutex
}

// OpenFileSubmissionStore prepares path, writing an empty array when the
// file does not exist yet
func OpenFileSubmissionStore(path string) (*FileSubmissionStore, error) {
	if path == "" {
		return nil, &storage.StorageError{Op: "open fallback", Err: errors.New("file path is empty")}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &storage.StorageError{Op: "open fallback", Err: err}
		}
	}

	s := &FileSubmissionStore{path: path}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := s.write(nil); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, &storage.StorageError{Op: "open fallback", Err: err}
	case info.IsDir():
		return nil, &storage.StorageError{Op: "open fallback", Err: fmt.Errorf("%s is a directory", path)}
	default:
		// Fail now rather than on the first request if the file is corrupt
		if _, err := s.read(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Path returns the backing file
func (s *FileSubmissionStore) Path() string {
	return s.path
}

func (s *FileSubmissionStore) Create(ctx context.Context, sub *models.Submission) (WriteResult, error) {
	if err := prepareForCreate(sub); err != nil {
		return WriteResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return WriteResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.read()
	if err != nil {
		return WriteResult{}, err
	}
	for _, existing := range subs {
		if existing.ID == sub.ID {
			return WriteResult{}, &storage.StorageError{
				Op:  "create",
				Err: fmt.Errorf("%w: %s", storage.ErrDuplicateID, sub.ID),
			}
		}
	}

	subs = append(subs, *sub)
	if err := s.write(subs); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{RowsAffected: 1}, nil
}

func (s *FileSubmissionStore) GetAll(ctx context.Context) ([]models.Submission, error) {
	return s.filter(ctx, func(models.Submission) bool { return true })
}

func (s *FileSubmissionStore) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	matches, err := s.filter(ctx, func(sub models.Submission) bool { return sub.ID == id })
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

func (s *FileSubmissionStore) GetByStatus(ctx context.Context, status models.Status) ([]models.Submission, error) {
	return s.filter(ctx, func(sub models.Submission) bool { return sub.Status == status })
}

// UpdateStatus leaves the file untouched when id is unknown
func (s *FileSubmissionStore) UpdateStatus(ctx context.Context, id string, status models.Status) (WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return WriteResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.read()
	if err != nil {
		return WriteResult{}, err
	}

	var affected int64
	stamp := now()
	for i := range subs {
		if subs[i].ID == id {
			subs[i].Status = status
			subs[i].StatusUpdated = &stamp
			affected++
		}
	}
	if affected == 0 {
		return WriteResult{}, nil
	}

	if err := s.write(subs); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{RowsAffected: affected}, nil
}

func (s *FileSubmissionStore) GetStats(ctx context.Context) (models.Stats, error) {
	subs, err := s.filter(ctx, func(models.Submission) bool { return true })
	if err != nil {
		return models.Stats{}, err
	}

	var stats models.Stats
	for _, sub := range subs {
		stats.Add(sub.Status)
	}
	return stats, nil
}

func (s *FileSubmissionStore) filter(ctx context.Context, keep func(models.Submission) bool) ([]models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	subs, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]models.Submission, 0, len(subs))
	for _, sub := range subs {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	models.SortNewestFirst(out)
	return out, nil
}

// read must be called with mu held
func (s *FileSubmissionStore) read() ([]models.Submission, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &storage.StorageError{Op: "read fallback", Err: err}
	}

	var subs []models.Submission
	if len(data) == 0 {
		return subs, nil
	}
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, &storage.StorageError{Op: "read fallback", Err: fmt.Errorf("decode %s: %w", s.path, err)}
	}
	return subs, nil
}

// write replaces the file atomically; mu must be held
func (s *FileSubmissionStore) write(subs []models.Submission) error {
	if subs == nil {
		subs = []models.Submission{}
	}

	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return &storage.StorageError{Op: "write fallback", Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &storage.StorageError{Op: "write fallback", Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &storage.StorageError{Op: "write fallback", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &storage.StorageError{Op: "write fallback", Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return &storage.StorageError{Op: "write fallback", Err: err}
	}
	return nil
}
