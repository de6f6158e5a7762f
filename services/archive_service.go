package services

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kendall-kelly/install-intake-api/models"
)

// ArchivePrefix is the bucket folder holding submission snapshots
const ArchivePrefix = "archives"

// ArchiveResult describes one uploaded snapshot
type ArchiveResult struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	URL   string `json:"url,omitempty"`
}

// ArchiveService exports every submission to S3 as a single JSON document
type ArchiveService struct {
	s3     S3Interface
	logger *zap.Logger
	now    func() time.Time
}

// NewArchiveService creates an archive service over an S3 client
func NewArchiveService(s3 S3Interface, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{s3: s3, logger: logger.Named("archive"), now: time.Now}
}

// ArchiveKey names the object for a snapshot taken at t
func ArchiveKey(t time.Time) string {
	return fmt.Sprintf("%s/submissions-%s.json", ArchivePrefix, t.UTC().Format("20060102T150405.000Z"))
}

// Export reads all submissions from store, uploads them newest first and
// returns a presigned link to the snapshot
func (a *ArchiveService) Export(ctx context.Context, store SubmissionStore) (*ArchiveResult, error) {
	at := a.now()
	subs, err := store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	snapshot := struct {
		ExportedAt  string              `json:"exported_at"`
		Count       int                 `json:"count"`
		Submissions []models.Submission `json:"submissions"`
	}{
		ExportedAt:  models.FormatTimestamp(at),
		Count:       len(subs),
		Submissions: subs,
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("archive: encode snapshot: %w", err)
	}

	key, err := a.s3.UploadBytes(ctx, ArchiveKey(at), body, "application/json")
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	result := &ArchiveResult{Key: key, Count: len(subs)}
	url, err := a.s3.GetPresignedURL(ctx, key)
	if err != nil {
		// The snapshot is stored; a missing link is not worth failing over
		a.logger.Warn("Failed to presign archive", zap.String("key", key), zap.Error(err))
	} else {
		result.URL = url
	}

	a.logger.Info("Exported submissions", zap.String("key", key), zap.Int("count", len(subs)))
	return result, nil
}
