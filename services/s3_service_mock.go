package services

import (
	"context"
	"fmt"
	"sync"
)

// MockS3Service is a mock implementation of S3Service for testing
type MockS3Service struct {
	objects map[string][]byte // map of S3 key to object content
	mu      sync.RWMutex

	// UploadErr, when set, is returned by UploadBytes
	UploadErr error
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		objects: make(map[string][]byte),
	}
}

// UploadBytes simulates uploading an object to S3
func (m *MockS3Service) UploadBytes(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}

	stored := make([]byte, len(content))
	copy(stored, content)

	m.mu.Lock()
	m.objects[key] = stored
	m.mu.Unlock()

	return key, nil
}

// GetPresignedURL simulates generating a presigned URL
func (m *MockS3Service) GetPresignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("object not found in mock S3: %s", key)
	}

	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// Objects returns all uploaded objects (for testing assertions)
func (m *MockS3Service) Objects() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent race conditions
	objects := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		objects[k] = v
	}
	return objects
}
