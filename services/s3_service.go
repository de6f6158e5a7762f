package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/kendall-kelly/install-intake-api/config"
)

// S3Interface defines the interface for S3 operations
type S3Interface interface {
	UploadBytes(ctx context.Context, key string, content []byte, contentType string) (string, error)
	GetPresignedURL(ctx context.Context, key string) (string, error)
}

// S3Service handles all S3-related operations
type S3Service struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3Service creates an S3 client from the AWS settings in cfg. Static
// credentials are used when both keys are set; otherwise the default AWS
// credential chain applies.
func NewS3Service(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*S3Service, error) {
	if cfg.AWSS3Bucket == "" {
		return nil, errors.New("AWS_S3_BUCKET is not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Service{
		client: s3.NewFromConfig(awsConfig),
		bucket: cfg.AWSS3Bucket,
		logger: logger.Named("s3"),
	}, nil
}

// UploadBytes stores content under key and returns the key
func (s *S3Service) UploadBytes(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Info("Uploaded object", zap.String("key", key), zap.Int("bytes", len(content)))
	return key, nil
}

// GetPresignedURL generates a presigned URL for accessing a private S3 object
// The URL expires after 1 hour
func (s *S3Service) GetPresignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	presignClient := s3.NewPresignClient(s.client)
	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = time.Hour
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}
