package storage

import (
	"context"
	"fmt"
	"time"

	"rentops-backend/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3StorageService struct {
	svc           *s3.Client
	presignClient *s3.PresignClient
	bucket        string
}

func NewS3StorageService(ctx context.Context, cfg Config) (*S3StorageService, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	svc := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3StorageService{
		svc:           svc,
		presignClient: s3.NewPresignClient(svc),
		bucket:        cfg.Bucket,
	}, nil
}

func (s *S3StorageService) GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (string, error) {
	logger.ExternalServiceCall("s3", "PresignPutObject", "key", key)

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiresIn))
	logger.ExternalServiceResult("s3", "PresignPutObject", err, "key", key)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3StorageService) GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	logger.ExternalServiceCall("s3", "PresignGetObject", "key", key)

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	logger.ExternalServiceResult("s3", "PresignGetObject", err, "key", key)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3StorageService) DeleteFile(ctx context.Context, key string) error {
	logger.ExternalServiceCall("s3", "DeleteObject", "key", key)

	_, err := s.svc.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	logger.ExternalServiceResult("s3", "DeleteObject", err, "key", key)
	return err
}

// New builds the backend selected by cfg.
func New(ctx context.Context, cfg Config) (PhotoStorage, error) {
	if cfg.Type == "s3" {
		return NewS3StorageService(ctx, cfg)
	}
	return NewMockStorageService(cfg.BaseURL, cfg.MockDir)
}
