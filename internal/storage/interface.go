package storage

import (
	"context"
	"io"
	"time"
)

// PhotoStorage holds maintenance request photos. The mock backend serves files
// from the local filesystem; S3 is used in deployed environments.
type PhotoStorage interface {
	// GeneratePresignedUploadURL returns a URL the client PUTs the photo to.
	GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

// LocalFileStore is implemented by backends that receive uploads through this
// server rather than directly from the client.
type LocalFileStore interface {
	SaveFile(key string, reader io.Reader) error
	ReadFile(key string) (io.ReadCloser, error)
}
