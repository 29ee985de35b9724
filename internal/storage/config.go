package storage

import (
	"fmt"
	"time"
)

// Config selects and configures the photo storage backend.
type Config struct {
	Type                string `yaml:"type"` // "mock" or "s3"
	MockDir             string `yaml:"mock_dir"`
	BaseURL             string `yaml:"base_url"`
	PresignedExpiration string `yaml:"presigned_expiration"` // e.g. "15m"
	Bucket              string `yaml:"bucket"`
	Region              string `yaml:"region"`
	Endpoint            string `yaml:"endpoint"` // LocalStack or MinIO
}

// Expiration parses PresignedExpiration, defaulting to 15 minutes.
func (c Config) Expiration() time.Duration {
	d, err := time.ParseDuration(c.PresignedExpiration)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

func (c Config) Validate() error {
	switch c.Type {
	case "", "mock":
		return nil
	case "s3":
		if c.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3 storage")
		}
		return nil
	}
	return fmt.Errorf("unknown storage type %q", c.Type)
}
