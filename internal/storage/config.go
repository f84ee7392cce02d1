package storage

import (
	"context"
	"fmt"
)

// Config selects and parameterizes the storage backend.
type Config struct {
	Type string `yaml:"type"` // "mock" or "s3"

	// Mock backend.
	MockDir string `yaml:"mock_dir"`
	BaseURL string `yaml:"base_url"` // server base URL for mock download links

	// S3 backend.
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"` // optional, for MinIO
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// New constructs the backend named by cfg.Type.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "mock":
		return NewMockStorage(cfg.BaseURL, cfg.MockDir)
	case "s3":
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
