package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MockStorage implements document storage on the local filesystem. It exists
// for development and tests; download URLs point back at the server's file
// handler.
type MockStorage struct {
	baseURL string
	rootDir string
}

func NewMockStorage(baseURL, rootDir string) (*MockStorage, error) {
	if rootDir == "" {
		rootDir = "./uploads"
	}
	for _, bucket := range []string{
		BucketCertificationDocuments,
		BucketTestReports,
		BucketConsentForms,
		BucketCounselingReports,
	} {
		if err := os.MkdirAll(filepath.Join(rootDir, bucket), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket directory %s: %w", bucket, err)
		}
	}
	return &MockStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		rootDir: rootDir,
	}, nil
}

func (m *MockStorage) path(bucket, key string) (string, error) {
	// Keys come from uuid-based naming, but refuse traversal anyway.
	cleaned := filepath.Clean(key)
	if strings.Contains(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(m.rootDir, bucket, cleaned), nil
}

func (m *MockStorage) Put(ctx context.Context, bucket, key string, r io.Reader, contentType string) (string, error) {
	path, err := m.path(bucket, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("%s/api/v1/files/%s/%s", m.baseURL, bucket, key), nil
}

func (m *MockStorage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	path, err := m.path(bucket, key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (m *MockStorage) Exists(ctx context.Context, bucket, key string) (bool, int64, error) {
	path, err := m.path(bucket, key)
	if err != nil {
		return false, 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, info.Size(), nil
}

func (m *MockStorage) Delete(ctx context.Context, bucket, key string) error {
	path, err := m.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
