package storage

import (
	"context"
	"io"
)

// Bucket names for the four document classes the platform stores. Every
// upload lands in exactly one of these.
const (
	BucketCertificationDocuments = "certification-documents"
	BucketTestReports            = "test-reports"
	BucketConsentForms           = "consent-forms"
	BucketCounselingReports      = "counseling-reports"
)

// Storage abstracts the document store. Two implementations exist: a local
// filesystem mock for development and an S3-compatible backend for
// production.
type Storage interface {
	// Put writes the object and returns a stable download URL for it.
	Put(ctx context.Context, bucket, key string, r io.Reader, contentType string) (string, error)

	// Get opens the object for reading.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Exists reports whether the object is present and its size.
	Exists(ctx context.Context, bucket, key string) (bool, int64, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error
}
