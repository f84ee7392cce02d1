package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/storage"
)

// maxDocumentSize caps uploads at 10 MB.
const maxDocumentSize = 10 << 20

type documentService struct {
	store storage.Storage
}

func NewDocumentService(store storage.Storage) DocumentService {
	return &documentService{store: store}
}

var allowedBuckets = map[string]bool{
	storage.BucketCertificationDocuments: true,
	storage.BucketTestReports:            true,
	storage.BucketConsentForms:           true,
	storage.BucketCounselingReports:      true,
}

func (s *documentService) Upload(ctx context.Context, bucket, fileName, contentType string, size int64, r io.Reader) (*domain.DocumentRef, error) {
	if !allowedBuckets[bucket] {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "unknown document bucket %q", bucket)
	}
	if fileName == "" {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "file name is required")
	}
	// Only PDFs are accepted, across every bucket.
	if contentType != "application/pdf" || !strings.EqualFold(path.Ext(fileName), ".pdf") {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "only PDF documents are accepted")
	}
	if size <= 0 || size > maxDocumentSize {
		return nil, domain.NewWorkflowError(domain.CodeValidation,
			"file size must be between 1 byte and %d MB", maxDocumentSize>>20)
	}

	key := fmt.Sprintf("%s-%s", uuid.New().String(), sanitizeFileName(fileName))
	url, err := s.store.Put(ctx, bucket, key, io.LimitReader(r, maxDocumentSize), contentType)
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	return &domain.DocumentRef{
		FileName:   fileName,
		URL:        url,
		UploadedAt: time.Now(),
	}, nil
}

func sanitizeFileName(name string) string {
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
