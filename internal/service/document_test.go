package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/storage"
)

func newDocumentServiceForTest(t *testing.T) DocumentService {
	t.Helper()
	store, err := storage.NewMockStorage("http://localhost:8080", t.TempDir())
	require.NoError(t, err)
	return NewDocumentService(store)
}

func TestDocumentUpload(t *testing.T) {
	ctx := context.Background()
	body := strings.NewReader("%PDF-1.7 fake")

	t.Run("stores a pdf and returns the reference", func(t *testing.T) {
		svc := newDocumentServiceForTest(t)

		ref, err := svc.Upload(ctx, storage.BucketTestReports, "cmv panel.pdf", "application/pdf", 13, body)
		require.NoError(t, err)
		assert.Equal(t, "cmv panel.pdf", ref.FileName)
		// The stored key is sanitized, so the URL never carries spaces.
		assert.NotContains(t, ref.URL, " ")
		assert.Contains(t, ref.URL, storage.BucketTestReports)
	})

	t.Run("rejects non-pdf content", func(t *testing.T) {
		svc := newDocumentServiceForTest(t)

		_, err := svc.Upload(ctx, storage.BucketTestReports, "report.docx", "application/msword", 13, body)
		assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	})

	t.Run("rejects a pdf content type with mismatched extension", func(t *testing.T) {
		svc := newDocumentServiceForTest(t)

		_, err := svc.Upload(ctx, storage.BucketTestReports, "report.exe", "application/pdf", 13, body)
		assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	})

	t.Run("rejects unknown bucket", func(t *testing.T) {
		svc := newDocumentServiceForTest(t)

		_, err := svc.Upload(ctx, "scratch", "report.pdf", "application/pdf", 13, body)
		assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		svc := newDocumentServiceForTest(t)

		_, err := svc.Upload(ctx, storage.BucketTestReports, "report.pdf", "application/pdf", 11<<20, body)
		assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	})
}
