package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStoragePutGet(t *testing.T) {
	ms, err := NewMockStorage("http://localhost:8080", t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	url, err := ms.Put(ctx, BucketTestReports, "donor-1/report.pdf", strings.NewReader("%PDF-1.4 test"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1/files/test-reports/donor-1/report.pdf", url)

	rc, err := ms.Get(ctx, BucketTestReports, "donor-1/report.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))

	exists, size, err := ms.Exists(ctx, BucketTestReports, "donor-1/report.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(13), size)
}

func TestMockStorageDelete(t *testing.T) {
	ms, err := NewMockStorage("http://localhost:8080", t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = ms.Put(ctx, BucketConsentForms, "c1.pdf", strings.NewReader("x"), "application/pdf")
	require.NoError(t, err)

	require.NoError(t, ms.Delete(ctx, BucketConsentForms, "c1.pdf"))
	exists, _, err := ms.Exists(ctx, BucketConsentForms, "c1.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting again is a no-op.
	assert.NoError(t, ms.Delete(ctx, BucketConsentForms, "c1.pdf"))
}

func TestMockStorageRejectsTraversal(t *testing.T) {
	ms, err := NewMockStorage("http://localhost:8080", t.TempDir())
	require.NoError(t, err)

	_, err = ms.Put(context.Background(), BucketTestReports, "../escape.pdf", strings.NewReader("x"), "application/pdf")
	assert.Error(t, err)
}
