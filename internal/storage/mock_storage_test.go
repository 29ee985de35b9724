package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStorageService_RoundTrip(t *testing.T) {
	store, err := NewMockStorageService("http://localhost:8080/", t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "requests/7/leak.jpg"
	require.NoError(t, store.SaveFile(key, strings.NewReader("jpeg-bytes")))

	f, err := store.ReadFile(key)
	require.NoError(t, err)
	body, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, "jpeg-bytes", string(body))

	url, err := store.GeneratePresignedDownloadURL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/api/v1/download/"))
	assert.Contains(t, url, "key=requests%2F7%2Fleak.jpg")

	require.NoError(t, store.DeleteFile(ctx, key))
	_, err = store.ReadFile(key)
	assert.Error(t, err)

	// deleting twice is fine
	assert.NoError(t, store.DeleteFile(ctx, key))
}

func TestMockStorageService_RejectsTraversal(t *testing.T) {
	store, err := NewMockStorageService("http://localhost:8080", t.TempDir())
	require.NoError(t, err)

	err = store.SaveFile("../../etc/passwd", strings.NewReader("x"))
	// Clean("/../../etc/passwd") stays inside the photos directory
	assert.NoError(t, err)

	_, err = store.ReadFile("")
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	assert.Equal(t, 15*time.Minute, Config{}.Expiration())
	assert.Equal(t, time.Hour, Config{PresignedExpiration: "1h"}.Expiration())
	assert.NoError(t, Config{Type: "mock"}.Validate())
	assert.Error(t, Config{Type: "s3"}.Validate())
	assert.Error(t, Config{Type: "gcs"}.Validate())
}
