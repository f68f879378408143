package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotBackupPublish(t *testing.T) {
	var mu sync.Mutex
	uploads := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploads[r.Method+" "+r.URL.Path] = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	uploader, err := NewS3Uploader(context.Background(), S3Config{
		Bucket:          "backups",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, srv.Client())
	require.NoError(t, err)

	backup := NewSnapshotBackup(uploader, "/observer/")
	snap := sampleSnapshot()
	assert.Equal(t, "observer/2025/10/09/085320.json", backup.ObjectKey(snap))

	require.NoError(t, backup.Publish(context.Background(), snap))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, uploads["PUT /backups/observer/2025/10/09/085320.json"], "STA-1")
	assert.Contains(t, uploads["PUT /backups/observer/latest.json"], "STA-1")
}

func TestSnapshotBackupUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	uploader, err := NewS3Uploader(context.Background(), S3Config{
		Bucket: "backups", Region: "us-east-1", Endpoint: srv.URL, AccessKeyID: "k", SecretAccessKey: "s",
	}, srv.Client())
	require.NoError(t, err)

	err = NewSnapshotBackup(uploader, "").Publish(context.Background(), sampleSnapshot())
	assert.Error(t, err)
}
