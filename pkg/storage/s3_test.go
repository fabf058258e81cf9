package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/config"
)

// fakeS3 answers path-style object requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := r.URL.Path
	switch r.Method {
	case http.MethodHead, http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := &config.TerrasoConfig{
		AWSRegion:          "us-east-2",
		AWSEndpoint:        srv.URL,
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "test",
	}
	client, err := NewS3Client(context.Background(), cfg)
	require.NoError(t, err)
	store := NewS3Store(client, "bucket")
	ctx := context.Background()

	exists, err := store.Exists(ctx, "u1/file.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	svc := NewUploadService(store, "https://bucket")
	url, err := svc.UploadFile(ctx, "u1", strings.NewReader("hello"), 5, "file.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket/u1/file.txt", url)

	exists, err = store.Exists(ctx, "u1/file.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Get(ctx, "u1/file.txt")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello", string(data))

	signed, err := store.PresignGet(ctx, "u1/file.txt", signedURLTTL)
	require.NoError(t, err)
	assert.Contains(t, signed, "X-Amz-Signature")

	require.NoError(t, store.Delete(ctx, "u1/file.txt"))
	exists, err = store.Exists(ctx, "u1/file.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}
