package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backupBucket struct {
	objects map[string][]byte
}

func (b *backupBucket) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := b.objects[key]
	return ok, nil
}

func (b *backupBucket) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *backupBucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *backupBucket) Delete(ctx context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func (b *backupBucket) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://backups.example/" + key, nil
}

func (b *backupBucket) Bucket() string { return "backups" }

func TestRestoreArgs(t *testing.T) {
	args := restoreArgs("postgres://terraso@localhost/terraso", "/backup/nightly.dump")
	assert.Equal(t, []string{
		"--clean", "--if-exists", "--no-owner",
		"-d", "postgres://terraso@localhost/terraso",
		"/backup/nightly.dump",
	}, args)
}

func TestFetchBackup(t *testing.T) {
	bucket := &backupBucket{objects: map[string][]byte{"backups/nightly.dump": []byte("PGDMP")}}
	dir := t.TempDir()

	local, err := fetchBackup(context.Background(), bucket, "backups/nightly.dump", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nightly.dump"), local)
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "PGDMP", string(data))

	_, err = fetchBackup(context.Background(), bucket, "backups/missing.dump", dir)
	assert.Error(t, err)
}
