package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/techmatters/terraso-go/pkg/metrics"
)

const (
	signedURLTTL = time.Hour

	defaultMaxDownload = 10_000_000
)

var (
	ErrMultipleFiles = errors.New("uploaded more than one file")
	ErrFileTooLarge  = errors.New("file size exceeds the upload limit")
)

// UploadService stores files in one bucket and returns their public URLs.
type UploadService struct {
	store   ObjectStore
	baseURL string
	// fixedName replaces the file name when set.
	fixedName   string
	client      *http.Client
	maxDownload int64
}

func NewUploadService(store ObjectStore, baseURL string) *UploadService {
	return &UploadService{
		store:       store,
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: 30 * time.Second},
		maxDownload: defaultMaxDownload,
	}
}

// SetMaxDownloadSize caps the bytes UploadURL accepts from a remote server.
func (s *UploadService) SetMaxDownloadSize(n int64) {
	if n > 0 {
		s.maxDownload = n
	}
}

// NewProfileImageService keeps each user's picture at a single path,
// overwritten on every upload.
func NewProfileImageService(store ObjectStore, baseURL string, downloadTimeout time.Duration) *UploadService {
	s := NewUploadService(store, baseURL)
	s.fixedName = "profile-image"
	if downloadTimeout > 0 {
		s.client.Timeout = downloadTimeout
	}
	return s
}

// PathFor is where a file of owner is stored before uniquifying.
func (s *UploadService) PathFor(ownerID, fileName string) string {
	if s.fixedName != "" {
		fileName = s.fixedName
	}
	return ownerID + "/" + fileName
}

// FileURL is the public URL of path. Spaces in the file name are escaped.
func (s *UploadService) FileURL(p string) string {
	dir, file := path.Split(p)
	return s.baseURL + "/" + strings.TrimSuffix(dir, "/") + "/" + strings.ReplaceAll(file, " ", "%20")
}

// PathFromURL reverses FileURL. ok is false for URLs outside this bucket.
func (s *UploadService) PathFromURL(u string) (p string, ok bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	return strings.ReplaceAll(strings.TrimPrefix(u, prefix), "%20", " "), true
}

// uniquify appends _1, _2, ... before the extension until the path is free.
func (s *UploadService) uniquify(ctx context.Context, p string) (string, error) {
	dir, file := path.Split(p)
	ext := path.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%s_%d%s", dir, stem, i, ext)
		exists, err := s.store.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

// UploadFileGetPath stores r and returns its object key. An empty name
// becomes a random hex id.
func (s *UploadService) UploadFileGetPath(ctx context.Context, ownerID string, r io.Reader, size int64, fileName, contentType string) (string, error) {
	if fileName == "" {
		fileName = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	p := s.PathFor(ownerID, fileName)
	if s.fixedName == "" {
		exists, err := s.store.Exists(ctx, p)
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", p, err)
		}
		if exists {
			if p, err = s.uniquify(ctx, p); err != nil {
				return "", fmt.Errorf("failed to pick a free name: %w", err)
			}
		}
	}
	if err := s.store.Put(ctx, p, r, size, contentType); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", p, err)
	}
	if size > 0 {
		metrics.UploadBytes.WithLabelValues(s.store.Bucket()).Add(float64(size))
	}
	return p, nil
}

// UploadFile stores r and returns its public URL.
func (s *UploadService) UploadFile(ctx context.Context, ownerID string, r io.Reader, size int64, fileName, contentType string) (string, error) {
	p, err := s.UploadFileGetPath(ctx, ownerID, r, size, fileName, contentType)
	if err != nil {
		return "", err
	}
	return s.FileURL(p), nil
}

// UploadURL downloads url and stores it for ownerID. Bodies larger than the
// download limit fail with ErrFileTooLarge.
func (s *UploadService) UploadURL(ctx context.Context, ownerID, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %d", url, resp.StatusCode)
	}
	if resp.ContentLength > s.maxDownload {
		return "", ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxDownload+1))
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	if int64(len(data)) > s.maxDownload {
		return "", ErrFileTooLarge
	}
	return s.UploadFile(ctx, ownerID, bytes.NewReader(data), int64(len(data)), "", resp.Header.Get("Content-Type"))
}

func (s *UploadService) Delete(ctx context.Context, p string) error {
	return s.store.Delete(ctx, p)
}

// SignedURL is a temporary download link for a private object.
func (s *UploadService) SignedURL(ctx context.Context, p string) (string, error) {
	return s.store.PresignGet(ctx, p, signedURLTTL)
}

func (s *UploadService) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	return s.store.Get(ctx, p)
}

// CheckUpload rejects more than one file or a file over maxSize.
func CheckUpload(sizes []int64, maxSize int64) error {
	if len(sizes) > 1 {
		return ErrMultipleFiles
	}
	if len(sizes) == 1 && maxSize > 0 && sizes[0] > maxSize {
		return fmt.Errorf("%w of %d bytes", ErrFileTooLarge, maxSize)
	}
	return nil
}
