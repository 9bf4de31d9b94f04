package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// ErrObjectNotFound is returned when the requested backup does not exist.
var ErrObjectNotFound = errors.New("backup object not found")

const uploadTimeout = 2 * time.Minute

// GCSObjectStore is the concrete implementation of ObjectStore that
// interacts with Google Cloud Storage.
type GCSObjectStore struct {
	client *storage.Client
}

// NewGCSObjectStore creates a storage client using Application Default
// Credentials (gcloud auth application-default login).
func NewGCSObjectStore(ctx context.Context) (*GCSObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSObjectStore{client: client}, nil
}

// Close releases the underlying client.
func (s *GCSObjectStore) Close() error {
	return s.client.Close()
}

// Upload streams r into the object and finalises it on success.
func (s *GCSObjectStore) Upload(ctx context.Context, bucket, object string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Download streams the object into w.
func (s *GCSObjectStore) Download(ctx context.Context, bucket, object string, w io.Writer) error {
	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gs://%s/%s: %w", bucket, object, ErrObjectNotFound)
	}
	if err != nil {
		return fmt.Errorf("open GCS object reader: %w", err)
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("read GCS object: %w", err)
	}
	return nil
}

var _ ObjectStore = (*GCSObjectStore)(nil)
