package snapshot

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// ObjectStore provides an interface for blob storage operations.
// This interface enables mocking and testing of snapshot uploads.
type ObjectStore interface {
	// Upload writes data under the given object name.
	Upload(ctx context.Context, objectName string, data []byte) error

	// Download reads the bytes stored under the given object name.
	Download(ctx context.Context, objectName string) ([]byte, error)
}

// GCSObjectStore stores objects in a Google Cloud Storage bucket. It assumes
// Application Default Credentials are configured.
type GCSObjectStore struct {
	bucket string
}

// NewGCSObjectStore creates an object store backed by the given bucket.
func NewGCSObjectStore(bucket string) *GCSObjectStore {
	return &GCSObjectStore{bucket: bucket}
}

// Upload writes data to gs://<bucket>/<objectName>.
func (s *GCSObjectStore) Upload(ctx context.Context, objectName string, data []byte) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %q: %w", objectName, err)
	}
	return nil
}

// Download reads gs://<bucket>/<objectName>.
func (s *GCSObjectStore) Download(ctx context.Context, objectName string) ([]byte, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", objectName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object bytes: %w", err)
	}
	return data, nil
}
