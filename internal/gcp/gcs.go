package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"examflow/internal/models"
)

// GCSStore is the Cloud Storage implementation of the blob store. Folder ids
// map to object prefixes inside one bucket, and file ids are full object
// names.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a GCS-backed store over a single bucket.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket must be provided to create a GCS store")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// List enumerates objects under a prefix. The object name doubles as the file
// id.
func (s *GCSStore) List(ctx context.Context, folderID string) ([]models.SourceItem, error) {
	prefix := strings.TrimSuffix(folderID, "/") + "/"
	query := &storage.Query{Prefix: prefix}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)

	var items []models.SourceItem
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		name := path.Base(attrs.Name)
		if name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		items = append(items, models.SourceItem{
			ID:   attrs.Name,
			Name: name,
			Kind: models.KindOf(name),
		})
	}
}

// Fetch reads an object's content.
func (s *GCSStore) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(fileID).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", s.bucket, fileID, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", s.bucket, fileID, err)
	}
	return data, nil
}

// Upload writes an object under the folder prefix, retrying transient write
// failures with exponential backoff.
func (s *GCSStore) Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error) {
	objectName := strings.TrimSuffix(folderID, "/") + "/" + name

	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
			defer cancel()

			w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(writeCtx)
			w.ContentType = mimeType
			if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
				_ = w.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("failed to finalize GCS write: %w", err)
			}
			return nil
		}()
		if err == nil {
			return objectName, nil
		}

		lastErr = err
		slog.Warn("Upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("upload for %s failed after all retries: %w", objectName, lastErr)
}

// Delete removes an object by name.
func (s *GCSStore) Delete(ctx context.Context, fileID string) error {
	if err := s.client.Bucket(s.bucket).Object(fileID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", s.bucket, fileID, err)
	}
	return nil
}
