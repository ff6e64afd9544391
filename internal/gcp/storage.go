package gcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"cloud.google.com/go/storage"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// BlobStore downloads original document files from GCS. Uploads over the
// platform's history have lived under a few different key layouts, so a
// download tries the candidate keys in order before failing.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// NewBlobStore wraps a storage client for the given bucket.
func NewBlobStore(client *storage.Client, bucket string) *BlobStore {
	return &BlobStore{client: client, bucket: bucket}
}

// candidateKeys returns the storage keys to try for a stored file path,
// most specific first.
func (b *BlobStore) candidateKeys(filePath, orgID string) []string {
	keys := []string{filePath}
	if orgID != "" {
		keys = append(keys, path.Join(orgID, filePath))
	}
	keys = append(keys, path.Join("uploads", filePath))
	return keys
}

// Download fetches the blob for filePath, trying alternate key layouts. It
// returns the content plus the key that actually resolved.
func (b *BlobStore) Download(ctx context.Context, filePath, orgID string) ([]byte, string, error) {
	var lastErr error
	for _, key := range b.candidateKeys(filePath, orgID) {
		data, err := b.readObject(ctx, key)
		if err == nil {
			return data, key, nil
		}
		if err == storage.ErrObjectNotExist {
			slog.Debug("Blob not found at candidate key, trying next.", "key", key)
			lastErr = err
			continue
		}
		return nil, "", fmt.Errorf("failed to download gs://%s/%s: %w", b.bucket, key, err)
	}
	return nil, "", fmt.Errorf("no blob found for %s in bucket %s: %w", filePath, b.bucket, lastErr)
}

func (b *BlobStore) readObject(ctx context.Context, key string) ([]byte, error) {
	reader, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object: %w", err)
	}
	return data, nil
}

// ObjectStore reads objects from arbitrary buckets, for event-driven
// handlers where the bucket name arrives in the event payload.
type ObjectStore struct {
	client *storage.Client
}

func NewObjectStore(client *storage.Client) *ObjectStore {
	return &ObjectStore{client: client}
}

func (o *ObjectStore) Fetch(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := o.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}
