package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
)

const imageCacheControl = "public, max-age=86400"

// BucketStore writes objects into a single Cloud Storage bucket.
type BucketStore struct {
	bucket *gcs.BucketHandle
	name   string
}

var _ ObjectStore = (*BucketStore)(nil)

// NewBucketStore binds client to bucket.
func NewBucketStore(client *gcs.Client, bucket string) (*BucketStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	return &BucketStore{bucket: client.Bucket(bucket), name: bucket}, nil
}

// Put uploads data with a public cache policy.
func (s *BucketStore) Put(ctx context.Context, object, contentType string, data []byte) error {
	w := s.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = imageCacheControl
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.name, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalise gs://%s/%s: %w", s.name, object, err)
	}
	return nil
}

// Delete removes object. A missing object is not an error.
func (s *BucketStore) Delete(ctx context.Context, object string) error {
	err := s.bucket.Object(object).Delete(ctx)
	if err == nil || errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return fmt.Errorf("delete gs://%s/%s: %w", s.name, object, err)
}

// Ping checks that the bucket is reachable.
func (s *BucketStore) Ping(ctx context.Context) error {
	if _, err := s.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %s: %w", s.name, err)
	}
	return nil
}
