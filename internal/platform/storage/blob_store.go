package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

// ErrObjectNotFound is returned by ObjectIO implementations when the object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectIO is the slice of Cloud Storage used by BlobStore.
type ObjectIO interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error
	Copy(ctx context.Context, bucket, src, dst string) error
}

// BlobStoreOption customises BlobStore behaviour.
type BlobStoreOption func(*BlobStore)

// WithPrefix places every blob object under prefix.
func WithPrefix(prefix string) BlobStoreOption {
	return func(s *BlobStore) {
		s.prefix = prefix
	}
}

// WithHistory keeps a timestamped copy of the previous object each time a key is overwritten.
func WithHistory() BlobStoreOption {
	return func(s *BlobStore) {
		s.history = true
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) BlobStoreOption {
	return func(s *BlobStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// BlobStore keeps named string blobs as JSON objects in a Cloud Storage bucket.
type BlobStore struct {
	io      ObjectIO
	bucket  string
	prefix  string
	history bool
	now     func() time.Time
}

// NewBlobStore constructs a bucket-backed blob store.
func NewBlobStore(objects ObjectIO, bucket string, opts ...BlobStoreOption) (*BlobStore, error) {
	if objects == nil {
		return nil, errors.New("storage blob store: object io is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage blob store: bucket is required")
	}
	store := &BlobStore{io: objects, bucket: bucket, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Get returns the stored value. A missing object yields ok=false.
func (s *BlobStore) Get(ctx context.Context, key string) (string, bool, error) {
	name, err := ObjectName(s.prefix, key)
	if err != nil {
		return "", false, err
	}
	data, err := s.io.Read(ctx, s.bucket, name)
	if errors.Is(err, ErrObjectNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage blob store: read %s: %w", name, err)
	}
	return string(data), true, nil
}

// Set replaces the stored value for key.
func (s *BlobStore) Set(ctx context.Context, key, value string) error {
	name, err := ObjectName(s.prefix, key)
	if err != nil {
		return err
	}
	if s.history {
		historyName, err := HistoryObjectName(s.prefix, key, s.now())
		if err != nil {
			return err
		}
		if err := s.io.Copy(ctx, s.bucket, name, historyName); err != nil && !errors.Is(err, ErrObjectNotFound) {
			return fmt.Errorf("storage blob store: snapshot %s: %w", name, err)
		}
	}
	if err := s.io.Write(ctx, s.bucket, name, "application/json", []byte(value)); err != nil {
		return fmt.Errorf("storage blob store: write %s: %w", name, err)
	}
	return nil
}

// GCSObjects implements ObjectIO on a Cloud Storage client.
type GCSObjects struct {
	client *gcs.Client
}

// NewGCSObjects wraps the provided Cloud Storage client.
func NewGCSObjects(client *gcs.Client) (*GCSObjects, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	return &GCSObjects{client: client}, nil
}

// Read downloads the object contents.
func (g *GCSObjects) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// Write uploads data, replacing any existing object.
func (g *GCSObjects) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	writer := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// Copy duplicates src to dst within the bucket.
func (g *GCSObjects) Copy(ctx context.Context, bucket, src, dst string) error {
	if src == dst {
		return nil
	}
	handle := g.client.Bucket(bucket)
	_, err := handle.Object(dst).CopierFrom(handle.Object(src)).Run(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}
