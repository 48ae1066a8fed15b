package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/cbg-gallery/portal/internal/platform/firestore"
	"github.com/cbg-gallery/portal/internal/repositories"
)

const defaultBlobCollection = "portal_blobs"

type blobDocument struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// BlobRepository stores each blob as a single Firestore document keyed by the blob key.
type BlobRepository struct {
	docs  *pfirestore.DocumentStore[blobDocument]
	clock func() time.Time
}

var _ repositories.BlobRepository = (*BlobRepository)(nil)

// BlobOption customises the blob repository.
type BlobOption func(*blobOptions)

type blobOptions struct {
	collection string
	clock      func() time.Time
}

// WithBlobCollection overrides the collection holding blob documents.
func WithBlobCollection(name string) BlobOption {
	return func(o *blobOptions) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			o.collection = trimmed
		}
	}
}

// WithBlobClock injects the clock used for updatedAt stamps.
func WithBlobClock(clock func() time.Time) BlobOption {
	return func(o *blobOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewBlobRepository constructs a Firestore-backed blob repository.
func NewBlobRepository(provider *pfirestore.Provider, opts ...BlobOption) (*BlobRepository, error) {
	if provider == nil {
		return nil, errors.New("blob repository: firestore provider is required")
	}
	options := blobOptions{collection: defaultBlobCollection, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	decoder := func(snap *firestore.DocumentSnapshot) (blobDocument, error) {
		var doc blobDocument
		if err := snap.DataTo(&doc); err != nil {
			return blobDocument{}, err
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = snap.UpdateTime
		}
		return doc, nil
	}

	return &BlobRepository{
		docs:  pfirestore.NewDocumentStore[blobDocument](provider, options.collection, decoder),
		clock: options.clock,
	}, nil
}

// Get loads the blob stored under key; a missing document yields ok=false.
func (r *BlobRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if r == nil || r.docs == nil {
		return "", false, errors.New("blob repository not initialised")
	}
	doc, err := r.docs.Get(ctx, strings.TrimSpace(key))
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return "", false, nil
		}
		return "", false, err
	}
	return doc.Data.Value, true, nil
}

// Set overwrites the blob stored under key.
func (r *BlobRepository) Set(ctx context.Context, key, value string) error {
	if r == nil || r.docs == nil {
		return errors.New("blob repository not initialised")
	}
	return r.docs.Put(ctx, strings.TrimSpace(key), blobDocument{
		Value:     value,
		UpdatedAt: r.clock().UTC(),
	})
}
