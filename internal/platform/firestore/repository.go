package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
)

// Document is a decoded portal document together with its last write time.
type Document[T any] struct {
	ID         string
	Data       T
	UpdateTime time.Time
}

// Decoder turns a snapshot into the stored value. A nil Decoder uses Firestore struct tags.
type Decoder[T any] func(snap *firestore.DocumentSnapshot) (T, error)

// DocumentStore reads and overwrites whole documents in one portal collection, such as the
// archive blobs. Errors are wrapped with WrapError so callers can detect a missing document.
type DocumentStore[T any] struct {
	provider   *Provider
	collection string
	decode     Decoder[T]
}

// NewDocumentStore binds a store to collection.
func NewDocumentStore[T any](provider *Provider, collection string, decode Decoder[T]) *DocumentStore[T] {
	if decode == nil {
		decode = func(snap *firestore.DocumentSnapshot) (T, error) {
			var value T
			err := snap.DataTo(&value)
			return value, err
		}
	}
	return &DocumentStore[T]{
		provider:   provider,
		collection: strings.TrimSpace(collection),
		decode:     decode,
	}
}

// Put replaces the document stored under id.
func (s *DocumentStore[T]) Put(ctx context.Context, id string, value T) error {
	doc, err := s.doc(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Set(ctx, value); err != nil {
		return WrapError(s.op("put"), err)
	}
	return nil
}

// Get loads the document stored under id.
func (s *DocumentStore[T]) Get(ctx context.Context, id string) (Document[T], error) {
	doc, err := s.doc(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(s.op("get"), err)
	}
	value, err := s.decode(snap)
	if err != nil {
		return Document[T]{}, fmt.Errorf("%s: decode %s: %w", s.op("get"), id, err)
	}
	return Document[T]{ID: snap.Ref.ID, Data: value, UpdateTime: snap.UpdateTime}, nil
}

func (s *DocumentStore[T]) doc(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	switch {
	case s == nil || s.provider == nil:
		return nil, WrapError(s.op("doc"), errors.New("firestore: provider is nil"))
	case s.collection == "":
		return nil, WrapError(s.op("doc"), errors.New("firestore: collection name is required"))
	case strings.TrimSpace(id) == "":
		return nil, WrapError(s.op("doc"), errors.New("firestore: document id is required"))
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(s.collection).Doc(id), nil
}

func (s *DocumentStore[T]) op(action string) string {
	if s == nil || s.collection == "" {
		return "firestore." + action
	}
	return s.collection + "." + action
}
