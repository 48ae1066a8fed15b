package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeObjects struct {
	objects  map[string][]byte
	types    map[string]string
	writeErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) Read(_ context.Context, bucket, object string) ([]byte, error) {
	data, ok := f.objects[bucket+"/"+object]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeObjects) Write(_ context.Context, bucket, object, contentType string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.objects[bucket+"/"+object] = append([]byte(nil), data...)
	f.types[bucket+"/"+object] = contentType
	return nil
}

func (f *fakeObjects) Copy(_ context.Context, bucket, src, dst string) error {
	data, ok := f.objects[bucket+"/"+src]
	if !ok {
		return ErrObjectNotFound
	}
	f.objects[bucket+"/"+dst] = data
	return nil
}

func TestBlobStoreGetMissingKey(t *testing.T) {
	store, err := NewBlobStore(newFakeObjects(), "gallery-bucket")
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	value, ok, err := store.Get(context.Background(), "archived_items")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || value != "" {
		t.Fatalf("expected missing blob, got ok=%v value=%q", ok, value)
	}
}

func TestBlobStoreSetThenGet(t *testing.T) {
	objects := newFakeObjects()
	store, err := NewBlobStore(objects, "gallery-bucket", WithPrefix("portal"))
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, "archived_items", `[{"archiveId":"a1"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := store.Get(ctx, "archived_items")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if value != `[{"archiveId":"a1"}]` {
		t.Fatalf("unexpected value %q", value)
	}
	if got := objects.types["gallery-bucket/portal/archived_items.json"]; got != "application/json" {
		t.Fatalf("expected json content type, got %q", got)
	}
}

func TestBlobStoreHistoryKeepsPreviousValue(t *testing.T) {
	objects := newFakeObjects()
	now := time.Date(2025, 4, 2, 10, 15, 0, 0, time.UTC)
	store, err := NewBlobStore(objects, "gallery-bucket", WithHistory(), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, "archived_items", "[]"); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := store.Set(ctx, "archived_items", `[{"archiveId":"a1"}]`); err != nil {
		t.Fatalf("second Set: %v", err)
	}
	snapshot, ok := objects.objects["gallery-bucket/history/archived_items/20250402T101500.000000000Z.json"]
	if !ok {
		t.Fatalf("expected history snapshot to be written")
	}
	if string(snapshot) != "[]" {
		t.Fatalf("unexpected snapshot %q", snapshot)
	}
}

func TestBlobStoreWrapsWriteFailure(t *testing.T) {
	objects := newFakeObjects()
	objects.writeErr = errors.New("quota exceeded")
	store, err := NewBlobStore(objects, "gallery-bucket")
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	err = store.Set(context.Background(), "archived_items", "[]")
	if err == nil || !errors.Is(err, objects.writeErr) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
}
