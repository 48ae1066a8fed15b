package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/cbg-gallery/portal/internal/square"
)

func newTestReader(t *testing.T, store *fakeStore) *Reader {
	t.Helper()
	r, err := NewReader(ReaderDeps{Store: store, LocationID: "LOC1", CountConcurrency: 2})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestListInventoryFollowsCursors(t *testing.T) {
	store := newFakeStore()
	painting := store.addCategory("Jane Doe - Painting")
	prints := store.addCategory("Ana Reyes - Print")
	var variations []string
	for i := 0; i < 5; i++ {
		category := painting
		if i%2 == 1 {
			category = prints
		}
		item := store.addItem(fmt.Sprintf("Work %d", i), category, "Medium: Oil\nDimensions: 10 x 12", int64(1000+i))
		variations = append(variations, item.ItemData.Variations[0].ID)
	}
	store.counts[variations[0]] = 4
	store.counts[variations[3]] = 1

	records, err := newTestReader(t, store).ListInventory(context.Background(), "")
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	first := records[0]
	if first.Title != "Work 0" || first.ArtistName != "Jane Doe" || first.Type != "Painting" {
		t.Fatalf("unexpected first record %#v", first)
	}
	if first.Quantity != 4 || first.Medium != "Oil" || first.Height != "10" || first.Width != "12" {
		t.Fatalf("unexpected decoded fields %#v", first)
	}
	if records[1].ArtistName != "Ana Reyes" || records[3].Quantity != 1 || records[2].Quantity != 0 {
		t.Fatalf("unexpected records %#v", records)
	}
}

func TestListInventoryFiltersByArtist(t *testing.T) {
	store := newFakeStore()
	jane := store.addCategory("Jane Doe - Painting")
	doherty := store.addCategory("Jane Doherty - Print")
	ana := store.addCategory("Ana Reyes - Glass")
	store.addItem("A", jane, "", 100)
	store.addItem("B", doherty, "", 100)
	store.addItem("C", ana, "", 100)

	records, err := newTestReader(t, store).ListInventory(context.Background(), "jane d")
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	if len(records) != 2 || records[0].Title != "A" || records[1].Title != "B" {
		t.Fatalf("unexpected filtered records %#v", records)
	}
}

func TestInventoryCountsAreBatched(t *testing.T) {
	store := newFakeStore()
	store.pageSize = 50
	category := store.addCategory("Jane Doe - Print")
	var last string
	for i := 0; i < 250; i++ {
		item := store.addItem(fmt.Sprintf("Print %d", i), category, "", 500)
		last = item.ItemData.Variations[0].ID
		store.counts[last] = 1
	}

	records, err := newTestReader(t, store).ListInventory(context.Background(), "")
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	if len(records) != 250 {
		t.Fatalf("expected 250 records, got %d", len(records))
	}
	if len(store.countBatches) != 3 {
		t.Fatalf("expected 3 count batches, got %d", len(store.countBatches))
	}
	total := 0
	for _, batch := range store.countBatches {
		if len(batch) > square.MaxCountIDs {
			t.Fatalf("batch of %d exceeds the limit", len(batch))
		}
		total += len(batch)
	}
	if total != 250 {
		t.Fatalf("expected every variation to be counted once, got %d", total)
	}
	for _, rec := range records {
		if rec.Quantity != 1 {
			t.Fatalf("expected quantity 1 for %s, got %d", rec.Title, rec.Quantity)
		}
	}
}

func TestListInventoryFailuresAreFatal(t *testing.T) {
	store := newFakeStore()
	store.addItem("A", store.addCategory("Jane Doe"), "", 100)
	store.listErr = &square.APIError{Op: "ListItems", Status: http.StatusServiceUnavailable}

	if _, err := newTestReader(t, store).ListInventory(context.Background(), ""); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	store.listErr = nil
	store.countErr = &square.APIError{Op: "BatchGetInventoryCounts", Status: http.StatusBadGateway}
	if _, err := newTestReader(t, store).ListInventory(context.Background(), ""); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected count failure to fail the read, got %v", err)
	}
}

func TestFindItem(t *testing.T) {
	store := newFakeStore()
	item := store.addItem("A", store.addCategory("Jane Doe"), "", 100)
	reader := newTestReader(t, store)

	rec, err := reader.FindItem(context.Background(), item.ID)
	if err != nil || rec.ProviderItemID != item.ID || rec.ArtistName != "Jane Doe" {
		t.Fatalf("unexpected FindItem result %#v, %v", rec, err)
	}
	if _, err := reader.FindItem(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
