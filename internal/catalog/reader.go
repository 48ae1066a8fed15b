package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cbg-gallery/portal/internal/domain"
	"github.com/cbg-gallery/portal/internal/square"
)

const (
	countBatchSize          = square.MaxCountIDs
	defaultCountConcurrency = 4
	// maxListPages bounds cursor loops against a provider that keeps returning cursors.
	maxListPages = 10000
)

// ReaderDeps bundles the collaborators required to construct a Reader.
type ReaderDeps struct {
	Store            ArtifactStore
	LocationID       string
	CountConcurrency int
}

// Reader lists the live catalog in the local record shape.
type Reader struct {
	store       ArtifactStore
	locationID  string
	concurrency int
}

// NewReader validates deps and returns a Reader.
func NewReader(deps ReaderDeps) (*Reader, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: artifact store is required", ErrConfiguration)
	}
	concurrency := deps.CountConcurrency
	if concurrency <= 0 {
		concurrency = defaultCountConcurrency
	}
	return &Reader{
		store:       deps.Store,
		locationID:  strings.TrimSpace(deps.LocationID),
		concurrency: concurrency,
	}, nil
}

// ListInventory returns every live item as a record, filtered by artist when filter is set.
// Any listing failure fails the whole read.
func (r *Reader) ListInventory(ctx context.Context, filter string) ([]domain.ArtworkRecord, error) {
	listed, err := r.listAll(ctx, r.store.ListItems)
	if err != nil {
		return nil, err
	}
	items := listed[:0]
	for _, obj := range listed {
		if obj.Type == square.ObjectTypeItem && obj.ItemData != nil {
			items = append(items, obj)
		}
	}
	categoryObjects, err := r.listAll(ctx, r.store.ListCategories)
	if err != nil {
		return nil, err
	}
	categories := make(map[string]string, len(categoryObjects))
	for _, obj := range categoryObjects {
		if obj.CategoryData != nil {
			categories[obj.ID] = obj.CategoryData.Name
		}
	}

	var variationIDs []string
	for _, item := range items {
		for _, variation := range item.ItemData.Variations {
			variationIDs = append(variationIDs, variation.ID)
		}
	}
	counts, err := r.inventoryCounts(ctx, variationIDs)
	if err != nil {
		return nil, err
	}

	records := make([]domain.ArtworkRecord, 0, len(items))
	for _, item := range items {
		rec := toArtworkRecord(item, categories, counts)
		if MatchesArtist(rec, filter) {
			records = append(records, rec)
		}
	}
	return records, nil
}

type listFunc func(ctx context.Context, cursor string) (square.ListPage, error)

// listAll follows the cursor until it is exhausted, skipping deleted objects.
func (r *Reader) listAll(ctx context.Context, list listFunc) ([]square.CatalogObject, error) {
	var (
		objects []square.CatalogObject
		cursor  string
	)
	for page := 0; page < maxListPages; page++ {
		res, err := list(ctx, cursor)
		if err != nil {
			return nil, mapProviderError(err)
		}
		for _, obj := range res.Objects {
			if !obj.IsDeleted {
				objects = append(objects, obj)
			}
		}
		if res.Cursor == "" || res.Cursor == cursor {
			return objects, nil
		}
		cursor = res.Cursor
	}
	return nil, fmt.Errorf("%w: listing exceeded %d pages", ErrProviderUnavailable, maxListPages)
}

// inventoryCounts fetches IN_STOCK counts at the configured location in batches of at most 100
// ids. Batches run concurrently; variations without a count are absent from the map.
func (r *Reader) inventoryCounts(ctx context.Context, variationIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(variationIDs))
	if len(variationIDs) == 0 {
		return counts, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for start := 0; start < len(variationIDs); start += countBatchSize {
		end := start + countBatchSize
		if end > len(variationIDs) {
			end = len(variationIDs)
		}
		batch := variationIDs[start:end]
		g.Go(func() error {
			batchCounts, err := r.countBatch(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for id, qty := range batchCounts {
				counts[id] += qty
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *Reader) countBatch(ctx context.Context, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	var cursor string
	for page := 0; page < maxListPages; page++ {
		res, err := r.store.BatchGetInventoryCounts(ctx, ids, r.locationID, cursor)
		if err != nil {
			return nil, mapProviderError(err)
		}
		for _, c := range res.Counts {
			if c.State != square.StateInStock {
				continue
			}
			if r.locationID != "" && c.LocationID != "" && c.LocationID != r.locationID {
				continue
			}
			counts[c.VariationID] += c.Quantity
		}
		if res.Cursor == "" || res.Cursor == cursor {
			return counts, nil
		}
		cursor = res.Cursor
	}
	return nil, fmt.Errorf("%w: inventory counts exceeded %d pages", ErrProviderUnavailable, maxListPages)
}

// FindItem returns the live record for providerItemID.
func (r *Reader) FindItem(ctx context.Context, providerItemID string) (domain.ArtworkRecord, error) {
	records, err := r.ListInventory(ctx, "")
	if err != nil {
		return domain.ArtworkRecord{}, err
	}
	for _, rec := range records {
		if rec.ProviderItemID == providerItemID {
			return rec, nil
		}
	}
	return domain.ArtworkRecord{}, fmt.Errorf("%w: item %s", ErrNotFound, providerItemID)
}
