package catalog

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cbg-gallery/portal/internal/square"
)

// fakeStore is an in-memory provider that enforces version tokens and replays idempotency keys.
type fakeStore struct {
	mu sync.Mutex

	nextID     int
	items      map[string]square.CatalogObject
	order      []string
	categories map[string]string
	counts     map[string]int
	replays    map[string]square.UpsertResult

	pageSize int

	upsertKeys   []string
	upserts      []square.CatalogObject
	searches     []string
	countKeys    []string
	countBatches [][]string

	searchErr error
	listErr   error
	countErr  error
	setErr    error
	deleteErr error
	failKey   func(key string) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:      map[string]square.CatalogObject{},
		categories: map[string]string{},
		counts:     map[string]int{},
		replays:    map[string]square.UpsertResult{},
		pageSize:   2,
	}
}

func (f *fakeStore) newID(prefix string) string {
	f.nextID++
	return prefix + strconv.Itoa(f.nextID)
}

func (f *fakeStore) addCategory(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID("CAT")
	f.categories[id] = name
	return id
}

func (f *fakeStore) addItem(title, categoryID, description string, amount int64) square.CatalogObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	itemID := f.newID("ITEM")
	varID := f.newID("VAR")
	item := square.CatalogObject{
		Type:    square.ObjectTypeItem,
		ID:      itemID,
		Version: 1,
		ItemData: &square.ItemData{
			Name:        title,
			Description: description,
			Categories:  []square.ObjectRef{{ID: categoryID}},
			Variations: []square.CatalogObject{{
				Type:    square.ObjectTypeItemVariation,
				ID:      varID,
				Version: 1,
				ItemVariationData: &square.ItemVariationData{
					ItemID:     itemID,
					SKU:        "SKU" + varID,
					PriceMoney: &square.Money{Amount: amount, Currency: "USD"},
				},
			}},
		},
	}
	f.items[itemID] = item
	f.order = append(f.order, itemID)
	return item
}

func (f *fakeStore) ListItems(_ context.Context, cursor string) (square.ListPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return square.ListPage{}, f.listErr
	}
	objects := make([]square.CatalogObject, 0, len(f.order))
	for _, id := range f.order {
		if item, ok := f.items[id]; ok {
			objects = append(objects, item)
		}
	}
	return f.page(objects, cursor), nil
}

func (f *fakeStore) ListCategories(_ context.Context, cursor string) (square.ListPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.categories))
	for id := range f.categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	objects := make([]square.CatalogObject, 0, len(ids))
	for _, id := range ids {
		objects = append(objects, square.CatalogObject{
			Type:         square.ObjectTypeCategory,
			ID:           id,
			CategoryData: &square.CategoryData{Name: f.categories[id]},
		})
	}
	return f.page(objects, cursor), nil
}

func (f *fakeStore) page(objects []square.CatalogObject, cursor string) square.ListPage {
	start, _ := strconv.Atoi(cursor)
	end := start + f.pageSize
	if end >= len(objects) {
		return square.ListPage{Objects: objects[start:]}
	}
	return square.ListPage{Objects: objects[start:end], Cursor: strconv.Itoa(end)}
}

func (f *fakeStore) SearchCategoryByName(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, name)
	if f.searchErr != nil {
		return "", f.searchErr
	}
	for id, existing := range f.categories {
		if existing == name {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeStore) UpsertObject(_ context.Context, key string, object square.CatalogObject) (square.UpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertKeys = append(f.upsertKeys, key)
	f.upserts = append(f.upserts, object)
	if f.failKey != nil {
		if err := f.failKey(key); err != nil {
			return square.UpsertResult{}, err
		}
	}
	if res, ok := f.replays[key]; ok {
		return res, nil
	}

	var (
		res square.UpsertResult
		err error
	)
	switch object.Type {
	case square.ObjectTypeCategory:
		id := f.newID("CAT")
		f.categories[id] = object.CategoryData.Name
		object.ID, res.IDMappings = id, map[string]string{object.ID: id}
		res.Object = object
	case square.ObjectTypeItem:
		if strings.HasPrefix(object.ID, "#") {
			res = f.createItem(object)
		} else {
			res, err = f.updateItem(object)
		}
	default:
		err = &square.APIError{Op: "UpsertObject", Status: http.StatusBadRequest, Details: []square.ErrorDetail{{Category: "INVALID_REQUEST_ERROR", Code: "INVALID_VALUE", Detail: "unsupported type"}}}
	}
	if err != nil {
		return square.UpsertResult{}, err
	}
	f.replays[key] = res
	return res, nil
}

func (f *fakeStore) createItem(object square.CatalogObject) square.UpsertResult {
	mappings := map[string]string{}
	itemID := f.newID("ITEM")
	mappings[object.ID] = itemID
	object.ID = itemID
	object.Version = 1
	data := *object.ItemData
	variations := make([]square.CatalogObject, 0, len(data.Variations))
	for _, v := range data.Variations {
		varID := f.newID("VAR")
		mappings[v.ID] = varID
		v.ID = varID
		v.Version = 1
		vd := *v.ItemVariationData
		vd.ItemID = itemID
		v.ItemVariationData = &vd
		variations = append(variations, v)
	}
	data.Variations = variations
	object.ItemData = &data
	f.items[itemID] = object
	f.order = append(f.order, itemID)
	return square.UpsertResult{Object: object, IDMappings: mappings}
}

func (f *fakeStore) updateItem(object square.CatalogObject) (square.UpsertResult, error) {
	existing, ok := f.items[object.ID]
	if !ok {
		return square.UpsertResult{}, &square.APIError{Op: "UpsertObject", Status: http.StatusNotFound, Details: []square.ErrorDetail{{Code: "NOT_FOUND", Detail: "Item not found"}}}
	}
	if object.Version != existing.Version {
		return square.UpsertResult{}, versionMismatch()
	}
	data := *object.ItemData
	if len(data.Variations) == 0 {
		data.Variations = existing.ItemData.Variations
	} else {
		data.Variations = append([]square.CatalogObject(nil), data.Variations...)
		for i, v := range data.Variations {
			current := existing.ItemData.Variations[0]
			if v.Version != current.Version {
				return square.UpsertResult{}, versionMismatch()
			}
			data.Variations[i].Version = current.Version + 1
		}
	}
	object.ItemData = &data
	object.Version = existing.Version + 1
	f.items[object.ID] = object
	return square.UpsertResult{Object: object}, nil
}

func versionMismatch() error {
	return &square.APIError{
		Op:      "UpsertObject",
		Status:  http.StatusBadRequest,
		Details: []square.ErrorDetail{{Category: "INVALID_REQUEST_ERROR", Code: "VERSION_MISMATCH", Detail: "Object version does not match latest database version."}},
	}
}

func (f *fakeStore) BatchGetInventoryCounts(_ context.Context, ids []string, locationID, cursor string) (square.CountPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ids) > square.MaxCountIDs {
		return square.CountPage{}, fmt.Errorf("batch of %d exceeds limit", len(ids))
	}
	if cursor == "" {
		f.countBatches = append(f.countBatches, append([]string(nil), ids...))
	}
	if f.countErr != nil {
		return square.CountPage{}, f.countErr
	}
	var counts []square.InventoryCount
	for _, id := range ids {
		if qty, ok := f.counts[id]; ok {
			counts = append(counts, square.InventoryCount{VariationID: id, LocationID: locationID, State: square.StateInStock, Quantity: qty})
		}
	}
	start, _ := strconv.Atoi(cursor)
	end := start + f.pageSize
	if end >= len(counts) {
		return square.CountPage{Counts: counts[start:]}, nil
	}
	return square.CountPage{Counts: counts[start:end], Cursor: strconv.Itoa(end)}, nil
}

func (f *fakeStore) SetPhysicalCount(_ context.Context, key string, count square.PhysicalCount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countKeys = append(f.countKeys, key)
	if f.setErr != nil {
		return f.setErr
	}
	f.counts[count.VariationID] = count.Quantity
	return nil
}

func (f *fakeStore) DeleteObject(_ context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, &square.APIError{Op: "DeleteObject", Status: http.StatusNotFound, Details: []square.ErrorDetail{{Code: "NOT_FOUND"}}}
	}
	delete(f.items, id)
	deleted := []string{id}
	for _, v := range item.ItemData.Variations {
		deleted = append(deleted, v.ID)
		delete(f.counts, v.ID)
	}
	return deleted, nil
}

func (f *fakeStore) categoryCreates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, obj := range f.upserts {
		if obj.Type == square.ObjectTypeCategory {
			n++
		}
	}
	return n
}
