package square

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ListItems returns one page of ITEM objects.
func (c *Client) ListItems(ctx context.Context, cursor string) (ListPage, error) {
	return c.list(ctx, "ListItems", ObjectTypeItem, cursor)
}

// ListCategories returns one page of CATEGORY objects.
func (c *Client) ListCategories(ctx context.Context, cursor string) (ListPage, error) {
	return c.list(ctx, "ListCategories", ObjectTypeCategory, cursor)
}

func (c *Client) list(ctx context.Context, op, objectType, cursor string) (ListPage, error) {
	query := url.Values{"types": []string{objectType}}
	if cursor = strings.TrimSpace(cursor); cursor != "" {
		query.Set("cursor", cursor)
	}
	var resp listResponse
	err := c.do(ctx, call{
		op:        op,
		method:    http.MethodGet,
		path:      "/v2/catalog/list",
		query:     query,
		retryable: true,
	}, &resp)
	if err != nil {
		return ListPage{}, err
	}
	if err := validateObjects(resp.Objects); err != nil {
		return ListPage{}, err
	}
	return ListPage{Objects: resp.Objects, Cursor: resp.Cursor}, nil
}

// SearchCategoryByName returns the id of the category whose name equals name exactly, or ""
// when none exists.
func (c *Client) SearchCategoryByName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	var resp searchResponse
	err := c.do(ctx, call{
		op:     "SearchCategoryByName",
		method: http.MethodPost,
		path:   "/v2/catalog/search",
		body: searchRequest{
			ObjectTypes: []string{ObjectTypeCategory},
			Query: searchQuery{ExactQuery: exactQuery{
				AttributeName:  "name",
				AttributeValue: name,
			}},
			Limit: 10,
		},
		retryable: true,
	}, &resp)
	if err != nil {
		return "", err
	}
	if err := validateObjects(resp.Objects); err != nil {
		return "", err
	}
	for _, obj := range resp.Objects {
		if obj.Type == ObjectTypeCategory && !obj.IsDeleted && obj.CategoryData.Name == name {
			return obj.ID, nil
		}
	}
	return "", nil
}

// UpsertObject creates or updates a catalog object graph under the idempotency key.
func (c *Client) UpsertObject(ctx context.Context, idempotencyKey string, object CatalogObject) (UpsertResult, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return UpsertResult{}, fmt.Errorf("square UpsertObject: idempotency key is required")
	}
	var resp upsertResponse
	err := c.do(ctx, call{
		op:     "UpsertObject",
		method: http.MethodPost,
		path:   "/v2/catalog/object",
		body:   upsertRequest{IdempotencyKey: idempotencyKey, Object: object},
	}, &resp)
	if err != nil {
		return UpsertResult{}, err
	}
	if resp.CatalogObject == nil {
		return UpsertResult{}, fmt.Errorf("%w: UpsertObject: missing catalog_object", ErrInvalidResponse)
	}
	if err := validateObject(*resp.CatalogObject); err != nil {
		return UpsertResult{}, fmt.Errorf("%w: UpsertObject: %v", ErrInvalidResponse, err)
	}
	mappings := make(map[string]string, len(resp.IDMappings))
	for _, m := range resp.IDMappings {
		if m.ClientObjectID != "" && m.ObjectID != "" {
			mappings[m.ClientObjectID] = m.ObjectID
		}
	}
	return UpsertResult{Object: *resp.CatalogObject, IDMappings: mappings}, nil
}

// DeleteObject deletes a catalog object and returns every id removed with it (an item takes
// its variations along).
func (c *Client) DeleteObject(ctx context.Context, objectID string) ([]string, error) {
	objectID = strings.TrimSpace(objectID)
	if objectID == "" {
		return nil, fmt.Errorf("square DeleteObject: object id is required")
	}
	var resp deleteResponse
	err := c.do(ctx, call{
		op:     "DeleteObject",
		method: http.MethodDelete,
		path:   "/v2/catalog/object/" + url.PathEscape(objectID),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.DeletedObjectIDs, nil
}
