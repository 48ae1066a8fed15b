package square

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxCountIDs is the largest number of object ids accepted by one count request.
const MaxCountIDs = 100

// BatchGetInventoryCounts returns one page of IN_STOCK counts for the variations at locationID.
func (c *Client) BatchGetInventoryCounts(ctx context.Context, variationIDs []string, locationID, cursor string) (CountPage, error) {
	if len(variationIDs) == 0 {
		return CountPage{}, nil
	}
	if len(variationIDs) > MaxCountIDs {
		return CountPage{}, fmt.Errorf("square BatchGetInventoryCounts: %d ids exceeds limit of %d", len(variationIDs), MaxCountIDs)
	}
	req := countsRequest{
		CatalogObjectIDs: variationIDs,
		States:           []string{StateInStock},
		Cursor:           strings.TrimSpace(cursor),
	}
	if locationID = strings.TrimSpace(locationID); locationID != "" {
		req.LocationIDs = []string{locationID}
	}
	var resp countsResponse
	err := c.do(ctx, call{
		op:        "BatchGetInventoryCounts",
		method:    http.MethodPost,
		path:      "/v2/inventory/counts/batch-retrieve",
		body:      req,
		retryable: true,
	}, &resp)
	if err != nil {
		return CountPage{}, err
	}
	counts, err := resp.decode()
	if err != nil {
		return CountPage{}, err
	}
	return CountPage{Counts: counts, Cursor: resp.Cursor}, nil
}

// SetPhysicalCount records an absolute IN_STOCK quantity for a variation.
func (c *Client) SetPhysicalCount(ctx context.Context, idempotencyKey string, count PhysicalCount) error {
	if strings.TrimSpace(idempotencyKey) == "" {
		return fmt.Errorf("square SetPhysicalCount: idempotency key is required")
	}
	if strings.TrimSpace(count.VariationID) == "" {
		return fmt.Errorf("square SetPhysicalCount: variation id is required")
	}
	if count.Quantity < 0 {
		return fmt.Errorf("square SetPhysicalCount: quantity must not be negative")
	}
	occurred := count.OccurredAt
	if occurred.IsZero() {
		occurred = c.now()
	}
	var resp changesResponse
	return c.do(ctx, call{
		op:     "SetPhysicalCount",
		method: http.MethodPost,
		path:   "/v2/inventory/changes/batch-create",
		body: changesRequest{
			IdempotencyKey: idempotencyKey,
			Changes: []inventoryChange{{
				Type: changePhysicalCount,
				PhysicalCount: physicalCountEntry{
					CatalogObjectID: count.VariationID,
					State:           StateInStock,
					LocationID:      count.LocationID,
					Quantity:        strconv.Itoa(count.Quantity),
					OccurredAt:      occurred.UTC().Format(time.RFC3339),
				},
			}},
		},
	}, &resp)
}
