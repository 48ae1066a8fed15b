package square

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Catalog object types.
const (
	ObjectTypeItem          = "ITEM"
	ObjectTypeItemVariation = "ITEM_VARIATION"
	ObjectTypeCategory      = "CATEGORY"
)

// Pricing, inventory state and change constants used by the portal.
const (
	PricingTypeFixed    = "FIXED_PRICING"
	PricingTypeVariable = "VARIABLE_PRICING"
	StateInStock        = "IN_STOCK"
	changePhysicalCount = "PHYSICAL_COUNT"
)

// CatalogObject is the provider's generic graph node. Exactly one of the data fields is set,
// matching Type.
type CatalogObject struct {
	Type                  string             `json:"type"`
	ID                    string             `json:"id"`
	Version               int64              `json:"version,omitempty"`
	IsDeleted             bool               `json:"is_deleted,omitempty"`
	PresentAtAllLocations *bool              `json:"present_at_all_locations,omitempty"`
	ItemData              *ItemData          `json:"item_data,omitempty"`
	ItemVariationData     *ItemVariationData `json:"item_variation_data,omitempty"`
	CategoryData          *CategoryData      `json:"category_data,omitempty"`
}

// ItemData holds item attributes.
type ItemData struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	DescriptionHTML      string          `json:"description_html,omitempty"`
	DescriptionPlaintext string          `json:"description_plaintext,omitempty"`
	CategoryID           string          `json:"category_id,omitempty"`
	Categories           []ObjectRef     `json:"categories,omitempty"`
	ReportingCategory    *ObjectRef      `json:"reporting_category,omitempty"`
	ProductType          string          `json:"product_type,omitempty"`
	Variations           []CatalogObject `json:"variations,omitempty"`
}

// ObjectRef links to another catalog object by id.
type ObjectRef struct {
	ID string `json:"id"`
}

// ItemVariationData holds variation attributes.
type ItemVariationData struct {
	ItemID         string `json:"item_id,omitempty"`
	Name           string `json:"name,omitempty"`
	SKU            string `json:"sku,omitempty"`
	PricingType    string `json:"pricing_type,omitempty"`
	PriceMoney     *Money `json:"price_money,omitempty"`
	TrackInventory *bool  `json:"track_inventory,omitempty"`
}

// CategoryData holds category attributes.
type CategoryData struct {
	Name string `json:"name"`
}

// Money is an amount in the currency's minor units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ListPage is one page of a catalog listing.
type ListPage struct {
	Objects []CatalogObject
	Cursor  string
}

// UpsertResult is the object returned by a create-or-update call, with the mapping from
// client-supplied temporary ids (prefixed "#") to provider ids.
type UpsertResult struct {
	Object     CatalogObject
	IDMappings map[string]string
}

// InventoryCount is the decoded stock level of one variation at one location.
type InventoryCount struct {
	VariationID string
	LocationID  string
	State       string
	Quantity    int
}

// CountPage is one page of inventory counts.
type CountPage struct {
	Counts []InventoryCount
	Cursor string
}

// PhysicalCount asserts an absolute stock level.
type PhysicalCount struct {
	VariationID string
	LocationID  string
	Quantity    int
	OccurredAt  time.Time
}

type errorEnvelope struct {
	Errors []ErrorDetail `json:"errors"`
}

type listResponse struct {
	Objects []CatalogObject `json:"objects"`
	Cursor  string          `json:"cursor"`
}

type searchRequest struct {
	ObjectTypes []string    `json:"object_types"`
	Query       searchQuery `json:"query"`
	Limit       int         `json:"limit,omitempty"`
}

type searchQuery struct {
	ExactQuery exactQuery `json:"exact_query"`
}

type exactQuery struct {
	AttributeName  string `json:"attribute_name"`
	AttributeValue string `json:"attribute_value"`
}

type searchResponse struct {
	Objects []CatalogObject `json:"objects"`
	Cursor  string          `json:"cursor"`
}

type upsertRequest struct {
	IdempotencyKey string        `json:"idempotency_key"`
	Object         CatalogObject `json:"object"`
}

type upsertResponse struct {
	CatalogObject *CatalogObject `json:"catalog_object"`
	IDMappings    []struct {
		ClientObjectID string `json:"client_object_id"`
		ObjectID       string `json:"object_id"`
	} `json:"id_mappings"`
}

type deleteResponse struct {
	DeletedObjectIDs []string `json:"deleted_object_ids"`
	DeletedAt        string   `json:"deleted_at"`
}

type countsRequest struct {
	CatalogObjectIDs []string `json:"catalog_object_ids"`
	LocationIDs      []string `json:"location_ids,omitempty"`
	States           []string `json:"states,omitempty"`
	Cursor           string   `json:"cursor,omitempty"`
}

type countsResponse struct {
	Counts []struct {
		CatalogObjectID string `json:"catalog_object_id"`
		State           string `json:"state"`
		LocationID      string `json:"location_id"`
		Quantity        string `json:"quantity"`
	} `json:"counts"`
	Cursor string `json:"cursor"`
}

type changesRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	Changes        []inventoryChange `json:"changes"`
}

type inventoryChange struct {
	Type          string             `json:"type"`
	PhysicalCount physicalCountEntry `json:"physical_count"`
}

type physicalCountEntry struct {
	CatalogObjectID string `json:"catalog_object_id"`
	State           string `json:"state"`
	LocationID      string `json:"location_id"`
	Quantity        string `json:"quantity"`
	OccurredAt      string `json:"occurred_at"`
}

type changesResponse struct {
	Counts []struct {
		CatalogObjectID string `json:"catalog_object_id"`
	} `json:"counts"`
}

// validateObjects checks the fields the portal relies on for each listed object type.
func validateObjects(objects []CatalogObject) error {
	for i, obj := range objects {
		if err := validateObject(obj); err != nil {
			return fmt.Errorf("%w: objects[%d]: %v", ErrInvalidResponse, i, err)
		}
	}
	return nil
}

func validateObject(obj CatalogObject) error {
	if strings.TrimSpace(obj.ID) == "" {
		return fmt.Errorf("missing id")
	}
	switch obj.Type {
	case ObjectTypeItem:
		if obj.ItemData == nil {
			return fmt.Errorf("item %s missing item_data", obj.ID)
		}
		for _, variation := range obj.ItemData.Variations {
			if strings.TrimSpace(variation.ID) == "" {
				return fmt.Errorf("item %s has variation without id", obj.ID)
			}
		}
	case ObjectTypeCategory:
		if obj.CategoryData == nil {
			return fmt.Errorf("category %s missing category_data", obj.ID)
		}
	case "":
		return fmt.Errorf("object %s missing type", obj.ID)
	}
	return nil
}

func (r countsResponse) decode() ([]InventoryCount, error) {
	counts := make([]InventoryCount, 0, len(r.Counts))
	for i, c := range r.Counts {
		if strings.TrimSpace(c.CatalogObjectID) == "" {
			return nil, fmt.Errorf("%w: counts[%d]: missing catalog_object_id", ErrInvalidResponse, i)
		}
		qty, err := parseQuantity(c.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: counts[%d]: %v", ErrInvalidResponse, i, err)
		}
		counts = append(counts, InventoryCount{
			VariationID: c.CatalogObjectID,
			LocationID:  c.LocationID,
			State:       c.State,
			Quantity:    qty,
		})
	}
	return counts, nil
}

// parseQuantity reads the provider's decimal string quantity, truncating fractional stock.
func parseQuantity(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q: %w", value, err)
	}
	return int(f), nil
}
