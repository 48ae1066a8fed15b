package catalog

import (
	"strings"

	"github.com/cbg-gallery/portal/internal/domain"
	"github.com/cbg-gallery/portal/internal/square"
)

const variationName = "Regular"

// categoryIDs carries the outcome of category resolution for one record.
type categoryIDs struct {
	DisplayName string
	Display     string
	Reporting   string
}

// graphInput is everything the graph stage needs besides the record itself.
type graphInput struct {
	Record      domain.ArtworkRecord
	Categories  categoryIDs
	Description string
	Currency    string
}

func itemTempID(localID string) string      { return "#item-" + localID }
func variationTempID(localID string) string { return "#variation-" + localID }

// buildCreateGraph returns a new item with one inventory-tracked variation.
func buildCreateGraph(in graphInput) square.CatalogObject {
	rec := in.Record
	itemID := itemTempID(rec.ID)
	track := true
	variation := square.CatalogObject{
		Type: square.ObjectTypeItemVariation,
		ID:   variationTempID(rec.ID),
		ItemVariationData: &square.ItemVariationData{
			ItemID:         itemID,
			Name:           variationName,
			SKU:            rec.SKU,
			TrackInventory: &track,
		},
	}
	applyPrice(variation.ItemVariationData, rec.Price, in.Currency)

	item := square.CatalogObject{
		Type:     square.ObjectTypeItem,
		ID:       itemID,
		ItemData: itemData(in),
	}
	item.ItemData.Variations = []square.CatalogObject{variation}
	return item
}

// buildUpdateGraph returns the existing item with its version. The variation is included only
// when both its id and a price were supplied.
func buildUpdateGraph(in graphInput) square.CatalogObject {
	rec := in.Record
	item := square.CatalogObject{
		Type:     square.ObjectTypeItem,
		ID:       rec.ProviderItemID,
		Version:  rec.ProviderItemVersion,
		ItemData: itemData(in),
	}
	if rec.ProviderVariationID != "" && rec.Price != nil {
		track := true
		variation := square.CatalogObject{
			Type:    square.ObjectTypeItemVariation,
			ID:      rec.ProviderVariationID,
			Version: rec.ProviderVariationVersion,
			ItemVariationData: &square.ItemVariationData{
				ItemID:         rec.ProviderItemID,
				Name:           variationName,
				SKU:            rec.SKU,
				TrackInventory: &track,
			},
		}
		applyPrice(variation.ItemVariationData, rec.Price, in.Currency)
		item.ItemData.Variations = []square.CatalogObject{variation}
	}
	return item
}

func itemData(in graphInput) *square.ItemData {
	data := &square.ItemData{
		Name:        strings.TrimSpace(in.Record.Title),
		Description: in.Description,
	}
	if in.Categories.Display != "" {
		data.Categories = []square.ObjectRef{{ID: in.Categories.Display}}
	}
	if in.Categories.Reporting != "" {
		data.ReportingCategory = &square.ObjectRef{ID: in.Categories.Reporting}
	}
	return data
}

// applyPrice sets fixed pricing when a price is known and variable pricing otherwise.
func applyPrice(data *square.ItemVariationData, price *float64, currency string) {
	if price == nil {
		data.PricingType = square.PricingTypeVariable
		return
	}
	data.PricingType = square.PricingTypeFixed
	data.PriceMoney = &square.Money{Amount: PriceToMinorUnits(*price), Currency: currency}
}
