package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/cbg-gallery/portal/internal/domain"
	"github.com/cbg-gallery/portal/internal/square"
)

const categorySeparator = " - "

// MaxPrice is the largest price accepted for a record, in major units.
const MaxPrice = 1e12

// PriceToMinorUnits converts a decimal price to integer minor units.
func PriceToMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// MinorUnitsToPrice converts integer minor units back to a decimal price.
func MinorUnitsToPrice(amount int64) float64 {
	return float64(amount) / 100
}

// FormatPrice renders minor units with two decimals ("1250" becomes "12.50").
func FormatPrice(amount int64) string {
	return fmt.Sprintf("%.2f", MinorUnitsToPrice(amount))
}

// SplitCategoryName splits "{artist} - {type}" on the last separator. Names without the separator
// are the artist alone.
func SplitCategoryName(name string) (artistName, artworkType string) {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, categorySeparator)
	if idx < 0 {
		return name, ""
	}
	return strings.TrimSpace(name[:idx]), strings.TrimSpace(name[idx+len(categorySeparator):])
}

// itemCategoryID picks the category in priority order: category_id, the first categories entry,
// then the reporting category.
func itemCategoryID(data *square.ItemData) string {
	if data == nil {
		return ""
	}
	if id := strings.TrimSpace(data.CategoryID); id != "" {
		return id
	}
	for _, ref := range data.Categories {
		if id := strings.TrimSpace(ref.ID); id != "" {
			return id
		}
	}
	if data.ReportingCategory != nil {
		return strings.TrimSpace(data.ReportingCategory.ID)
	}
	return ""
}

// itemDescription prefers the plain text field and falls back to the HTML and legacy fields.
func itemDescription(data *square.ItemData) string {
	for _, candidate := range []string{data.DescriptionPlaintext, data.DescriptionHTML, data.Description} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// toArtworkRecord converts a listed item into the local record shape.
func toArtworkRecord(item square.CatalogObject, categories map[string]string, counts map[string]int) domain.ArtworkRecord {
	data := item.ItemData
	category := categories[itemCategoryID(data)]
	artist, artworkType := SplitCategoryName(category)
	decoded := DecodeDescription(itemDescription(data))

	rec := domain.ArtworkRecord{
		ID:                  item.ID,
		ProviderItemID:      item.ID,
		ProviderItemVersion: item.Version,
		Title:               data.Name,
		ArtistName:          artist,
		Type:                artworkType,
		Medium:              decoded.Medium,
		Description:         decoded.CleanDescription,
		Height:              decoded.Height,
		Width:               decoded.Width,
		DimensionsText:      decoded.Dimensions,
		Discounts:           decoded.Discounts,
		Category:            category,
	}
	if len(data.Variations) > 0 {
		variation := data.Variations[0]
		rec.ProviderVariationID = variation.ID
		rec.ProviderVariationVersion = variation.Version
		rec.Quantity = counts[variation.ID]
		if vd := variation.ItemVariationData; vd != nil {
			rec.SKU = vd.SKU
			if vd.PriceMoney != nil {
				price := MinorUnitsToPrice(vd.PriceMoney.Amount)
				rec.Price = &price
			}
		}
	}
	return rec
}

// MatchesArtist applies the loose artist filter: the trimmed, case-insensitive artist name equals
// the filter, is a prefix of it, or starts with it; or the full category name starts with it.
func MatchesArtist(rec domain.ArtworkRecord, filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return true
	}
	artist := strings.ToLower(strings.TrimSpace(rec.ArtistName))
	if artist != "" && (strings.HasPrefix(filter, artist) || strings.HasPrefix(artist, filter)) {
		return true
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(rec.Category)), filter)
}
