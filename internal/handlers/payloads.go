package handlers

import (
	"strings"
	"time"

	"github.com/cbg-gallery/portal/internal/catalog"
	"github.com/cbg-gallery/portal/internal/domain"
)

const defaultCreateQuantity = 1

type artworkRequest struct {
	ID                       string   `json:"id"`
	ProviderItemID           string   `json:"providerItemId"`
	ProviderVariationID      string   `json:"providerVariationId"`
	ProviderItemVersion      int64    `json:"providerItemVersion"`
	ProviderVariationVersion int64    `json:"providerVariationVersion"`
	Title                    string   `json:"title"`
	ArtistName               string   `json:"artistName"`
	Type                     string   `json:"type"`
	Medium                   string   `json:"medium"`
	Description              string   `json:"description"`
	Height                   string   `json:"height"`
	Width                    string   `json:"width"`
	DimensionsText           string   `json:"dimensionsText"`
	Price                    *float64 `json:"price"`
	SKU                      string   `json:"sku"`
	Quantity                 *int     `json:"quantity"`
	Discounts                string   `json:"discounts"`
	Category                 string   `json:"category"`
}

// toRecord converts the payload. New records without a quantity are stocked with one piece.
func (req artworkRequest) toRecord() domain.ArtworkRecord {
	rec := domain.ArtworkRecord{
		ID:                       req.ID,
		ProviderItemID:           req.ProviderItemID,
		ProviderVariationID:      req.ProviderVariationID,
		ProviderItemVersion:      req.ProviderItemVersion,
		ProviderVariationVersion: req.ProviderVariationVersion,
		Title:                    req.Title,
		ArtistName:               req.ArtistName,
		Type:                     req.Type,
		Medium:                   req.Medium,
		Description:              req.Description,
		Height:                   req.Height,
		Width:                    req.Width,
		DimensionsText:           req.DimensionsText,
		Price:                    req.Price,
		SKU:                      req.SKU,
		Discounts:                req.Discounts,
		Category:                 req.Category,
	}
	switch {
	case req.Quantity != nil:
		rec.Quantity = *req.Quantity
	case rec.IsCreate():
		rec.Quantity = defaultCreateQuantity
	}
	return rec
}

type artworkResponse struct {
	ID                       string   `json:"id"`
	ProviderItemID           string   `json:"providerItemId,omitempty"`
	ProviderVariationID      string   `json:"providerVariationId,omitempty"`
	ProviderItemVersion      int64    `json:"providerItemVersion,omitempty"`
	ProviderVariationVersion int64    `json:"providerVariationVersion,omitempty"`
	Title                    string   `json:"title"`
	ArtistName               string   `json:"artistName"`
	Type                     string   `json:"type,omitempty"`
	Medium                   string   `json:"medium,omitempty"`
	Description              string   `json:"description,omitempty"`
	Height                   string   `json:"height,omitempty"`
	Width                    string   `json:"width,omitempty"`
	Dimensions               string   `json:"dimensions,omitempty"`
	Price                    *float64 `json:"price"`
	PriceDisplay             string   `json:"priceDisplay,omitempty"`
	SKU                      string   `json:"sku,omitempty"`
	Quantity                 int      `json:"quantity"`
	Discounts                string   `json:"discounts,omitempty"`
	Category                 string   `json:"category,omitempty"`
}

func newArtworkResponse(rec domain.ArtworkRecord) artworkResponse {
	resp := artworkResponse{
		ID:                       rec.ID,
		ProviderItemID:           rec.ProviderItemID,
		ProviderVariationID:      rec.ProviderVariationID,
		ProviderItemVersion:      rec.ProviderItemVersion,
		ProviderVariationVersion: rec.ProviderVariationVersion,
		Title:                    rec.Title,
		ArtistName:               rec.ArtistName,
		Type:                     rec.Type,
		Medium:                   rec.Medium,
		Description:              rec.Description,
		Height:                   rec.Height,
		Width:                    rec.Width,
		Dimensions:               rec.Dimensions(),
		Price:                    rec.Price,
		SKU:                      rec.SKU,
		Quantity:                 rec.Quantity,
		Discounts:                rec.Discounts,
		Category:                 rec.Category,
	}
	if rec.Price != nil {
		resp.PriceDisplay = catalog.FormatPrice(catalog.PriceToMinorUnits(*rec.Price))
	}
	return resp
}

func newArtworkList(records []domain.ArtworkRecord) []artworkResponse {
	out := make([]artworkResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, newArtworkResponse(rec))
	}
	return out
}

type archivedResponse struct {
	artworkResponse
	ArchiveID  string `json:"archiveId"`
	ArchivedAt string `json:"archivedAt"`
	ArchivedBy string `json:"archivedBy"`
}

func newArchivedResponse(a domain.ArchivedArtwork) archivedResponse {
	return archivedResponse{
		artworkResponse: newArtworkResponse(a.ArtworkRecord),
		ArchiveID:       a.ArchiveID,
		ArchivedAt:      a.ArchivedAt.UTC().Format(time.RFC3339),
		ArchivedBy:      a.ArchivedBy,
	}
}

type batchRequest struct {
	Attempt int              `json:"attempt"`
	Records []artworkRequest `json:"records"`
}

type batchResultResponse struct {
	LocalID             string `json:"localId"`
	ProviderItemID      string `json:"providerItemId,omitempty"`
	ProviderVariationID string `json:"providerVariationId,omitempty"`
	SKU                 string `json:"sku,omitempty"`
	Category            string `json:"category,omitempty"`
	Operation           string `json:"operation"`
	Success             bool   `json:"success"`
	Error               string `json:"error,omitempty"`
	InventoryWarning    string `json:"inventoryWarning,omitempty"`
}

type batchResponse struct {
	Results   []batchResultResponse `json:"results"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
}

func newBatchResponse(results []domain.BatchResult) batchResponse {
	summary := catalog.Summarize(results)
	resp := batchResponse{
		Results:   make([]batchResultResponse, 0, len(results)),
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
	}
	for _, r := range results {
		resp.Results = append(resp.Results, batchResultResponse{
			LocalID:             r.LocalID,
			ProviderItemID:      r.ProviderItemID,
			ProviderVariationID: r.ProviderVariationID,
			SKU:                 r.SKU,
			Category:            r.Category,
			Operation:           r.Operation,
			Success:             r.Success,
			Error:               strings.TrimSpace(r.Error),
			InventoryWarning:    r.InventoryWarning,
		})
	}
	return resp
}
