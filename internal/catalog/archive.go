package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cbg-gallery/portal/internal/domain"
)

// ArchiveBlobKey is the fixed blob key holding the archive list.
const ArchiveBlobKey = "archived_artworks"

// ArchiveStore persists the archive list as one JSON blob. Every Save overwrites the whole list,
// so two writers saving concurrently can lose one of their updates.
type ArchiveStore struct {
	blobs BlobStore
	key   string
}

// NewArchiveStore returns an archive store over blobs.
func NewArchiveStore(blobs BlobStore) (*ArchiveStore, error) {
	if blobs == nil {
		return nil, fmt.Errorf("%w: blob store is required", ErrConfiguration)
	}
	return &ArchiveStore{blobs: blobs, key: ArchiveBlobKey}, nil
}

// Load returns the archived artworks, or an empty list when nothing was saved yet.
func (s *ArchiveStore) Load(ctx context.Context) ([]domain.ArchivedArtwork, error) {
	raw, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: load archive: %v", ErrProviderUnavailable, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []domain.ArchivedArtwork{}, nil
	}
	var stored []archivedArtworkJSON
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("catalog: decode archive: %w", err)
	}
	out := make([]domain.ArchivedArtwork, 0, len(stored))
	for _, item := range stored {
		out = append(out, item.toDomain())
	}
	return out, nil
}

// Save replaces the stored archive list with items.
func (s *ArchiveStore) Save(ctx context.Context, items []domain.ArchivedArtwork) error {
	stored := make([]archivedArtworkJSON, 0, len(items))
	for _, item := range items {
		stored = append(stored, archivedFromDomain(item))
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("catalog: encode archive: %w", err)
	}
	if err := s.blobs.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("%w: save archive: %v", ErrProviderUnavailable, err)
	}
	return nil
}

type archivedArtworkJSON struct {
	ArchiveID                string    `json:"archiveId"`
	ID                       string    `json:"id"`
	ProviderItemID           string    `json:"providerItemId,omitempty"`
	ProviderVariationID      string    `json:"providerVariationId,omitempty"`
	ProviderItemVersion      int64     `json:"providerItemVersion,omitempty"`
	ProviderVariationVersion int64     `json:"providerVariationVersion,omitempty"`
	Title                    string    `json:"title"`
	ArtistName               string    `json:"artistName"`
	Type                     string    `json:"type,omitempty"`
	Medium                   string    `json:"medium,omitempty"`
	Description              string    `json:"description,omitempty"`
	Height                   string    `json:"height,omitempty"`
	Width                    string    `json:"width,omitempty"`
	DimensionsText           string    `json:"dimensionsText,omitempty"`
	Price                    *float64  `json:"price,omitempty"`
	SKU                      string    `json:"sku,omitempty"`
	Quantity                 int       `json:"quantity"`
	Discounts                string    `json:"discounts,omitempty"`
	Category                 string    `json:"category,omitempty"`
	ArchivedAt               time.Time `json:"archivedAt"`
	ArchivedBy               string    `json:"archivedBy"`
}

func archivedFromDomain(a domain.ArchivedArtwork) archivedArtworkJSON {
	r := a.ArtworkRecord
	return archivedArtworkJSON{
		ArchiveID:                a.ArchiveID,
		ID:                       r.ID,
		ProviderItemID:           r.ProviderItemID,
		ProviderVariationID:      r.ProviderVariationID,
		ProviderItemVersion:      r.ProviderItemVersion,
		ProviderVariationVersion: r.ProviderVariationVersion,
		Title:                    r.Title,
		ArtistName:               r.ArtistName,
		Type:                     r.Type,
		Medium:                   r.Medium,
		Description:              r.Description,
		Height:                   r.Height,
		Width:                    r.Width,
		DimensionsText:           r.DimensionsText,
		Price:                    r.Price,
		SKU:                      r.SKU,
		Quantity:                 r.Quantity,
		Discounts:                r.Discounts,
		Category:                 r.Category,
		ArchivedAt:               a.ArchivedAt.UTC(),
		ArchivedBy:               a.ArchivedBy,
	}
}

func (j archivedArtworkJSON) toDomain() domain.ArchivedArtwork {
	return domain.ArchivedArtwork{
		ArtworkRecord: domain.ArtworkRecord{
			ID:                       j.ID,
			ProviderItemID:           j.ProviderItemID,
			ProviderVariationID:      j.ProviderVariationID,
			ProviderItemVersion:      j.ProviderItemVersion,
			ProviderVariationVersion: j.ProviderVariationVersion,
			Title:                    j.Title,
			ArtistName:               j.ArtistName,
			Type:                     j.Type,
			Medium:                   j.Medium,
			Description:              j.Description,
			Height:                   j.Height,
			Width:                    j.Width,
			DimensionsText:           j.DimensionsText,
			Price:                    j.Price,
			SKU:                      j.SKU,
			Quantity:                 j.Quantity,
			Discounts:                j.Discounts,
			Category:                 j.Category,
		},
		ArchiveID:  j.ArchiveID,
		ArchivedAt: j.ArchivedAt,
		ArchivedBy: j.ArchivedBy,
	}
}
