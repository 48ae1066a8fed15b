package catalog

import (
	"context"

	"github.com/cbg-gallery/portal/internal/domain"
	"github.com/cbg-gallery/portal/internal/square"
)

// ArtifactStore is the provider catalog and inventory API consumed by the sync engine.
type ArtifactStore interface {
	ListItems(ctx context.Context, cursor string) (square.ListPage, error)
	ListCategories(ctx context.Context, cursor string) (square.ListPage, error)
	SearchCategoryByName(ctx context.Context, name string) (string, error)
	UpsertObject(ctx context.Context, idempotencyKey string, object square.CatalogObject) (square.UpsertResult, error)
	BatchGetInventoryCounts(ctx context.Context, variationIDs []string, locationID, cursor string) (square.CountPage, error)
	SetPhysicalCount(ctx context.Context, idempotencyKey string, count square.PhysicalCount) error
	DeleteObject(ctx context.Context, objectID string) ([]string, error)
}

// BlobStore keeps opaque string values under fixed keys.
type BlobStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ArchiveEventPublisher announces archive and restore transitions.
type ArchiveEventPublisher interface {
	PublishArchiveEvent(ctx context.Context, event domain.ArchiveEvent) (string, error)
}

// InventoryService is the operation set the HTTP layer calls.
type InventoryService interface {
	ListInventory(ctx context.Context, member domain.Member, filterArtist string) ([]domain.ArtworkRecord, error)
	WriteBatch(ctx context.Context, member domain.Member, records []domain.ArtworkRecord, opts BatchOptions) ([]domain.BatchResult, error)
	ArchiveOne(ctx context.Context, member domain.Member, providerItemID string) (domain.ArchivedArtwork, error)
	RestoreOne(ctx context.Context, member domain.Member, archiveID string) (domain.ArtworkRecord, error)
	ListArchive(ctx context.Context, member domain.Member) ([]domain.ArchivedArtwork, error)
}

// BatchOptions tune one WriteBatch call.
type BatchOptions struct {
	// Attempt is embedded in every idempotency key of the batch. Resend a failed batch with the
	// same attempt; bump it to deliberately write the same records again.
	Attempt int
}
