package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cbg-gallery/portal/internal/domain"
)

// ServiceDeps bundles the collaborators required to construct the inventory service.
type ServiceDeps struct {
	Store                    ArtifactStore
	Blobs                    BlobStore
	Events                   ArchiveEventPublisher
	Currency                 string
	LocationID               string
	NamespacedSKU            bool
	ResolveReportingOnUpdate bool
	CountConcurrency         int
	Clock                    func() time.Time
	IDGenerator              func() string
	Logger                   func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	reader  *Reader
	writer  *Writer
	archive *ArchiveStore
	store   ArtifactStore
	events  ArchiveEventPublisher
	clock   func() time.Time
	newID   func() string
	logger  func(context.Context, string, map[string]any)
}

// NewService wires the reader, writer and archive store into an InventoryService.
func NewService(deps ServiceDeps) (InventoryService, error) {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	writer, err := NewWriter(WriterDeps{
		Store:                    deps.Store,
		SKU:                      SKUGenerator{Namespaced: deps.NamespacedSKU, Clock: clock},
		Currency:                 deps.Currency,
		LocationID:               deps.LocationID,
		ResolveReportingOnUpdate: deps.ResolveReportingOnUpdate,
		Clock:                    clock,
		IDGenerator:              idGen,
		Logger:                   logger,
	})
	if err != nil {
		return nil, err
	}
	reader, err := NewReader(ReaderDeps{
		Store:            deps.Store,
		LocationID:       deps.LocationID,
		CountConcurrency: deps.CountConcurrency,
	})
	if err != nil {
		return nil, err
	}
	archive, err := NewArchiveStore(deps.Blobs)
	if err != nil {
		return nil, err
	}

	return &inventoryService{
		reader:  reader,
		writer:  writer,
		archive: archive,
		store:   deps.Store,
		events:  deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// ListInventory lists live records. Members without privileges only ever see their own work.
func (s *inventoryService) ListInventory(ctx context.Context, member domain.Member, filterArtist string) ([]domain.ArtworkRecord, error) {
	if !member.IsPrivileged() {
		name := strings.TrimSpace(member.FullName)
		if name == "" {
			return []domain.ArtworkRecord{}, nil
		}
		filterArtist = name
	}
	return s.reader.ListInventory(ctx, filterArtist)
}

// WriteBatch creates or updates records. Members without privileges may only create records
// attributed to themselves and only update items whose live category names them; others are
// returned as failed results. Updates without a SKU keep the SKU currently listed.
func (s *inventoryService) WriteBatch(ctx context.Context, member domain.Member, records []domain.ArtworkRecord, opts BatchOptions) ([]domain.BatchResult, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: at least one record is required", ErrValidation)
	}
	listed, listErr := s.listedItems(ctx, records)
	prepared := make([]domain.ArtworkRecord, len(records))
	for i, rec := range records {
		prepared[i] = carryListedSKU(rec, listed)
	}
	results := s.writer.WriteBatch(ctx, prepared, opts, writeAuthorizer(member, listed, listErr))
	summary := Summarize(results)
	s.logger(ctx, "catalog.batch.completed", map[string]any{
		"memberId":  member.ID,
		"attempt":   opts.Attempt,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	})
	return results, nil
}

// ArchiveOne records the item in the archive list and then deletes it upstream. The entry is
// saved first so a failed save leaves the item live; a failed delete takes the entry back out.
func (s *inventoryService) ArchiveOne(ctx context.Context, member domain.Member, providerItemID string) (domain.ArchivedArtwork, error) {
	providerItemID = strings.TrimSpace(providerItemID)
	if providerItemID == "" {
		return domain.ArchivedArtwork{}, fmt.Errorf("%w: item id is required", ErrValidation)
	}
	rec, err := s.reader.FindItem(ctx, providerItemID)
	if err != nil {
		return domain.ArchivedArtwork{}, err
	}
	if err := checkOwnership(member, rec); err != nil {
		return domain.ArchivedArtwork{}, err
	}
	archived, err := s.archive.Load(ctx)
	if err != nil {
		return domain.ArchivedArtwork{}, err
	}

	entry := domain.ArchivedArtwork{
		ArtworkRecord: rec,
		ArchiveID:     s.newID(),
		ArchivedAt:    s.clock(),
		ArchivedBy:    member.Attribution(),
	}
	withEntry := make([]domain.ArchivedArtwork, 0, len(archived)+1)
	withEntry = append(withEntry, archived...)
	withEntry = append(withEntry, entry)
	if err := s.archive.Save(ctx, withEntry); err != nil {
		s.logger(ctx, "catalog.archive.save_failed", map[string]any{
			"providerItemId": providerItemID,
			"error":          err.Error(),
		})
		return domain.ArchivedArtwork{}, err
	}

	if _, err := s.store.DeleteObject(ctx, providerItemID); err != nil {
		if rollbackErr := s.archive.Save(ctx, archived); rollbackErr != nil {
			s.logger(ctx, "catalog.archive.rollback_failed", map[string]any{
				"archiveId":      entry.ArchiveID,
				"providerItemId": providerItemID,
				"error":          rollbackErr.Error(),
			})
		}
		return domain.ArchivedArtwork{}, mapProviderError(err)
	}

	s.publish(ctx, domain.EventArtworkArchived, entry, member)
	return entry, nil
}

// RestoreOne re-creates an archived artwork as a brand-new item and removes it from the archive.
// Provider identifiers are dropped; the create is keyed by the archive id so repeating a restore
// that failed after the create does not duplicate the item.
func (s *inventoryService) RestoreOne(ctx context.Context, member domain.Member, archiveID string) (domain.ArtworkRecord, error) {
	archiveID = strings.TrimSpace(archiveID)
	if archiveID == "" {
		return domain.ArtworkRecord{}, fmt.Errorf("%w: archive id is required", ErrValidation)
	}
	archived, err := s.archive.Load(ctx)
	if err != nil {
		return domain.ArtworkRecord{}, err
	}
	idx := -1
	for i, entry := range archived {
		if entry.ArchiveID == archiveID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ArtworkRecord{}, fmt.Errorf("%w: archive entry %s", ErrNotFound, archiveID)
	}
	entry := archived[idx]
	if err := checkOwnership(member, entry.ArtworkRecord); err != nil {
		return domain.ArtworkRecord{}, err
	}

	rec := restorableRecord(entry)
	res, err := s.writer.Write(ctx, NewSyncSession(1), rec)
	if err != nil {
		return domain.ArtworkRecord{}, err
	}
	rec.ProviderItemID = res.ProviderItemID
	rec.ProviderVariationID = res.ProviderVariationID
	rec.SKU = res.SKU
	rec.Category = res.Category
	if res.InventoryWarning != "" {
		s.logger(ctx, "catalog.restore.inventory_warning", map[string]any{
			"archiveId": archiveID,
			"warning":   res.InventoryWarning,
		})
	}

	remaining := make([]domain.ArchivedArtwork, 0, len(archived)-1)
	remaining = append(remaining, archived[:idx]...)
	remaining = append(remaining, archived[idx+1:]...)
	if err := s.archive.Save(ctx, remaining); err != nil {
		s.logger(ctx, "catalog.restore.save_failed", map[string]any{
			"archiveId":      archiveID,
			"providerItemId": rec.ProviderItemID,
			"error":          err.Error(),
		})
		return domain.ArtworkRecord{}, err
	}

	entry.ProviderItemID = rec.ProviderItemID
	s.publish(ctx, domain.EventArtworkRestored, entry, member)
	return rec, nil
}

// ListArchive returns the archive list, restricted to the member's own work unless privileged.
func (s *inventoryService) ListArchive(ctx context.Context, member domain.Member) ([]domain.ArchivedArtwork, error) {
	archived, err := s.archive.Load(ctx)
	if err != nil {
		return nil, err
	}
	if member.IsPrivileged() {
		return archived, nil
	}
	own := make([]domain.ArchivedArtwork, 0, len(archived))
	for _, entry := range archived {
		if sameArtist(entry.ArtistName, member.FullName) {
			own = append(own, entry)
		}
	}
	return own, nil
}

func (s *inventoryService) publish(ctx context.Context, event string, entry domain.ArchivedArtwork, member domain.Member) {
	if s.events == nil {
		return
	}
	_, err := s.events.PublishArchiveEvent(ctx, domain.ArchiveEvent{
		Event:          event,
		ArchiveID:      entry.ArchiveID,
		ProviderItemID: entry.ProviderItemID,
		Title:          entry.Title,
		ArtistName:     entry.ArtistName,
		Actor:          member.Attribution(),
		OccurredAt:     s.clock(),
	})
	if err != nil {
		s.logger(ctx, "catalog.event.publish_failed", map[string]any{
			"event":     event,
			"archiveId": entry.ArchiveID,
			"error":     err.Error(),
		})
	}
}

// restorableRecord strips provider identity from an archived record so it is written as a create.
func restorableRecord(entry domain.ArchivedArtwork) domain.ArtworkRecord {
	rec := entry.ArtworkRecord
	rec.ID = "restore-" + entry.ArchiveID
	rec.ProviderItemID = ""
	rec.ProviderVariationID = ""
	rec.ProviderItemVersion = 0
	rec.ProviderVariationVersion = 0
	rec.Category = ""
	return rec
}

// listedItems loads the live records targeted by updates, keyed by provider item id. Batches of
// creates skip the listing.
func (s *inventoryService) listedItems(ctx context.Context, records []domain.ArtworkRecord) (map[string]domain.ArtworkRecord, error) {
	hasUpdates := false
	for _, rec := range records {
		if !rec.IsCreate() {
			hasUpdates = true
			break
		}
	}
	if !hasUpdates {
		return nil, nil
	}
	live, err := s.reader.ListInventory(ctx, "")
	if err != nil {
		s.logger(ctx, "catalog.batch.listing_failed", map[string]any{"error": err.Error()})
		return nil, err
	}
	byID := make(map[string]domain.ArtworkRecord, len(live))
	for _, rec := range live {
		byID[rec.ProviderItemID] = rec
	}
	return byID, nil
}

func carryListedSKU(rec domain.ArtworkRecord, listed map[string]domain.ArtworkRecord) domain.ArtworkRecord {
	if rec.IsCreate() || strings.TrimSpace(rec.SKU) != "" {
		return rec
	}
	if current, ok := listed[strings.TrimSpace(rec.ProviderItemID)]; ok {
		rec.SKU = current.SKU
	}
	return rec
}

// writeAuthorizer checks creates against the submitted artist and updates against the artist of
// the live item, so a payload cannot claim someone else's item.
func writeAuthorizer(member domain.Member, listed map[string]domain.ArtworkRecord, listErr error) Authorizer {
	if member.IsPrivileged() {
		return nil
	}
	return func(rec domain.ArtworkRecord) error {
		if err := checkOwnership(member, rec); err != nil {
			return err
		}
		if rec.IsCreate() {
			return nil
		}
		if listErr != nil {
			return listErr
		}
		itemID := strings.TrimSpace(rec.ProviderItemID)
		current, ok := listed[itemID]
		if !ok {
			return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}
		if err := checkOwnership(member, current); err != nil {
			return err
		}
		if variationID := strings.TrimSpace(rec.ProviderVariationID); variationID != "" && variationID != current.ProviderVariationID {
			return fmt.Errorf("%w: variation %s does not belong to item %s", ErrPermissionDenied, variationID, itemID)
		}
		return nil
	}
}

func checkOwnership(member domain.Member, rec domain.ArtworkRecord) error {
	if member.IsPrivileged() || sameArtist(rec.ArtistName, member.FullName) {
		return nil
	}
	return fmt.Errorf("%w: records may only be edited by their artist", ErrPermissionDenied)
}

func sameArtist(a, b string) bool {
	a = strings.TrimSpace(a)
	return a != "" && strings.EqualFold(a, strings.TrimSpace(b))
}
