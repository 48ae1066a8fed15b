package handlers

import (
	"context"
	"net/http"

	"github.com/cbg-gallery/portal/internal/catalog"
	"github.com/cbg-gallery/portal/internal/domain"
	"github.com/cbg-gallery/portal/internal/platform/auth"
)

type stubInventoryService struct {
	records  []domain.ArtworkRecord
	results  []domain.BatchResult
	archived domain.ArchivedArtwork
	archive  []domain.ArchivedArtwork
	restored domain.ArtworkRecord
	err      error

	gotMember  domain.Member
	gotFilter  string
	gotRecords []domain.ArtworkRecord
	gotOpts    catalog.BatchOptions
	gotID      string
}

func (s *stubInventoryService) ListInventory(_ context.Context, member domain.Member, filter string) ([]domain.ArtworkRecord, error) {
	s.gotMember, s.gotFilter = member, filter
	return s.records, s.err
}

func (s *stubInventoryService) WriteBatch(_ context.Context, member domain.Member, records []domain.ArtworkRecord, opts catalog.BatchOptions) ([]domain.BatchResult, error) {
	s.gotMember, s.gotRecords, s.gotOpts = member, records, opts
	return s.results, s.err
}

func (s *stubInventoryService) ArchiveOne(_ context.Context, member domain.Member, itemID string) (domain.ArchivedArtwork, error) {
	s.gotMember, s.gotID = member, itemID
	return s.archived, s.err
}

func (s *stubInventoryService) RestoreOne(_ context.Context, member domain.Member, archiveID string) (domain.ArtworkRecord, error) {
	s.gotMember, s.gotID = member, archiveID
	return s.restored, s.err
}

func (s *stubInventoryService) ListArchive(_ context.Context, member domain.Member) ([]domain.ArchivedArtwork, error) {
	s.gotMember = member
	return s.archive, s.err
}

var _ catalog.InventoryService = (*stubInventoryService)(nil)

var testArtist = domain.Member{ID: "m-jane", FullName: "Jane Doe", Role: domain.RoleArtist}

func withMember(member domain.Member) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithMember(r.Context(), member)))
		})
	}
}

func newTestRouter(svc catalog.InventoryService, member *domain.Member, opts ...InventoryOption) http.Handler {
	routerOpts := []Option{
		WithInventoryRoutes(NewInventoryHandlers(svc, opts...).Routes),
		WithArchiveRoutes(NewArchiveHandlers(svc).Routes),
	}
	if member != nil {
		routerOpts = append(routerOpts, WithMemberMiddlewares(withMember(*member)))
	}
	return NewRouter(routerOpts...)
}
