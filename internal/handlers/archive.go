package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cbg-gallery/portal/internal/catalog"
	"github.com/cbg-gallery/portal/internal/platform/auth"
	"github.com/cbg-gallery/portal/internal/platform/httpx"
)

// ArchiveHandlers exposes the archive list and restores.
type ArchiveHandlers struct {
	inventory catalog.InventoryService
}

// NewArchiveHandlers constructs the archive handlers.
func NewArchiveHandlers(inventory catalog.InventoryService) *ArchiveHandlers {
	return &ArchiveHandlers{inventory: inventory}
}

// Routes registers the archive endpoints.
func (h *ArchiveHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/archive", h.listArchive)
	r.Post("/archive/{archiveID}/restore", h.restore)
}

func (h *ArchiveHandlers) listArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeServiceUnavailable(ctx, w)
		return
	}
	member, ok := auth.MemberFromContext(ctx)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}

	archived, err := h.inventory.ListArchive(ctx, member)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	items := make([]archivedResponse, 0, len(archived))
	for _, a := range archived {
		items = append(items, newArchivedResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ArchiveHandlers) restore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeServiceUnavailable(ctx, w)
		return
	}
	member, ok := auth.MemberFromContext(ctx)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}

	rec, err := h.inventory.RestoreOne(ctx, member, chi.URLParam(r, "archiveID"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newArtworkResponse(rec))
}
