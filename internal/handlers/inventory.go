package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cbg-gallery/portal/internal/catalog"
	"github.com/cbg-gallery/portal/internal/domain"
	"github.com/cbg-gallery/portal/internal/platform/auth"
	"github.com/cbg-gallery/portal/internal/platform/httpx"
	"github.com/cbg-gallery/portal/internal/platform/observability"
)

const (
	maxBatchRequestBody = 1 << 20
	maxBatchRecords     = 200
)

// InventoryHandlers exposes the live catalog to portal members.
type InventoryHandlers struct {
	inventory    catalog.InventoryService
	batchLimiter *memberRateLimiter
}

// InventoryOption customises InventoryHandlers.
type InventoryOption func(*InventoryHandlers)

// WithBatchRateLimit caps batch submissions per member and minute. Zero disables the cap.
func WithBatchRateLimit(perMinute int) InventoryOption {
	return func(h *InventoryHandlers) {
		h.batchLimiter = newMemberRateLimiter(perMinute, nil)
	}
}

// NewInventoryHandlers constructs the inventory handlers.
func NewInventoryHandlers(inventory catalog.InventoryService, opts ...InventoryOption) *InventoryHandlers {
	h := &InventoryHandlers{inventory: inventory}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the inventory endpoints.
func (h *InventoryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/inventory", h.listInventory)
	r.With(h.batchLimiter.Middleware).Post("/inventory/batch", h.writeBatch)
	r.Post("/inventory/{itemID}/archive", h.archiveItem)
}

func (h *InventoryHandlers) listInventory(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.inventory.ListInventory(ctx, member, r.URL.Query().Get("artist"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": newArtworkList(records)})
}

func (h *InventoryHandlers) writeBatch(w http.ResponseWriter, r *http.Request) {
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

	req, err := decodeBatchRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	records := make([]domain.ArtworkRecord, 0, len(req.Records))
	for _, rec := range req.Records {
		records = append(records, rec.toRecord())
	}

	results, err := h.inventory.WriteBatch(ctx, member, records, catalog.BatchOptions{Attempt: req.Attempt})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	if err := catalog.Summarize(results).Err(); err != nil {
		observability.FromContext(ctx).Warn("inventory batch partially failed",
			zap.Error(err),
			zap.Int("attempt", req.Attempt),
		)
	}
	httpx.WriteJSON(w, http.StatusOK, newBatchResponse(results))
}

func (h *InventoryHandlers) archiveItem(w http.ResponseWriter, r *http.Request) {
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

	archived, err := h.inventory.ArchiveOne(ctx, member, chi.URLParam(r, "itemID"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newArchivedResponse(archived))
}

func decodeBatchRequest(r *http.Request) (batchRequest, error) {
	limited := io.LimitReader(r.Body, maxBatchRequestBody)
	defer r.Body.Close()
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()

	var req batchRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return batchRequest{}, errors.New("request body required")
		}
		return batchRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Attempt < 0 {
		return batchRequest{}, errors.New("attempt must not be negative")
	}
	if len(req.Records) == 0 {
		return batchRequest{}, errors.New("at least one record is required")
	}
	if len(req.Records) > maxBatchRecords {
		return batchRequest{}, fmt.Errorf("a batch holds at most %d records", maxBatchRecords)
	}
	for i := range req.Records {
		req.Records[i].ProviderItemID = strings.TrimSpace(req.Records[i].ProviderItemID)
	}
	return req, nil
}
