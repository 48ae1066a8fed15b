package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cbg-gallery/portal/internal/catalog"
	"github.com/cbg-gallery/portal/internal/platform/httpx"
)

// writeCatalogError maps catalog sentinels onto HTTP statuses.
func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	message := strings.TrimPrefix(err.Error(), "catalog: ")
	switch {
	case errors.Is(err, catalog.ErrValidation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
	case errors.Is(err, catalog.ErrPermissionDenied):
		httpx.WriteError(ctx, w, httpx.NewError("permission_denied", message, http.StatusForbidden))
	case errors.Is(err, catalog.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", message, http.StatusNotFound))
	case errors.Is(err, catalog.ErrConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", message, http.StatusConflict))
	case errors.Is(err, catalog.ErrProviderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("provider_unavailable", message, http.StatusServiceUnavailable))
	case errors.Is(err, catalog.ErrConfiguration):
		httpx.WriteError(ctx, w, httpx.NewError("configuration_error", "catalog is not configured", http.StatusInternalServerError))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("request_cancelled", "request cancelled", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "catalog request failed", http.StatusInternalServerError))
	}
}

func writeUnauthenticated(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
}

func writeServiceUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
}
