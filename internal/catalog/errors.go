package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cbg-gallery/portal/internal/square"
)

var (
	// ErrConfiguration indicates missing provider credentials or settings; the service cannot start.
	ErrConfiguration = errors.New("catalog: configuration error")
	// ErrNotFound indicates an item, category or archive entry that was expected to exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrConflict indicates a stale version token on update.
	ErrConflict = errors.New("catalog: conflict")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("catalog: invalid input")
	// ErrProviderUnavailable indicates network, timeout or provider-side failures.
	ErrProviderUnavailable = errors.New("catalog: provider unavailable")
	// ErrPartialFailure indicates a batch where some records succeeded and some failed.
	ErrPartialFailure = errors.New("catalog: partial failure")
	// ErrPermissionDenied indicates the member may not act on another artist's records.
	ErrPermissionDenied = errors.New("catalog: permission denied")
	// ErrMissingVersion is returned for updates that carry no version token. It is never sent upstream.
	ErrMissingVersion = fmt.Errorf("%w: version token is required for updates", ErrValidation)
)

const genericWriteFailure = "catalog write failed"

// mapProviderError translates provider failures onto the catalog sentinels, keeping the provider's
// detail text in the message.
func mapProviderError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *square.APIError
	if errors.As(err, &apiErr) {
		detail := apiErr.Detail()
		if detail == "" {
			detail = apiErr.Error()
		}
		switch {
		case apiErr.IsConflict():
			return fmt.Errorf("%w: %s", ErrConflict, detail)
		case apiErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrNotFound, detail)
		case apiErr.IsValidation():
			return fmt.Errorf("%w: %s", ErrValidation, detail)
		case apiErr.IsUnavailable():
			return fmt.Errorf("%w: %s", ErrProviderUnavailable, detail)
		}
		return fmt.Errorf("catalog: provider error: %s", detail)
	}
	if errors.Is(err, square.ErrInvalidResponse) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return err
}

// resultMessage renders err for a batch result: the provider's detail when available, the
// validation reason for local rejections, otherwise a generic message.
func resultMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *square.APIError
	if errors.As(err, &apiErr) {
		if detail := apiErr.Detail(); detail != "" {
			return detail
		}
		return genericWriteFailure
	}
	for _, sentinel := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrProviderUnavailable, ErrPermissionDenied} {
		if errors.Is(err, sentinel) {
			return strings.TrimPrefix(err.Error(), "catalog: ")
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "batch cancelled: " + err.Error()
	}
	return genericWriteFailure
}
