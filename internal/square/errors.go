package square

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrMissingCredentials is returned when the client is constructed without an access token.
	ErrMissingCredentials = errors.New("square: access token is required")
	// ErrInvalidResponse is returned when a response body lacks fields the client depends on.
	ErrInvalidResponse = errors.New("square: invalid response")
)

// Provider error categories and codes the client classifies on.
const (
	categoryInvalidRequest = "INVALID_REQUEST_ERROR"
	categoryAPI            = "API_ERROR"
	categoryRateLimit      = "RATE_LIMIT_ERROR"

	codeVersionMismatch = "VERSION_MISMATCH"
	codeConflict        = "CONFLICT"
	codeNotFound        = "NOT_FOUND"
	codeServiceUnavail  = "SERVICE_UNAVAILABLE"
)

// ErrorDetail mirrors one entry of the provider's errors array.
type ErrorDetail struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail,omitempty"`
	Field    string `json:"field,omitempty"`
}

// APIError describes a failed provider call. Status is zero when the request never produced a response.
type APIError struct {
	Op      string
	Status  int
	Details []ErrorDetail
	Err     error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("square ")
	b.WriteString(e.Op)
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if detail := e.Detail(); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Detail returns the provider's human-readable detail for the first error, or its code.
func (e *APIError) Detail() string {
	if e == nil {
		return ""
	}
	for _, d := range e.Details {
		if text := strings.TrimSpace(d.Detail); text != "" {
			return text
		}
	}
	for _, d := range e.Details {
		if code := strings.TrimSpace(d.Code); code != "" {
			return code
		}
	}
	return ""
}

// IsConflict reports stale version tokens and other concurrent modification failures.
func (e *APIError) IsConflict() bool {
	if e == nil {
		return false
	}
	if e.Status == http.StatusConflict {
		return true
	}
	return e.hasCode(codeVersionMismatch, codeConflict)
}

// IsNotFound reports whether the referenced object does not exist.
func (e *APIError) IsNotFound() bool {
	if e == nil {
		return false
	}
	return e.Status == http.StatusNotFound || e.hasCode(codeNotFound)
}

// IsValidation reports a malformed request that will not succeed on retry.
func (e *APIError) IsValidation() bool {
	if e == nil || e.IsConflict() || e.IsNotFound() {
		return false
	}
	if e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity {
		return true
	}
	return e.hasCategory(categoryInvalidRequest) && e.Status < http.StatusInternalServerError
}

// IsUnavailable reports transport failures, timeouts, throttling and provider-side errors.
func (e *APIError) IsUnavailable() bool {
	if e == nil {
		return false
	}
	if e.Status == 0 {
		return true
	}
	if e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError {
		return true
	}
	return e.hasCategory(categoryRateLimit) || e.hasCode(codeServiceUnavail) ||
		(e.hasCategory(categoryAPI) && e.Status >= http.StatusInternalServerError)
}

func (e *APIError) hasCode(codes ...string) bool {
	for _, d := range e.Details {
		for _, code := range codes {
			if strings.EqualFold(d.Code, code) {
				return true
			}
		}
	}
	return false
}

func (e *APIError) hasCategory(category string) bool {
	for _, d := range e.Details {
		if strings.EqualFold(d.Category, category) {
			return true
		}
	}
	return false
}
