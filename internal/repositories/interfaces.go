package repositories

import (
	"context"

	domain "github.com/cbg-gallery/portal/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by the catalog layer.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// BlobRepository stores opaque string values under fixed keys. A missing key is reported with
// ok=false rather than an error.
type BlobRepository interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// HealthRepository evaluates dependency health for readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
