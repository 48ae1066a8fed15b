package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cbg-gallery/portal/internal/platform/textutil"
	"github.com/cbg-gallery/portal/internal/square"
)

const categorySlugLimit = 40

// Resolver finds or creates provider categories by exact name.
type Resolver struct {
	store  ArtifactStore
	logger func(context.Context, string, map[string]any)
}

// NewResolver returns a resolver backed by store.
func NewResolver(store ArtifactStore, logger func(context.Context, string, map[string]any)) *Resolver {
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Resolver{store: store, logger: logger}
}

// ResolveOrCreate returns the provider id of the category called name, consulting cache, then
// an exact-name search, then creating it. Failures are logged and yield "" so the caller can
// still write the item without the category link.
func (r *Resolver) ResolveOrCreate(ctx context.Context, cache *CategoryCache, name string, attempt int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if id, ok := cache.Lookup(name); ok {
		return id
	}

	id, err := r.store.SearchCategoryByName(ctx, name)
	if err != nil {
		r.logger(ctx, "catalog.category.search_failed", map[string]any{"category": name, "error": err.Error()})
		return ""
	}
	if id != "" {
		cache.Store(name, id)
		return id
	}

	slug := categorySlug(name)
	tempID := "#category-" + slug
	res, err := r.store.UpsertObject(ctx, categoryKey(slug, attempt), square.CatalogObject{
		Type:         square.ObjectTypeCategory,
		ID:           tempID,
		CategoryData: &square.CategoryData{Name: name},
	})
	if err != nil {
		r.logger(ctx, "catalog.category.create_failed", map[string]any{"category": name, "error": err.Error()})
		return ""
	}
	id = res.IDMappings[tempID]
	if id == "" {
		id = res.Object.ID
	}
	r.logger(ctx, "catalog.category.created", map[string]any{"category": name, "categoryId": id})
	cache.Store(name, id)
	return id
}

// categorySlug is the sanitised name used in idempotency keys and temporary ids. The slug drops
// punctuation and is truncated, so a short hash of the exact name keeps distinct names apart.
// Names with no usable characters are keyed by the hash alone.
func categorySlug(name string) string {
	sum := sha256.Sum256([]byte(name))
	digest := hex.EncodeToString(sum[:])
	if slug := textutil.Slug(name, categorySlugLimit); slug != "" {
		return slug + "-" + digest[:8]
	}
	return digest[:12]
}

// DisplayCategoryName is the "{artist} - {type}" category, or the artist alone when type is empty.
func DisplayCategoryName(artistName, artworkType string) string {
	artistName = strings.TrimSpace(artistName)
	artworkType = strings.TrimSpace(artworkType)
	if artworkType == "" {
		return artistName
	}
	if artistName == "" {
		return artworkType
	}
	return artistName + " - " + artworkType
}
