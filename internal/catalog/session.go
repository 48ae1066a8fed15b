package catalog

import "strings"

// CategoryCache maps category names to provider ids for the lifetime of one batch.
type CategoryCache struct {
	ids map[string]string
}

func newCategoryCache() *CategoryCache {
	return &CategoryCache{ids: make(map[string]string)}
}

// Lookup returns the cached id for name.
func (c *CategoryCache) Lookup(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	id, ok := c.ids[name]
	return id, ok
}

// Store records id for name. Empty ids are not cached so later records retry the lookup.
func (c *CategoryCache) Store(name, id string) {
	if c == nil || strings.TrimSpace(id) == "" {
		return
	}
	c.ids[name] = id
}

// Len reports the number of cached categories.
func (c *CategoryCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// SyncSession carries the batch-scoped state of one write batch: the attempt number used in
// idempotency keys and one category cache per namespace. Records in a batch are processed
// sequentially against the same session so later records see categories created by earlier ones.
type SyncSession struct {
	Attempt   int
	display   *CategoryCache
	reporting *CategoryCache
}

// NewSyncSession starts a session for a batch submitted with the given attempt number.
func NewSyncSession(attempt int) *SyncSession {
	if attempt < 1 {
		attempt = 1
	}
	return &SyncSession{
		Attempt:   attempt,
		display:   newCategoryCache(),
		reporting: newCategoryCache(),
	}
}

// Display returns the cache for "{artist} - {type}" categories.
func (s *SyncSession) Display() *CategoryCache { return s.display }

// Reporting returns the cache for artist-only reporting categories.
func (s *SyncSession) Reporting() *CategoryCache { return s.reporting }
