package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// MemoryBlobRepository keeps blobs in process memory. It backs local development and tests.
type MemoryBlobRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ BlobRepository = (*MemoryBlobRepository)(nil)

// NewMemoryBlobRepository constructs an empty in-memory blob repository.
func NewMemoryBlobRepository() *MemoryBlobRepository {
	return &MemoryBlobRepository{values: make(map[string]string)}
}

// Get returns the stored value for key.
func (r *MemoryBlobRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.values[key]
	return value, ok, nil
}

// Set replaces the stored value for key.
func (r *MemoryBlobRepository) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("memory blob repository: key is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}
