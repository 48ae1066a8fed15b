package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyKind names the write operation an idempotency key guards.
type KeyKind string

const (
	KeyCreateItem KeyKind = "create-item"
	KeyUpdateItem KeyKind = "update-item"
	KeyCategory   KeyKind = "category"
	KeyCount      KeyKind = "count"
)

// IdempotencyKey derives the provider idempotency key from the operation, a stable entity id and
// the caller's attempt number. Retrying with the same attempt reuses the key; a deliberate
// re-submission bumps the attempt.
func IdempotencyKey(kind KeyKind, entityID string, attempt int) string {
	if attempt < 1 {
		attempt = 1
	}
	return fmt.Sprintf("%s-%s-%d", kind, strings.TrimSpace(entityID), attempt)
}

func createItemKey(localID string, attempt int) string {
	return IdempotencyKey(KeyCreateItem, localID, attempt)
}

func updateItemKey(itemID string, version int64, attempt int) string {
	return IdempotencyKey(KeyUpdateItem, itemID+"-v"+strconv.FormatInt(version, 10), attempt)
}

func categoryKey(slug string, attempt int) string {
	return IdempotencyKey(KeyCategory, slug, attempt)
}

func countKey(variationID string, quantity, attempt int) string {
	return IdempotencyKey(KeyCount, variationID+"-q"+strconv.Itoa(quantity), attempt)
}
