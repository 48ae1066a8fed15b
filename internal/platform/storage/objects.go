package storage

import (
	"fmt"
	"strings"
	"time"
)

const objectSuffix = ".json"

// ObjectName composes the object path for a blob key under the configured prefix.
func ObjectName(prefix, key string) (string, error) {
	key, err := validateSegment("key", key)
	if err != nil {
		return "", err
	}
	return normalisePrefix(prefix) + key + objectSuffix, nil
}

// HistoryObjectName composes the object path that keeps the previous value of key as of ts.
func HistoryObjectName(prefix, key string, ts time.Time) (string, error) {
	key, err := validateSegment("key", key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%shistory/%s/%s%s", normalisePrefix(prefix), key, ts.UTC().Format("20060102T150405.000000000Z"), objectSuffix), nil
}

func normalisePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
