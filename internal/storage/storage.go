// Package storage is the opaque key-value persistence contract. The
// engine stores color mappings and custom device profiles through it
// without depending on a specific medium.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound marks a missing key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a namespaced key-value store.
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) (map[string][]byte, error)
	Close() error
}

// Open creates a store for the configured driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
