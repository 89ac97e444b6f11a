package ports

import "go.trai.ch/mallard/internal/core/domain"

// Store is the pluggable key-value cache behind the engine. The key is the
// target name; the value is the full cache entry.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type Store interface {
	// Get retrieves the cache entry for a target name.
	// Returns nil, nil if not found.
	Get(name string) (*domain.CacheEntry, error)

	// Set stores the cache entry, overwriting any previous one.
	Set(entry domain.CacheEntry) error

	// Delete removes the entry for a target name. Deleting a missing entry
	// is not an error.
	Delete(name string) error

	// List returns all stored target names, sorted.
	List() ([]string, error)

	// Destroy removes the cache storage entirely.
	Destroy() error

	// SharedWriteSafe reports whether distinct keys may be written
	// concurrently by multiple workers. Backends that require a single
	// writer return false; all writes are then routed through the
	// coordinator.
	SharedWriteSafe() bool
}
