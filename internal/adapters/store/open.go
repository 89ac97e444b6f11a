package store

import (
	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/zerr"
)

// Backend names accepted by Open and the --backend flag.
const (
	BackendSharded = "sharded"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// Open constructs a store of the named backend at the given path. The path
// is a directory for the sharded backend, a file for the single-file
// backend, and ignored for the in-memory backend.
func Open(backend, path string) (ports.Store, error) {
	switch backend {
	case BackendSharded:
		return NewShardedStore(path)
	case BackendFile:
		return NewFileStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidOverride, "unknown cache backend"), "backend", backend)
	}
}
