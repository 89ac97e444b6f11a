package store

import (
	"slices"
	"sync"

	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
)

var _ ports.Store = (*MemoryStore)(nil)

// MemoryStore keeps cache entries in a process-local map. It is the fastest
// backend and the only non-persistent one: everything is lost at exit.
type MemoryStore struct {
	mu    sync.RWMutex
	cache map[string]domain.CacheEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: make(map[string]domain.CacheEntry),
	}
}

// Get retrieves the cache entry for a target name.
func (s *MemoryStore) Get(name string) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[name]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Set stores the cache entry.
func (s *MemoryStore) Set(entry domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[entry.Name] = entry
	return nil
}

// Delete removes the entry for a target name.
func (s *MemoryStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, name)
	return nil
}

// List returns all stored target names, sorted.
func (s *MemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.cache))
	for name := range s.cache {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Destroy clears all entries.
func (s *MemoryStore) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]domain.CacheEntry)
	return nil
}

// SharedWriteSafe reports true: the map is guarded by its own lock.
func (s *MemoryStore) SharedWriteSafe() bool {
	return true
}
