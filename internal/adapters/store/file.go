// Package store implements the pluggable cache backends: a sharded file
// store safe for concurrent multi-worker writes, a single-file store that is
// simple to version and share but needs a single writer, and a non-persistent
// in-memory store.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Store = (*FileStore)(nil)

// FileStore keeps every cache entry in one flat JSON file. The whole file is
// rewritten on each Set, so only a single writer may use it at a time; the
// scheduler routes all writes through the coordinator for this backend.
type FileStore struct {
	path  string
	mu    sync.RWMutex
	cache map[string]domain.CacheEntry
}

// NewFileStore creates a single-file store backed by the file at the given
// path, loading any existing entries.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:  filepath.Clean(path),
		cache: make(map[string]domain.CacheEntry),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, domain.ErrStore.Error())
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.cache); err != nil {
		return zerr.Wrap(err, domain.ErrStore.Error())
	}

	return nil
}

func (s *FileStore) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.cache, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStore.Error())
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, domain.ErrStore.Error())
	}

	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return zerr.Wrap(err, domain.ErrStore.Error())
	}

	return nil
}

// Get retrieves the cache entry for a target name.
func (s *FileStore) Get(name string) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[name]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Set stores the cache entry and rewrites the backing file.
func (s *FileStore) Set(entry domain.CacheEntry) error {
	s.mu.Lock()
	s.cache[entry.Name] = entry
	s.mu.Unlock()

	return s.save()
}

// Delete removes the entry for a target name.
func (s *FileStore) Delete(name string) error {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()

	return s.save()
}

// List returns all stored target names, sorted.
func (s *FileStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.cache))
	for name := range s.cache {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Destroy removes the backing file and clears the in-memory view.
func (s *FileStore) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]domain.CacheEntry)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.Wrap(err, domain.ErrStore.Error())
	}
	return nil
}

// SharedWriteSafe reports false: the whole file is rewritten per Set.
func (s *FileStore) SharedWriteSafe() bool {
	return false
}
