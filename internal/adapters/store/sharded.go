package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Store = (*ShardedStore)(nil)

// ShardedStore keeps one JSON file per cache entry, fanned out across 256
// shard directories keyed by the entry name's hash. Each write goes to a
// temporary file followed by an atomic rename, so distinct keys may be
// written concurrently by multiple workers without partial-file reads.
// The trade-off is many small files, which makes the cache awkward to copy
// or version as a unit.
type ShardedStore struct {
	dir string
}

// NewShardedStore creates a sharded store rooted at the given directory.
func NewShardedStore(dir string) (*ShardedStore, error) {
	cleaned := filepath.Clean(dir)
	if err := os.MkdirAll(cleaned, 0o750); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStore.Error())
	}
	return &ShardedStore{dir: cleaned}, nil
}

func (s *ShardedStore) entryPath(name string) string {
	sum := xxhash.Sum64String(name)
	shard := fmt.Sprintf("%02x", byte(sum))
	return filepath.Join(s.dir, shard, fmt.Sprintf("%016x.json", sum))
}

// Get retrieves the cache entry for a target name.
func (s *ShardedStore) Get(name string) (*domain.CacheEntry, error) {
	//nolint:gosec // Path is derived from the name's hash under the store dir
	data, err := os.ReadFile(s.entryPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStore.Error()), "name", name)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStore.Error()), "name", name)
	}
	return &entry, nil
}

// Set writes the entry to a temporary file in the shard directory and
// renames it into place. The rename makes each key's write independently
// atomic.
func (s *ShardedStore) Set(entry domain.CacheEntry) error {
	path := s.entryPath(entry.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return zerr.Wrap(err, domain.ErrStore.Error())
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return zerr.Wrap(err, domain.ErrStore.Error())
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStore.Error())
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, domain.ErrStore.Error())
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, domain.ErrStore.Error())
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, domain.ErrStore.Error())
	}
	return nil
}

// Delete removes the entry for a target name.
func (s *ShardedStore) Delete(name string) error {
	if err := os.Remove(s.entryPath(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrStore.Error()), "name", name)
	}
	return nil
}

// List returns all stored target names, sorted. Names are read from the
// entries themselves; the file names only carry hashes.
func (s *ShardedStore) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		//nolint:gosec // Path comes from walking the store dir
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var entry domain.CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}
		names = append(names, entry.Name)
		return nil
	})
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStore.Error())
	}
	slices.Sort(names)
	return names, nil
}

// Destroy removes the store directory and everything under it.
func (s *ShardedStore) Destroy() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return zerr.Wrap(err, domain.ErrStore.Error())
	}
	return nil
}

// SharedWriteSafe reports true: writes of distinct keys are independent
// atomic renames.
func (s *ShardedStore) SharedWriteSafe() bool {
	return true
}
