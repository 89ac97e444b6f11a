package store_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mallard/internal/adapters/store"
	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
)

func entry(name, value string) domain.CacheEntry {
	return domain.CacheEntry{
		Name:      name,
		Value:     json.RawMessage(value),
		ValueHash: "0011223344556677",
		Status:    domain.BuildSucceeded,
		Attempts:  1,
		BuiltAt:   time.Now().UTC().Truncate(time.Second),
	}
}

// TestStore_Contract exercises the behavior every backend shares.
func TestStore_Contract(t *testing.T) {
	t.Parallel()

	backends := []struct {
		name string
		open func(t *testing.T) ports.Store
	}{
		{"file", func(t *testing.T) ports.Store {
			s, err := store.NewFileStore(filepath.Join(t.TempDir(), "cache.json"))
			require.NoError(t, err)
			return s
		}},
		{"sharded", func(t *testing.T) ports.Store {
			s, err := store.NewShardedStore(t.TempDir())
			require.NoError(t, err)
			return s
		}},
		{"memory", func(t *testing.T) ports.Store {
			return store.NewMemoryStore()
		}},
	}

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			t.Parallel()

			t.Run("get missing returns nil nil", func(t *testing.T) {
				t.Parallel()
				s := backend.open(t)
				got, err := s.Get("absent")
				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("set then get round-trips", func(t *testing.T) {
				t.Parallel()
				s := backend.open(t)
				want := entry("a", "12")
				require.NoError(t, s.Set(want))

				got, err := s.Get("a")
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, want, *got)
			})

			t.Run("set overwrites", func(t *testing.T) {
				t.Parallel()
				s := backend.open(t)
				require.NoError(t, s.Set(entry("a", "12")))
				require.NoError(t, s.Set(entry("a", "13")))

				got, err := s.Get("a")
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, json.RawMessage("13"), got.Value)
			})

			t.Run("delete removes", func(t *testing.T) {
				t.Parallel()
				s := backend.open(t)
				require.NoError(t, s.Set(entry("a", "12")))
				require.NoError(t, s.Delete("a"))

				got, err := s.Get("a")
				require.NoError(t, err)
				assert.Nil(t, got)

				// Deleting again is fine.
				require.NoError(t, s.Delete("a"))
			})

			t.Run("list is sorted", func(t *testing.T) {
				t.Parallel()
				s := backend.open(t)
				for _, name := range []string{"zeta", "alpha", "mid"} {
					require.NoError(t, s.Set(entry(name, "1")))
				}

				names, err := s.List()
				require.NoError(t, err)
				assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
			})

			t.Run("destroy empties the store", func(t *testing.T) {
				t.Parallel()
				s := backend.open(t)
				require.NoError(t, s.Set(entry("a", "12")))
				require.NoError(t, s.Destroy())

				got, err := s.Get("a")
				require.NoError(t, err)
				assert.Nil(t, got)
			})
		})
	}
}

func TestFileStore_Persistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")

	first, err := store.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(entry("a", "12")))

	second, err := store.NewFileStore(path)
	require.NoError(t, err)
	got, err := second.Get("a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, json.RawMessage("12"), got.Value)
}

func TestShardedStore_Persistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := store.NewShardedStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(entry("a", "12")))

	second, err := store.NewShardedStore(dir)
	require.NoError(t, err)
	got, err := second.Get("a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, json.RawMessage("12"), got.Value)
}

func TestShardedStore_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	s, err := store.NewShardedStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Set(entry(name, "1")))
		}()
	}
	wg.Wait()

	got, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, names, got)
}

func TestShardedStore_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := store.NewShardedStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(entry("a", "12")))

	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, filepath.Base(path))
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Regexp(t, `^[0-9a-f]{16}\.json$`, files[0])
}

func TestSharedWriteSafe(t *testing.T) {
	t.Parallel()

	fileStore, err := store.NewFileStore(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)
	assert.False(t, fileStore.SharedWriteSafe())

	sharded, err := store.NewShardedStore(t.TempDir())
	require.NoError(t, err)
	assert.True(t, sharded.SharedWriteSafe())

	assert.True(t, store.NewMemoryStore().SharedWriteSafe())
}

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	s, err := store.Open(store.BackendSharded, filepath.Join(dir, "cache"))
	require.NoError(t, err)
	assert.IsType(t, &store.ShardedStore{}, s)

	s, err = store.Open(store.BackendFile, filepath.Join(dir, "cache.json"))
	require.NoError(t, err)
	assert.IsType(t, &store.FileStore{}, s)

	s, err = store.Open(store.BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	_, err = store.Open("bolt", "")
	require.ErrorIs(t, err, domain.ErrInvalidOverride)
}
