// file: internal/memory/store_test.go
package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkoosis/toolwire/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "mem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"inmemory": NewInMemoryStore(),
		"sqlite":   sq,
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			missing, err := s.Get(ctx, "nope")
			require.NoError(t, err, "A missing key is not an error.")
			assert.Nil(t, missing)

			first, err := s.Put(ctx, Entry{Key: "a", Category: "notes", Content: "alpha"})
			require.NoError(t, err)
			assert.NotEmpty(t, first.ID)
			assert.False(t, first.CreatedAt.IsZero())

			_, err = s.Put(ctx, Entry{Key: "b", Category: "facts", Content: "beta"})
			require.NoError(t, err)
			_, err = s.Put(ctx, Entry{Key: "c", Category: "notes", Content: "gamma"})
			require.NoError(t, err)

			got, err := s.Get(ctx, "a")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "alpha", got.Content)
			assert.Equal(t, first.ID, got.ID)

			all, err := s.List(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].Key, all[1].Key, all[2].Key})

			notes, err := s.List(ctx, Filter{Category: "notes"})
			require.NoError(t, err)
			assert.Len(t, notes, 2)

			limited, err := s.List(ctx, Filter{Limit: 1})
			require.NoError(t, err)
			require.Len(t, limited, 1)
			assert.Equal(t, "a", limited[0].Key)

			replaced, err := s.Put(ctx, Entry{Key: "a", Category: "notes", Content: "alpha2"})
			require.NoError(t, err)
			assert.Equal(t, first.ID, replaced.ID, "Replacing keeps the id.")
			assert.Equal(t, "alpha2", replaced.Content)

			all, err = s.List(ctx, Filter{})
			require.NoError(t, err)
			assert.Len(t, all, 3)
			assert.Equal(t, "a", all[0].Key, "Replacing keeps the insertion position.")

			_, err = s.Put(ctx, Entry{Content: "no key"})
			assert.ErrorIs(t, err, ErrEmptyKey)
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mem.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err = s.Put(context.Background(), Entry{Key: "k", Content: "v", CreatedAt: created})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v", got.Content)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestOpen_SelectsDriver(t *testing.T) {
	s, err := Open(config.StoreConfig{})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, s)

	s, err = Open(config.StoreConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	_ = s.(*SQLiteStore).Close()

	_, err = Open(config.StoreConfig{Driver: "redis"})
	assert.Error(t, err)
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entries:
  - key: greeting
    category: notes
    content: hello there
  - key: motto
    content: keep it simple
`), 0o600))

	s := NewInMemoryStore()
	n, err := LoadSeed(context.Background(), s, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Len())

	e, err := s.Get(context.Background(), "greeting")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "hello there", e.Content)

	_, err = LoadSeed(context.Background(), s, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
