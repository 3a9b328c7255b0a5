package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Set("automation_config:dev-1", `{"triggers":[]}`))
	value, err := store.Get("automation_config:dev-1")
	require.NoError(t, err)
	assert.Equal(t, `{"triggers":[]}`, value)
}

func TestStoreGetMissingKey(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestStoreSetOverwrites(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Set("k", "v1"))
	require.NoError(t, store.Set("k", "v2"))
	value, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
}

func TestStoreDelete(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Set("k", "v"))
	require.NoError(t, store.Delete("k"))
	_, err := store.Get("k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is a no-op.
	require.NoError(t, store.Delete("k"))
}

func TestOpenStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "settings.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Set("k", "v"))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("k", "v"))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	value, err := reopened.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}
