package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"postit/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postit.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store, path
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	_, found, err := store.Get(ctx, "notes")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "notes", json.RawMessage(`{"url1":[{"id":"a"}]}`)))
	v, found, err := store.Get(ctx, "notes")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"url1":[{"id":"a"}]}`, string(v))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.JSONEq(t, `{"url1":[{"id":"a"}]}`, string(all["notes"]))

	require.NoError(t, store.Remove(ctx, "notes"))
	_, found, err = store.Get(ctx, "notes")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_KeysKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, store.Set(ctx, k, json.RawMessage(`1`)))
	}
	require.NoError(t, store.Set(ctx, "c", json.RawMessage(`2`)))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, keys)

	v, _, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.JSONEq(t, `2`, string(v))
}

func TestStore_Validation(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	assert.ErrorIs(t, store.Set(ctx, "", json.RawMessage(`1`)), kv.ErrKeyRequired)
	assert.ErrorIs(t, store.Remove(ctx, ""), kv.ErrKeyRequired)
	assert.Error(t, store.Set(ctx, "k", json.RawMessage(`{broken`)))

	require.NoError(t, store.Set(ctx, "nil", nil))
	v, found, err := store.Get(ctx, "nil")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "null", string(v))
}

func TestStore_ClearAndReopen(t *testing.T) {
	ctx := context.Background()
	store, path := openTestStore(t)

	require.NoError(t, store.Set(ctx, "a", json.RawMessage(`"x"`)))
	require.NoError(t, store.Set(ctx, "b", json.RawMessage(`"y"`)))

	reopened, err := Open(path)
	require.NoError(t, err)
	all, err := reopened.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "data survives reopening")
	require.NoError(t, reopened.Close())

	require.NoError(t, store.Clear(ctx))
	all, err = store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_NilIsNotConfigured(t *testing.T) {
	var store *Store
	ctx := context.Background()

	_, _, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, store.Ping(ctx), ErrNotConfigured)
	assert.NoError(t, store.Close())
}

func TestStore_InMemory(t *testing.T) {
	ctx := context.Background()
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "k", json.RawMessage(`true`)))
	require.NoError(t, store.Ping(ctx))

	v, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `true`, string(v))
}
