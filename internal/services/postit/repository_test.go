package postit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pageA = "https://a.example/page"
	pageB = "https://b.example/"
)

func TestKVRepository_CRUD(t *testing.T) {
	kv := newMapKV()
	repo := NewKVRepository(kv, pageA, silentLogger)

	assert.Empty(t, repo.Notes())

	repo.Create(Note{ID: "1", Color: Yellow})
	repo.Create(Note{ID: "2", Color: Pink})
	require.Len(t, repo.Notes(), 2)
	assert.Equal(t, "1", repo.Notes()[0].ID, "insertion order is display order")

	repo.Update(Note{ID: "2", Color: Blue, X: 10})
	assert.Equal(t, Blue, repo.Notes()[1].Color)
	assert.Equal(t, 10, repo.Notes()[1].X)

	repo.UpdateContent("1", "hello")
	assert.Equal(t, "hello", repo.Notes()[0].Content)

	repo.Update(Note{ID: "missing"})
	assert.Len(t, repo.Notes(), 2)

	repo.Delete("1")
	require.Len(t, repo.Notes(), 1)
	assert.Equal(t, "2", repo.Notes()[0].ID)
}

func TestKVRepository_PagesShareOneCollection(t *testing.T) {
	kv := newMapKV()
	a := NewKVRepository(kv, pageA, silentLogger)
	b := NewKVRepository(kv, pageB, silentLogger)

	a.Create(Note{ID: "a1"})
	b.Create(Note{ID: "b1"})

	raw, ok := kv.Get(NotesKey)
	require.True(t, ok)

	var c Collection
	require.NoError(t, json.Unmarshal(raw, &c))
	assert.Len(t, c[pageA], 1)
	assert.Len(t, c[pageB], 1)
	assert.Equal(t, []string{pageA, pageB}, c.URLs())
}

func TestKVRepository_EmptyPageDisappears(t *testing.T) {
	kv := newMapKV()
	repo := NewKVRepository(kv, pageA, silentLogger)

	repo.Create(Note{ID: "1"})
	repo.Delete("1")

	c := LoadCollection(kv, silentLogger)
	assert.NotContains(t, c, pageA)
	assert.Empty(t, c.URLs())
}

func TestLoadCollection_CorruptValue(t *testing.T) {
	kv := newMapKV()
	kv.Set(NotesKey, json.RawMessage(`"not a map"`))

	c := LoadCollection(kv, silentLogger)
	assert.NotNil(t, c)
	assert.Empty(t, c)

	kv.Set(NotesKey, json.RawMessage(`null`))
	assert.NotNil(t, LoadCollection(kv, silentLogger))
}
