package postit

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Notes() []Note {
	args := m.Called()
	return args.Get(0).([]Note)
}

func (m *MockRepository) Create(n Note) { m.Called(n) }

func (m *MockRepository) Update(n Note) { m.Called(n) }

func (m *MockRepository) UpdateContent(id, content string) { m.Called(id, content) }

func (m *MockRepository) Delete(id string) { m.Called(id) }

func newTestBoard(repo Repository) *Board {
	return NewBoard(repo, silentLogger, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestBoard_CreateWithinBounds(t *testing.T) {
	repo := NewKVRepository(newMapKV(), pageA, silentLogger)
	b := newTestBoard(repo)

	for range 200 {
		n := b.Create()
		require.NoError(t, Validate(n))
		assert.GreaterOrEqual(t, n.X, 50)
		assert.Less(t, n.X, 450)
		assert.GreaterOrEqual(t, n.Y, 50)
		assert.Less(t, n.Y, 350)
		assert.GreaterOrEqual(t, n.Rotate, MinRotate)
		assert.Less(t, n.Rotate, MaxRotate)
		assert.Empty(t, n.Content)
		assert.False(t, n.Minimized)
	}
	assert.Len(t, b.Notes(), 200)
}

func TestBoard_MinimizeRestore(t *testing.T) {
	repo := NewKVRepository(newMapKV(), pageA, silentLogger)
	b := newTestBoard(repo)

	n1 := b.Create()
	n2 := b.Create()

	require.NoError(t, b.Minimize(n1.ID))
	assert.Equal(t, []string{n2.ID}, ids(b.Visible()))
	assert.Equal(t, []string{n1.ID}, ids(b.Tray()))

	require.NoError(t, b.Restore(n1.ID))
	assert.Len(t, b.Visible(), 2)
	assert.Empty(t, b.Tray())

	assert.ErrorIs(t, b.Minimize("nope"), ErrNoteNotFound)
}

func TestBoard_Move(t *testing.T) {
	repo := NewKVRepository(newMapKV(), pageA, silentLogger)
	b := newTestBoard(repo)
	n := b.Create()

	require.NoError(t, b.Move(n.ID, 310, 42))
	got := b.Notes()[0]
	assert.Equal(t, 310, got.X)
	assert.Equal(t, 42, got.Y)
}

func TestBoard_EditSanitizesContent(t *testing.T) {
	repo := new(MockRepository)
	note := Note{ID: "n1", Color: Yellow}
	repo.On("Notes").Return([]Note{note})
	repo.On("UpdateContent", "n1", mock.MatchedBy(func(content string) bool {
		return content == "<b>hi</b>"
	})).Return()

	b := newTestBoard(repo)
	require.NoError(t, b.Edit("n1", `<b>hi</b><script>alert(1)</script>`))

	repo.AssertExpectations(t)
}

func TestBoard_EditUnknownNote(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Notes").Return([]Note{})

	b := newTestBoard(repo)
	assert.ErrorIs(t, b.Edit("missing", "x"), ErrNoteNotFound)
	repo.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything)
}

func TestBoard_EndEdit(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantDeleted bool
	}{
		{name: "empty", content: "", wantDeleted: true},
		{name: "whitespace", content: "   ", wantDeleted: true},
		{name: "only markup", content: "<br>", wantDeleted: true},
		{name: "text", content: "<b>milk</b>", wantDeleted: false},
		{name: "image", content: `<img src="https://x.example/a.png">`, wantDeleted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			repo.On("Notes").Return([]Note{{ID: "n1", Content: tt.content}})
			if tt.wantDeleted {
				repo.On("Delete", "n1").Return()
			}

			deleted, err := newTestBoard(repo).EndEdit("n1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, deleted)
			repo.AssertExpectations(t)
		})
	}
}

func TestBoard_Delete(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Notes").Return([]Note{{ID: "n1"}})
	repo.On("Delete", "n1").Return()

	b := newTestBoard(repo)
	require.NoError(t, b.Delete("n1"))
	assert.ErrorIs(t, b.Delete("n2"), ErrNoteNotFound)
	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestBoard_Toggle(t *testing.T) {
	b := newTestBoard(new(MockRepository))
	assert.False(t, b.Hidden())
	assert.True(t, b.Toggle())
	assert.True(t, b.Hidden())
	assert.False(t, b.Toggle())
}

func ids(notes []Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}
