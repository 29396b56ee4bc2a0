package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"postit/internal/kv"
	"postit/internal/protocol"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockStore is a mock implementation of kv.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	args := m.Called(ctx, key)
	v, _ := args.Get(0).(json.RawMessage)
	return v, args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *MockStore) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).(map[string]json.RawMessage)
	return v, args.Error(1)
}

func (m *MockStore) Remove(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func handle(t *testing.T, g *Gateway, req protocol.Request) protocol.Response {
	t.Helper()
	resp, ok := g.Handle(context.Background(), req)
	require.True(t, ok, "expected a response for %s", req.Action)
	return resp
}

func TestGateway_SetGetAllRemove(t *testing.T) {
	g := New(kv.NewMemoryStore(), silentLogger)
	noteA := `{"id":"a","color":"yellow","x":1,"y":2,"rotate":0,"content":"","minimized":false}`
	value := json.RawMessage(`{"https://u1/":[` + noteA + `]}`)

	resp := handle(t, g, protocol.Request{Action: protocol.ActionSet, Key: "notes", Value: value})
	require.True(t, resp.Success)

	resp = handle(t, g, protocol.Request{Action: protocol.ActionGetAll})
	require.True(t, resp.Success)
	assert.JSONEq(t, `{"notes":{"https://u1/":[`+noteA+`]}}`, string(resp.Data))

	resp = handle(t, g, protocol.Request{Action: protocol.ActionRemove, Key: "notes"})
	require.True(t, resp.Success)

	resp = handle(t, g, protocol.Request{Action: protocol.ActionGet, Key: "notes"})
	require.True(t, resp.Success)
	assert.Nil(t, resp.Data, "removed key reads as undefined")
}

func TestGateway_RemoveWithoutKeyIsNoop(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), NotesKey, json.RawMessage(`{}`)))
	g := New(store, silentLogger)

	resp := handle(t, g, protocol.Request{Action: protocol.ActionRemove})
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)

	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Contains(t, all, NotesKey, "no key removes nothing")
}

func TestGateway_DefaultKey(t *testing.T) {
	g := New(kv.NewMemoryStore(), silentLogger)

	resp := handle(t, g, protocol.Request{Action: protocol.ActionSet, Value: json.RawMessage(`{"u":[]}`)})
	require.True(t, resp.Success)

	resp = handle(t, g, protocol.Request{Action: protocol.ActionGet, Key: NotesKey})
	assert.JSONEq(t, `{"u":[]}`, string(resp.Data))

	resp = handle(t, g, protocol.Request{Action: protocol.ActionGet})
	assert.JSONEq(t, `{"u":[]}`, string(resp.Data))
}

func TestGateway_GetByURLAndListURLs(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), NotesKey, json.RawMessage(
		`{"https://a/":[{"id":"1","color":"pink"}],"https://b/":[],"https://c/":[{"id":"2","color":"blue"}]}`)))
	g := New(store, silentLogger)

	resp := handle(t, g, protocol.Request{Action: protocol.ActionGetByURL, URL: "https://a/"})
	require.True(t, resp.Success)
	var notes []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "1", notes[0]["id"])

	resp = handle(t, g, protocol.Request{Action: protocol.ActionGetByURL, URL: "https://missing/"})
	assert.JSONEq(t, `[]`, string(resp.Data))

	resp = handle(t, g, protocol.Request{Action: protocol.ActionListURLs})
	assert.JSONEq(t, `["https://a/","https://c/"]`, string(resp.Data))
}

func TestGateway_EmptyStore(t *testing.T) {
	g := New(kv.NewMemoryStore(), silentLogger)

	resp := handle(t, g, protocol.Request{Action: protocol.ActionListURLs})
	assert.JSONEq(t, `[]`, string(resp.Data))

	resp = handle(t, g, protocol.Request{Action: protocol.ActionGetAll})
	assert.JSONEq(t, `{}`, string(resp.Data))
}

func TestGateway_Clear(t *testing.T) {
	store := kv.NewMemoryStore()
	g := New(store, silentLogger)
	handle(t, g, protocol.Request{Action: protocol.ActionSet, Key: "a", Value: json.RawMessage(`1`)})
	handle(t, g, protocol.Request{Action: protocol.ActionSet, Key: "b", Value: json.RawMessage(`2`)})

	resp := handle(t, g, protocol.Request{Action: protocol.ActionClear})
	require.True(t, resp.Success)

	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGateway_StoreFailure(t *testing.T) {
	store := new(MockStore)
	boom := errors.New("quota exceeded")
	store.On("Set", mock.Anything, "k", mock.Anything).Return(boom)
	store.On("Get", mock.Anything, NotesKey).Return(nil, false, boom)

	g := New(store, silentLogger)

	resp := handle(t, g, protocol.Request{Action: protocol.ActionSet, Key: "k", Value: json.RawMessage(`1`)})
	assert.False(t, resp.Success)
	assert.Equal(t, "quota exceeded", resp.Error)

	resp = handle(t, g, protocol.Request{Action: protocol.ActionListURLs})
	assert.False(t, resp.Success)

	assert.Equal(t, 1.0, testutil.ToFloat64(g.requests.WithLabelValues("set", outcomeError)))
	store.AssertExpectations(t)
}

func TestGateway_CorruptCollection(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), NotesKey, json.RawMessage(`"oops"`)))

	resp := handle(t, New(store, silentLogger), protocol.Request{Action: protocol.ActionGetByURL, URL: "u"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, NotesKey)
}

func TestGateway_UnknownAction(t *testing.T) {
	t.Run("ignored by default", func(t *testing.T) {
		g := New(kv.NewMemoryStore(), silentLogger)
		_, ok := g.Handle(context.Background(), protocol.Request{Action: "explode"})
		assert.False(t, ok)
		assert.Equal(t, 1.0, testutil.ToFloat64(g.requests.WithLabelValues("unknown", outcomeIgnored)))
	})

	t.Run("rejected when configured", func(t *testing.T) {
		g := New(kv.NewMemoryStore(), silentLogger, WithRejectUnknown(true))
		resp, ok := g.Handle(context.Background(), protocol.Request{Action: "explode"})
		require.True(t, ok)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, protocol.ErrUnknownAction.Error())
	})
}

func TestGateway_ServeAnswersEachCallOnce(t *testing.T) {
	g := New(kv.NewMemoryStore(), silentLogger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan Call)
	done := make(chan error, 1)
	go func() { done <- g.Serve(ctx, calls) }()

	replies := make(chan protocol.Response, 4)
	reply := func(r protocol.Response) { replies <- r }

	calls <- Call{Request: protocol.Request{Action: protocol.ActionSet, Key: "x", Value: json.RawMessage(`1`)}, Reply: reply}
	calls <- Call{Request: protocol.Request{Action: "nope"}, Reply: reply}
	calls <- Call{Request: protocol.Request{Action: protocol.ActionListURLs}, Reply: reply}

	for range 2 {
		select {
		case r := <-replies:
			assert.True(t, r.Success)
		case <-time.After(time.Second):
			t.Fatal("missing reply")
		}
	}
	select {
	case r := <-replies:
		t.Fatalf("unexpected extra reply %+v", r)
	case <-time.After(20 * time.Millisecond):
	}

	close(calls)
	assert.NoError(t, <-done)
}

func TestGateway_Toggle(t *testing.T) {
	g := New(kv.NewMemoryStore(), silentLogger)

	sub, cancel := g.Subscribe("tab-1")
	defer cancel()
	_, cancelOther := g.Subscribe("tab-2")
	defer cancelOther()

	assert.Equal(t, 2, g.Bridges())
	assert.Equal(t, 1, g.Toggle("tab-1"))
	assert.Equal(t, 0, g.Toggle("tab-9"))

	c := <-sub.Ch
	assert.Equal(t, protocol.ControlToggle, c.Type)
}
