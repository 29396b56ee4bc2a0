package postit

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// mapKV is a KV over a plain map.
type mapKV struct {
	mu     sync.Mutex
	data   map[string]json.RawMessage
	writes int
}

func newMapKV() *mapKV {
	return &mapKV{data: make(map[string]json.RawMessage)}
}

func (m *mapKV) Get(key string) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mapKV) Set(key string, value json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.writes++
}
