package facade

import (
	"context"
	"encoding/json"
	"errors"

	"postit/internal/kv"
	"postit/internal/pending"
	"postit/internal/protocol"
)

// ErrNoExtension is returned by operations that need the bridge when none
// announced itself.
var ErrNoExtension = errors.New("extension not available")

// Backend persists the writes the Facade has already applied to its cache.
type Backend interface {
	Name() string
	// Load returns the durable snapshot.
	Load(ctx context.Context) (map[string]json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Backend names.
const (
	BackendExtension = "extension"
	BackendLocal     = "local"
	BackendMemory    = "memory"
)

// extension reaches the gateway through the bridge on the page channel.
type extension struct {
	page    Page
	pending *pending.Table[protocol.Response]
}

func (e *extension) Name() string { return BackendExtension }

func (e *extension) request(ctx context.Context, req protocol.Request) (json.RawMessage, error) {
	id, ch := e.pending.Register()
	e.page.Post(protocol.StorageRequest(id, req))

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if err := r.Value.Err(); err != nil {
			return nil, err
		}
		return r.Value.Data, nil
	case <-ctx.Done():
		e.pending.Reject(id, ctx.Err())
		return nil, ctx.Err()
	}
}

func (e *extension) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	data, err := e.request(ctx, protocol.Request{Action: protocol.ActionGetAll})
	if err != nil {
		return nil, err
	}
	var snapshot map[string]json.RawMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}

func (e *extension) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := e.request(ctx, protocol.Request{Action: protocol.ActionSet, Key: key, Value: value})
	return err
}

func (e *extension) Remove(ctx context.Context, key string) error {
	_, err := e.request(ctx, protocol.Request{Action: protocol.ActionRemove, Key: key})
	return err
}

func (e *extension) Clear(ctx context.Context) error {
	_, err := e.request(ctx, protocol.Request{Action: protocol.ActionClear})
	return err
}

func (e *extension) listURLs(ctx context.Context) ([]string, error) {
	data, err := e.request(ctx, protocol.Request{Action: protocol.ActionListURLs})
	if err != nil {
		return nil, err
	}
	var urls []string
	if len(data) > 0 {
		if err := json.Unmarshal(data, &urls); err != nil {
			return nil, err
		}
	}
	return urls, nil
}

// local persists to page-local storage.
type local struct {
	store kv.Store
}

func (l local) Name() string { return BackendLocal }

func (l local) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	return l.store.GetAll(ctx)
}

func (l local) Set(ctx context.Context, key string, value json.RawMessage) error {
	return l.store.Set(ctx, key, value)
}

func (l local) Remove(ctx context.Context, key string) error {
	return l.store.Remove(ctx, key)
}

func (l local) Clear(ctx context.Context) error {
	return l.store.Clear(ctx)
}

// memory is used when the page has no storage at all; the cache is all there is.
type memory struct{}

func (memory) Name() string { return BackendMemory }

func (memory) Load(context.Context) (map[string]json.RawMessage, error) { return nil, nil }

func (memory) Set(context.Context, string, json.RawMessage) error { return nil }

func (memory) Remove(context.Context, string) error { return nil }

func (memory) Clear(context.Context) error { return nil }
