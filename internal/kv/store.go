// Package kv defines the key/value contract shared by the durable store
// behind the gateway and the page-local fallback store.
package kv

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrKeyRequired is returned when an operation needs a non-empty key.
var ErrKeyRequired = errors.New("key is required")

// Store is a durable string-keyed store of JSON values.
type Store interface {
	// Get reports found=false for a missing key; that is not an error.
	Get(ctx context.Context, key string) (value json.RawMessage, found bool, err error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
