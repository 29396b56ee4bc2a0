package facade

import (
	"encoding/json"
	"strings"
)

// Namespace is a view of the facade restricted to keys carrying a prefix.
// Keys passed to and returned from a Namespace omit the prefix.
type Namespace struct {
	f      *Facade
	prefix string
}

// Namespace returns the view of keys starting with name + ":".
func (f *Facade) Namespace(name string) *Namespace {
	return &Namespace{f: f, prefix: name + ":"}
}

func (n *Namespace) Get(key string) (json.RawMessage, bool) {
	return n.f.Get(n.prefix + key)
}

func (n *Namespace) GetJSON(key string, v any) bool {
	return n.f.GetJSON(n.prefix+key, v)
}

func (n *Namespace) Set(key string, value json.RawMessage) {
	n.f.Set(n.prefix+key, value)
}

func (n *Namespace) SetJSON(key string, v any) error {
	return n.f.SetJSON(n.prefix+key, v)
}

func (n *Namespace) Has(key string) bool {
	return n.f.Has(n.prefix + key)
}

func (n *Namespace) Remove(key string) {
	n.f.Remove(n.prefix + key)
}

// Keys returns the keys of the namespace in insertion order.
func (n *Namespace) Keys() []string {
	var keys []string
	for _, k := range n.f.Keys() {
		if rest, ok := strings.CutPrefix(k, n.prefix); ok {
			keys = append(keys, rest)
		}
	}
	return keys
}

// Clear removes the keys of the namespace only.
func (n *Namespace) Clear() {
	for _, k := range n.Keys() {
		n.Remove(k)
	}
}
