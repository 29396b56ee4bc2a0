package facade

import (
	"bytes"
	"encoding/json"
	"slices"
	"sort"
)

// cache is an insertion-ordered key/value map. It is not safe for
// concurrent use; the Facade guards it.
//
// Local writes are stamped with a revision so a snapshot read from durable
// storage can tell which keys changed after it was requested.
type cache struct {
	keys    []string
	m       map[string]json.RawMessage
	rev     uint64
	touched map[string]uint64
	cleared uint64
}

func newCache() *cache {
	return &cache{
		m:       make(map[string]json.RawMessage),
		touched: make(map[string]uint64),
	}
}

func (c *cache) get(k string) (json.RawMessage, bool) {
	v, ok := c.m[k]
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}

func (c *cache) set(k string, v json.RawMessage) {
	if _, ok := c.m[k]; !ok {
		c.keys = append(c.keys, k)
	}
	c.m[k] = bytes.Clone(v)
}

func (c *cache) remove(k string) bool {
	if _, ok := c.m[k]; !ok {
		return false
	}
	delete(c.m, k)
	c.keys = slices.DeleteFunc(c.keys, func(key string) bool { return key == k })
	return true
}

func (c *cache) clear() {
	c.keys = nil
	clear(c.m)
	clear(c.touched)
	c.rev++
	c.cleared = c.rev
}

// touch records a local write of k.
func (c *cache) touch(k string) {
	c.rev++
	c.touched[k] = c.rev
}

// merge overwrites existing keys and appends new ones in sorted order.
// Keys absent from snapshot are kept, and so are keys written locally after
// revision since. A clear after since discards the whole snapshot.
func (c *cache) merge(snapshot map[string]json.RawMessage, since uint64) bool {
	if c.cleared > since {
		return false
	}
	fresh := make([]string, 0, len(snapshot))
	for k, v := range snapshot {
		if c.touched[k] > since {
			continue
		}
		if _, ok := c.m[k]; ok {
			c.m[k] = bytes.Clone(v)
			continue
		}
		fresh = append(fresh, k)
	}
	sort.Strings(fresh)
	for _, k := range fresh {
		c.set(k, snapshot[k])
	}
	return true
}
