package postit

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
)

// NotesKey is the key, inside the postit namespace, holding the Collection.
const NotesKey = "notes"

// Repository persists the notes of one page. Reads are served synchronously
// from memory and mutations never block on durable storage; persistence
// failures are logged by the implementation, never returned.
type Repository interface {
	Notes() []Note
	Create(n Note)
	Update(n Note)
	UpdateContent(id, content string)
	Delete(id string)
}

// KV is the synchronous key/value view a KVRepository stores its Collection in.
type KV interface {
	Get(key string) (json.RawMessage, bool)
	Set(key string, value json.RawMessage)
}

// KVRepository keeps every page's notes in a single Collection stored under
// NotesKey and rewrites the whole Collection on each change.
type KVRepository struct {
	mu  sync.Mutex
	kv  KV
	url string
	log *slog.Logger
}

// NewKVRepository creates a repository for the page at url.
func NewKVRepository(kv KV, url string, log *slog.Logger) *KVRepository {
	return &KVRepository{kv: kv, url: url, log: log}
}

// LoadCollection decodes the Collection held in kv. A missing or corrupt
// value yields an empty Collection.
func LoadCollection(kv KV, log *slog.Logger) Collection {
	raw, ok := kv.Get(NotesKey)
	if !ok || len(raw) == 0 {
		return Collection{}
	}
	var c Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		log.Warn("discarding unreadable notes collection", "error", err)
		return Collection{}
	}
	if c == nil {
		c = Collection{}
	}
	return c
}

func (r *KVRepository) save(c Collection) {
	raw, err := json.Marshal(c)
	if err != nil {
		r.log.Error("failed to encode notes collection", "error", err, "url", r.url)
		return
	}
	r.kv.Set(NotesKey, raw)
}

func (r *KVRepository) modify(fn func(notes []Note) []Note) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := LoadCollection(r.kv, r.log)
	notes := fn(c.Page(r.url))
	if len(notes) == 0 {
		delete(c, r.url)
	} else {
		c[r.url] = notes
	}
	r.save(c)
}

// Notes returns the page's notes in display order.
func (r *KVRepository) Notes() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return LoadCollection(r.kv, r.log).Page(r.url)
}

// Create appends n to the page.
func (r *KVRepository) Create(n Note) {
	r.modify(func(notes []Note) []Note {
		return append(notes, n)
	})
}

// Update replaces the note with n.ID; unknown ids are ignored.
func (r *KVRepository) Update(n Note) {
	r.modify(func(notes []Note) []Note {
		if i := indexOf(notes, n.ID); i >= 0 {
			notes[i] = n
		}
		return notes
	})
}

// UpdateContent replaces the content of the note with id.
func (r *KVRepository) UpdateContent(id, content string) {
	r.modify(func(notes []Note) []Note {
		if i := indexOf(notes, id); i >= 0 {
			notes[i].Content = content
		}
		return notes
	})
}

// Delete removes the note with id.
func (r *KVRepository) Delete(id string) {
	r.modify(func(notes []Note) []Note {
		return slices.DeleteFunc(notes, func(n Note) bool { return n.ID == id })
	})
}
