package postit

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"postit/internal/kv"
	"postit/internal/utils/sanitize"
)

// Service serves page notes from the Collection stored under one key of a
// durable store. It is the server side of the REST resource.
type Service struct {
	mu    sync.Mutex
	store kv.Store
	key   string
	log   *slog.Logger
}

// NewService creates a service over the Collection at key.
func NewService(store kv.Store, key string, log *slog.Logger) *Service {
	return &Service{store: store, key: key, log: log}
}

func (s *Service) load(ctx context.Context) (Collection, error) {
	raw, found, err := s.store.Get(ctx, s.key)
	if err != nil {
		s.log.Error(ErrLoadNotes.Error(), "error", err, "key", s.key)
		return nil, ErrLoadNotes
	}
	if !found || len(raw) == 0 {
		return Collection{}, nil
	}
	var c Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		s.log.Error(ErrLoadNotes.Error(), "error", err, "key", s.key)
		return nil, ErrLoadNotes
	}
	if c == nil {
		c = Collection{}
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c Collection) error {
	raw, err := json.Marshal(c)
	if err == nil {
		err = s.store.Set(ctx, s.key, raw)
	}
	if err != nil {
		s.log.Error(ErrSaveNotes.Error(), "error", err, "key", s.key)
		return ErrSaveNotes
	}
	return nil
}

// modify runs fn on the notes of page and stores the result. A page left
// without notes is dropped from the Collection.
func (s *Service) modify(ctx context.Context, page string, fn func([]Note) ([]Note, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return err
	}
	notes, err := fn(c.Page(page))
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		delete(c, page)
	} else {
		c[page] = notes
	}
	return s.save(ctx, c)
}

// List returns the notes of page in display order.
func (s *Service) List(ctx context.Context, page string) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return c.Page(page), nil
}

// URLs returns the pages holding at least one note.
func (s *Service) URLs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return c.URLs(), nil
}

// Create appends n to page, assigning an id when it has none.
func (s *Service) Create(ctx context.Context, page string, n Note) (Note, error) {
	if n.ID == "" {
		n.ID = NewID()
	}
	n.Content = sanitize.Content(n.Content)
	if err := Validate(n); err != nil {
		return Note{}, err
	}

	err := s.modify(ctx, page, func(notes []Note) ([]Note, error) {
		if indexOf(notes, n.ID) >= 0 {
			return nil, ErrNoteExists
		}
		return append(notes, n), nil
	})
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

// Update replaces the note with id on page. The id in the path wins over
// any id in n.
func (s *Service) Update(ctx context.Context, page, id string, n Note) (Note, error) {
	n.ID = id
	n.Content = sanitize.Content(n.Content)
	if err := Validate(n); err != nil {
		return Note{}, err
	}

	err := s.modify(ctx, page, func(notes []Note) ([]Note, error) {
		i := indexOf(notes, id)
		if i < 0 {
			return nil, ErrNoteNotFound
		}
		notes[i] = n
		return notes, nil
	})
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

// Delete removes the note with id from page.
func (s *Service) Delete(ctx context.Context, page, id string) error {
	return s.modify(ctx, page, func(notes []Note) ([]Note, error) {
		if indexOf(notes, id) < 0 {
			return nil, ErrNoteNotFound
		}
		return slices.DeleteFunc(notes, func(n Note) bool { return n.ID == id }), nil
	})
}
