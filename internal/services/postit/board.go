package postit

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"postit/internal/utils/sanitize"
)

// Board holds the note operations a page overlay performs: creating,
// editing, moving, minimizing and deleting notes, plus overlay visibility.
// Rendering is left to the caller.
type Board struct {
	mu     sync.Mutex
	repo   Repository
	rnd    *rand.Rand
	log    *slog.Logger
	hidden bool
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithRand makes note placement and color deterministic.
func WithRand(r *rand.Rand) BoardOption {
	return func(b *Board) { b.rnd = r }
}

// NewBoard creates a board over repo.
func NewBoard(repo Repository, log *slog.Logger, opts ...BoardOption) *Board {
	b := &Board{
		repo: repo,
		rnd:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		log:  log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Notes returns every note of the page.
func (b *Board) Notes() []Note {
	return b.repo.Notes()
}

// Visible returns the notes shown on the overlay.
func (b *Board) Visible() []Note {
	return slices.DeleteFunc(b.repo.Notes(), func(n Note) bool { return n.Minimized })
}

// Tray returns the minimized notes.
func (b *Board) Tray() []Note {
	return slices.DeleteFunc(b.repo.Notes(), func(n Note) bool { return !n.Minimized })
}

// Create adds an empty note with a random color, position and tilt.
func (b *Board) Create() Note {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := Note{
		ID:     NewID(),
		Color:  Colors[b.rnd.IntN(len(Colors))],
		X:      b.rnd.IntN(400) + 50,
		Y:      b.rnd.IntN(300) + 50,
		Rotate: b.rnd.IntN(10) + MinRotate,
	}
	b.repo.Create(n)
	b.log.Debug("note created", "note_id", n.ID)
	return n
}

// Delete removes a note.
func (b *Board) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.find(id); err != nil {
		return err
	}
	b.repo.Delete(id)
	return nil
}

// Minimize moves a note to the tray.
func (b *Board) Minimize(id string) error {
	return b.update(id, func(n *Note) { n.Minimized = true })
}

// Restore moves a note from the tray back to the overlay.
func (b *Board) Restore(id string) error {
	return b.update(id, func(n *Note) { n.Minimized = false })
}

// Move records the position a note was dropped at.
func (b *Board) Move(id string, x, y int) error {
	return b.update(id, func(n *Note) {
		n.X = x
		n.Y = y
	})
}

// Edit stores new content for a note. It is called for every keystroke, so
// the repository may coalesce these writes.
func (b *Board) Edit(id, html string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.find(id); err != nil {
		return err
	}
	b.repo.UpdateContent(id, sanitize.Content(html))
	return nil
}

// EndEdit finishes editing a note. A note left without visible content is
// deleted, which discards notes created and abandoned straight away.
func (b *Board) EndEdit(id string) (deleted bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.find(id)
	if err != nil {
		return false, err
	}
	if !isBlank(n.Content) {
		return false, nil
	}
	b.repo.Delete(id)
	b.log.Debug("empty note discarded", "note_id", id)
	return true, nil
}

// Toggle flips overlay visibility and returns whether it is now hidden.
func (b *Board) Toggle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hidden = !b.hidden
	return b.hidden
}

// Hidden reports whether the overlay is hidden.
func (b *Board) Hidden() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hidden
}

func (b *Board) update(id string, fn func(n *Note)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.find(id)
	if err != nil {
		return err
	}
	fn(&n)
	b.repo.Update(n)
	return nil
}

func (b *Board) find(id string) (Note, error) {
	notes := b.repo.Notes()
	i := indexOf(notes, id)
	if i < 0 {
		return Note{}, ErrNoteNotFound
	}
	return notes[i], nil
}

// isBlank reports whether rich content renders as nothing, e.g. "<br>".
func isBlank(content string) bool {
	return sanitize.Text(content) == "" && !strings.Contains(content, "<img")
}
