package postit

import "errors"

// ErrNoteNotFound is returned when no note has the requested id.
var ErrNoteNotFound = errors.New("note not found")

// ErrInvalidNote is returned when a note fails validation.
var ErrInvalidNote = errors.New("invalid note")

// ErrNoteExists is returned when a created note reuses an id on its page.
var ErrNoteExists = errors.New("note already exists")

// ErrLoadNotes is returned when the stored collection cannot be read.
var ErrLoadNotes = errors.New("failed to load notes")

// ErrSaveNotes is returned when the collection cannot be written back.
var ErrSaveNotes = errors.New("failed to save notes")
