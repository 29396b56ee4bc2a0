package postit

import "github.com/oklog/ulid/v2"

// NewID returns a new note id: a ULID, i.e. a millisecond timestamp followed
// by 80 random bits, so ids sort by creation time and do not collide across
// tabs creating notes in the same millisecond.
func NewID() string {
	return ulid.Make().String()
}
