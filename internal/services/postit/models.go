package postit

import (
	"slices"
	"sort"
)

// Color is the paper color of a note.
type Color string

const (
	Yellow Color = "yellow"
	Green  Color = "green"
	Pink   Color = "pink"
	Cyan   Color = "cyan"
	Blue   Color = "blue"
	Sienna Color = "sienna"
)

// Colors lists every valid note color.
var Colors = []Color{Yellow, Green, Pink, Cyan, Blue, Sienna}

// Rotation bounds in degrees.
const (
	MinRotate = -5
	MaxRotate = 5
)

// Note represents a sticky note attached to a page
type Note struct {
	ID        string `json:"id" validate:"required,max=64" example:"01HZX3J8Q4T9V6W2Y5B7C1D0EF"`
	Color     Color  `json:"color" validate:"required,oneof=yellow green pink cyan blue sienna" example:"yellow"`
	X         int    `json:"x" example:"120"`
	Y         int    `json:"y" example:"80"`
	Rotate    int    `json:"rotate" validate:"min=-5,max=5" example:"-2"`
	Content   string `json:"content" example:"<b>call</b> Anna"`
	Minimized bool   `json:"minimized" example:"false"`
}

// Collection maps a page URL to its notes in display order.
type Collection map[string][]Note

// URLs returns the pages holding at least one note, sorted.
func (c Collection) URLs() []string {
	urls := make([]string, 0, len(c))
	for u, notes := range c {
		if len(notes) > 0 {
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)
	return urls
}

// Page returns a copy of the notes stored for url, never nil.
func (c Collection) Page(url string) []Note {
	notes := c[url]
	if notes == nil {
		return []Note{}
	}
	return slices.Clone(notes)
}

// indexOf returns the position of the note with id, or -1.
func indexOf(notes []Note, id string) int {
	return slices.IndexFunc(notes, func(n Note) bool { return n.ID == id })
}
