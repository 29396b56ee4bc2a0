package remote

import (
	"net/url"
	"strings"

	"postit/internal/services/postit"
)

// Record is a note as the REST API represents it.
type Record struct {
	PostitID  string       `json:"postit_id"`
	Color     postit.Color `json:"color"`
	X         int          `json:"x"`
	Y         int          `json:"y"`
	Rotate    int          `json:"rotate"`
	Content   string       `json:"content"`
	Minimized bool         `json:"minimized"`
}

// ToRecord maps a note onto its API representation.
func ToRecord(n postit.Note) Record {
	return Record{
		PostitID:  n.ID,
		Color:     n.Color,
		X:         n.X,
		Y:         n.Y,
		Rotate:    n.Rotate,
		Content:   n.Content,
		Minimized: n.Minimized,
	}
}

// Note maps the record back onto a note.
func (r Record) Note() postit.Note {
	return postit.Note{
		ID:        r.PostitID,
		Color:     r.Color,
		X:         r.X,
		Y:         r.Y,
		Rotate:    r.Rotate,
		Content:   r.Content,
		Minimized: r.Minimized,
	}
}

// PageEndpoint returns the collection URL of page's notes on the server at
// base, e.g. http://localhost:8080.
func PageEndpoint(base, page string) string {
	return strings.TrimRight(base, "/") + "/api/v1/pages/" + url.PathEscape(page) + "/postits"
}
