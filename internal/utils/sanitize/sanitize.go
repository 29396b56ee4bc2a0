package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes all HTML tags and attributes.
// bluemonday policies are safe for concurrent use once built; never call
// mutating helpers (AddAttr, AllowElements...) on these after init.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true) // Prevents word concatenation
	return p
}()

// rich keeps the inline formatting a contenteditable note produces.
var rich = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("div", "span", "br", "font")
	p.AllowAttrs("color").OnElements("font")
	return p
}()

// Sanitize strips all HTML from arbitrary user input while preserving readability.
//
// Examples:
//   - "<script>alert('xss')</script>Hello" -> "Hello"
//   - "<p>Hello <b>world</b></p>" -> " Hello  world  "
func Sanitize(s string) string {
	return strict.Sanitize(s)
}

// Content sanitizes note content. Note content is rich text, so formatting
// tags survive while scripts, event handlers and javascript: links do not.
//
// Examples:
//   - "<b>buy</b> milk<script>x()</script>" -> "<b>buy</b> milk"
//   - "<div onclick=\"x()\">hi</div>" -> "<div>hi</div>"
func Content(s string) string {
	return rich.Sanitize(s)
}

// Text renders rich content as one line of plain text, e.g. for previews of
// minimized notes and for deciding whether a note is empty.
//
// Examples:
//   - "<p>hi</p>" -> "hi"
//   - "<b>a</b> <b>b</b>" -> "a b"
//   - "&nbsp;<br>" -> ""
func Text(s string) string {
	sanitized := strict.Sanitize(s)
	sanitized = html.UnescapeString(sanitized)
	sanitized = strings.ReplaceAll(sanitized, "\u00a0", " ")
	return strings.Join(strings.Fields(sanitized), " ")
}

// Preview returns at most n runes of Text(s).
func Preview(s string, n int) string {
	r := []rune(Text(s))
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
