package playlist

import (
	"strings"

	"github.com/samber/lo"
)

// Filter returns the entries whose filename contains query, ignoring case.
// Positions are kept so a filtered row still addresses the full sequence.
func Filter(entries []Entry, query string) []Entry {
	if query == "" {
		return append([]Entry(nil), entries...)
	}
	q := strings.ToLower(query)
	return lo.Filter(entries, func(e Entry, _ int) bool {
		return strings.Contains(strings.ToLower(e.Song.Filename), q)
	})
}

// SetQuery sets the display filter. The sequence itself is unchanged.
func (c *Cursor) SetQuery(q string) { c.query = q }

func (c *Cursor) Query() string { return c.query }

// Visible is the filtered view of the sequence.
func (c *Cursor) Visible() []Entry {
	return Filter(c.entries, c.query)
}
