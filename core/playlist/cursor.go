// Package playlist holds the active song sequence and the cursor moving
// through it: shuffle history, repeat mode and end-of-track transitions.
// A Cursor is not safe for concurrent use; the session serializes access.
package playlist

import (
	"errors"
	"math/rand/v2"

	"UndercoverFM/core/catalog"
	"UndercoverFM/model"

	"github.com/samber/lo"
)

var (
	ErrEmptySequence  = errors.New("playlist is empty")
	ErrAlbumNotFound  = errors.New("album not found")
	ErrArtistNotFound = errors.New("artist not found")
)

// Entry is one song of the materialized sequence. Position is its index
// in the sequence and stays valid for filtered views.
type Entry struct {
	Song     *model.Song `json:"song"`
	Position int         `json:"position"`
}

// EndAction is what the transport should do when the current track ends.
type EndAction int

const (
	// EndRestart replays the current track from the start.
	EndRestart EndAction = iota
	// EndAdvance moved the cursor to the next track; keep playing.
	EndAdvance
	// EndStop leaves the cursor on the last track and stops.
	EndStop
)

func (a EndAction) String() string {
	switch a {
	case EndRestart:
		return "restart"
	case EndAdvance:
		return "advance"
	default:
		return "stop"
	}
}

// Rand is the random source used for shuffle picks.
type Rand interface {
	IntN(n int) int
}

// SelectionKind names what the current sequence was built from.
type SelectionKind string

const (
	SelectionNone   SelectionKind = ""
	SelectionAll    SelectionKind = "all"
	SelectionAlbum  SelectionKind = "album"
	SelectionArtist SelectionKind = "artist"
)

// Selection identifies the source of the current sequence.
type Selection struct {
	Kind SelectionKind `json:"kind"`
	ID   string        `json:"id,omitempty"`
}

// Cursor is the playback position within the active sequence.
type Cursor struct {
	entries   []Entry
	index     int
	shuffle   bool
	repeat    model.RepeatMode
	history   []int
	query     string
	selection Selection
	rng       Rand
}

type Option func(*Cursor)

// WithRand injects the shuffle random source.
func WithRand(r Rand) Option {
	return func(c *Cursor) { c.rng = r }
}

func NewCursor(opts ...Option) *Cursor {
	c := &Cursor{}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

// SelectAll builds the sequence from every song of the catalog.
func (c *Cursor) SelectAll(cat *catalog.Catalog) {
	var songs []*model.Song
	if cat != nil {
		songs = cat.Songs
	}
	c.reset(songs, Selection{Kind: SelectionAll})
}

// SelectAlbum builds the sequence from one album. The pseudo-album "all"
// selects every song. An unknown album leaves the cursor untouched.
func (c *Cursor) SelectAlbum(cat *catalog.Catalog, id string) error {
	if id == catalog.AllSongsID {
		c.SelectAll(cat)
		return nil
	}
	if cat == nil {
		return ErrAlbumNotFound
	}
	if _, ok := cat.Album(id); !ok {
		return ErrAlbumNotFound
	}
	c.reset(cat.AlbumSongs(id), Selection{Kind: SelectionAlbum, ID: id})
	return nil
}

// SelectArtist builds the sequence from all of an artist's songs and
// returns the artist's albums, the narrowed album choices.
func (c *Cursor) SelectArtist(cat *catalog.Catalog, id string) ([]*model.Album, error) {
	if cat == nil {
		return nil, ErrArtistNotFound
	}
	artist, ok := cat.Artist(id)
	if !ok {
		return nil, ErrArtistNotFound
	}
	c.reset(cat.ArtistSongs(id), Selection{Kind: SelectionArtist, ID: id})
	return artist.Albums, nil
}

func (c *Cursor) reset(songs []*model.Song, sel Selection) {
	c.entries = lo.Map(songs, func(s *model.Song, i int) Entry {
		return Entry{Song: s, Position: i}
	})
	c.index = 0
	c.query = ""
	c.selection = sel
	c.history = nil
}

// Len is the sequence length.
func (c *Cursor) Len() int { return len(c.entries) }

// Index is the current position.
func (c *Cursor) Index() int { return c.index }

func (c *Cursor) Selection() Selection { return c.selection }

// Entries returns a copy of the sequence.
func (c *Cursor) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Current returns the entry under the cursor.
func (c *Cursor) Current() (Entry, bool) {
	if c.index < 0 || c.index >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[c.index], true
}

// At returns the entry at position i.
func (c *Cursor) At(i int) (Entry, bool) {
	if i < 0 || i >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Jump moves the cursor to i. Out-of-range positions are ignored.
func (c *Cursor) Jump(i int) bool {
	if i < 0 || i >= len(c.entries) {
		return false
	}
	c.index = i
	return true
}

// Advance moves to the next track. With shuffle on it pushes the current
// position onto the history and picks any other position at random; a
// track visited earlier may come back, only an immediate repeat is excluded.
func (c *Cursor) Advance() (int, error) {
	n := len(c.entries)
	if n == 0 {
		return 0, ErrEmptySequence
	}
	if !c.shuffle {
		c.index = (c.index + 1) % n
		return c.index, nil
	}

	c.history = append(c.history, c.index)
	if n == 1 {
		c.index = 0
		return 0, nil
	}
	// pick among the n-1 other positions
	next := c.rng.IntN(n - 1)
	if next >= c.index {
		next++
	}
	c.index = next
	return c.index, nil
}

// Retreat undoes the shuffle path when history exists, otherwise steps back cyclically.
func (c *Cursor) Retreat() (int, error) {
	n := len(c.entries)
	if n == 0 {
		return 0, ErrEmptySequence
	}
	if c.shuffle && len(c.history) > 0 {
		last := len(c.history) - 1
		c.index = c.history[last]
		c.history = c.history[:last]
		if c.index >= n {
			c.index = n - 1
		}
		return c.index, nil
	}
	c.index = (c.index - 1 + n) % n
	return c.index, nil
}

// TrackEnded applies the end-of-track transition and reports what playback should do.
func (c *Cursor) TrackEnded() EndAction {
	if len(c.entries) == 0 {
		return EndStop
	}
	switch {
	case c.repeat == model.RepeatOne:
		return EndRestart
	case c.repeat == model.RepeatAll, c.index < len(c.entries)-1:
		c.Advance()
		return EndAdvance
	default:
		return EndStop
	}
}

// SetShuffle turns shuffle on or off. Turning it on clears the history.
func (c *Cursor) SetShuffle(on bool) {
	if on {
		c.history = nil
	}
	c.shuffle = on
}

func (c *Cursor) ToggleShuffle() bool {
	c.SetShuffle(!c.shuffle)
	return c.shuffle
}

func (c *Cursor) Shuffle() bool { return c.shuffle }

// CycleRepeat steps off → all → one → off.
func (c *Cursor) CycleRepeat() model.RepeatMode {
	c.repeat = c.repeat.Next()
	return c.repeat
}

func (c *Cursor) SetRepeatMode(m model.RepeatMode) { c.repeat = m }

func (c *Cursor) RepeatMode() model.RepeatMode { return c.repeat }

// History returns a copy of the shuffle history, oldest first.
func (c *Cursor) History() []int {
	return append([]int(nil), c.history...)
}
