// Package catalog normalizes the nested playlist manifest into flat,
// deterministically ordered lookup structures.
package catalog

import (
	"fmt"

	"UndercoverFM/model"

	"github.com/samber/lo"
)

// AllSongsID is the pseudo-album selecting every song of the catalog.
const AllSongsID = "all"

// Catalog is the normalized manifest. It is immutable after Build.
type Catalog struct {
	BaseURL string
	Artists []*model.Artist
	Albums  []*model.Album
	Songs   []*model.Song

	albums     map[string]*model.Album
	artists    map[string]*model.Artist
	albumSongs map[string][]*model.Song
}

// Empty returns a catalog with no content, used when the manifest is unavailable.
func Empty() *Catalog {
	return &Catalog{
		albums:     map[string]*model.Album{},
		artists:    map[string]*model.Artist{},
		albumSongs: map[string][]*model.Song{},
	}
}

// Build flattens the manifest. Artists, albums and songs keep manifest
// order; a song's GlobalIndex is its insertion position.
func Build(m *model.Manifest) *Catalog {
	c := Empty()
	if m == nil {
		return c
	}
	c.BaseURL = m.BaseURL

	for _, user := range m.Users {
		for _, ma := range user.Artists {
			artist, ok := c.artists[ma.ID]
			if !ok {
				artist = &model.Artist{ID: ma.ID, Name: ma.Name}
				c.artists[ma.ID] = artist
				c.Artists = append(c.Artists, artist)
			}

			for _, mal := range ma.Albums {
				album := &model.Album{
					ID:         mal.ID,
					Name:       fmt.Sprintf("%s - %s", ma.Name, mal.Name),
					Title:      mal.Name,
					Path:       mal.Path,
					Songs:      append([]string(nil), mal.Songs...),
					ArtistID:   ma.ID,
					ArtistName: ma.Name,
				}
				artist.Albums = append(artist.Albums, album)
				c.Albums = append(c.Albums, album)
				if _, dup := c.albums[album.ID]; !dup {
					c.albums[album.ID] = album
				}

				for _, filename := range mal.Songs {
					song := &model.Song{
						Filename:    filename,
						Path:        mal.Path,
						AlbumID:     mal.ID,
						AlbumName:   mal.Name,
						ArtistID:    ma.ID,
						ArtistName:  ma.Name,
						GlobalIndex: len(c.Songs),
					}
					c.Songs = append(c.Songs, song)
					c.albumSongs[mal.ID] = append(c.albumSongs[mal.ID], song)
				}
			}
		}
	}
	return c
}

// IsEmpty reports whether the catalog has no songs.
func (c *Catalog) IsEmpty() bool {
	return c == nil || len(c.Songs) == 0
}

func (c *Catalog) Album(id string) (*model.Album, bool) {
	a, ok := c.albums[id]
	return a, ok
}

func (c *Catalog) Artist(id string) (*model.Artist, bool) {
	a, ok := c.artists[id]
	return a, ok
}

// AlbumSongs returns an album's songs in album order.
func (c *Catalog) AlbumSongs(id string) []*model.Song {
	return c.albumSongs[id]
}

// ArtistSongs returns every song of an artist, album by album.
func (c *Catalog) ArtistSongs(id string) []*model.Song {
	return lo.Filter(c.Songs, func(s *model.Song, _ int) bool {
		return s.ArtistID == id
	})
}

// AlbumChoices lists the album selector entries: the "all songs"
// pseudo-album first, then every album.
func (c *Catalog) AlbumChoices() []AlbumChoice {
	choices := []AlbumChoice{{ID: AllSongsID, Name: "All Songs", Count: len(c.Songs)}}
	for _, a := range c.Albums {
		choices = append(choices, AlbumChoice{ID: a.ID, Name: a.Name, Count: len(a.Songs)})
	}
	return choices
}

// AlbumChoice is one entry of the album selector.
type AlbumChoice struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}
