package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"UndercoverFM/model"
)

const manifestJSON = `{
  "baseUrl": "https://music.example.com",
  "users": [
    {"artists": [
      {"id": "nirvana", "name": "Nirvana", "albums": [
        {"id": "nevermind", "name": "Nevermind", "path": "tibi/Nirvana/Nevermind",
         "songs": ["01. Nirvana - Smells Like Teen Spirit.mp3", "02. Nirvana - In Bloom.mp3"]},
        {"id": "utero", "name": "In Utero", "path": "tibi/Nirvana/In Utero",
         "songs": ["01 Serve the Servants.mp3"]}
      ]}
    ]},
    {"artists": [
      {"id": "portishead", "name": "Portishead", "albums": [
        {"id": "dummy", "name": "Dummy", "path": "ana/Portishead/Dummy",
         "songs": ["Mysterons.flac", "Sour Times.flac"]}
      ]}
    ]}
  ]
}`

func testManifest(t *testing.T) *model.Manifest {
	t.Helper()
	m, err := Parse([]byte(manifestJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func TestBuildPreservesManifestOrder(t *testing.T) {
	c := Build(testManifest(t))

	if c.BaseURL != "https://music.example.com" {
		t.Errorf("BaseURL = %q", c.BaseURL)
	}
	if len(c.Artists) != 2 || c.Artists[0].ID != "nirvana" || c.Artists[1].ID != "portishead" {
		t.Fatalf("artists = %+v", c.Artists)
	}
	if len(c.Artists[0].Albums) != 2 || c.Artists[0].Albums[1].ID != "utero" {
		t.Errorf("nirvana albums out of order")
	}

	wantNames := []string{"Nirvana - Nevermind", "Nirvana - In Utero", "Portishead - Dummy"}
	for i, a := range c.Albums {
		if a.Name != wantNames[i] {
			t.Errorf("album %d name = %q, want %q", i, a.Name, wantNames[i])
		}
	}

	wantFiles := []string{
		"01. Nirvana - Smells Like Teen Spirit.mp3",
		"02. Nirvana - In Bloom.mp3",
		"01 Serve the Servants.mp3",
		"Mysterons.flac",
		"Sour Times.flac",
	}
	if len(c.Songs) != len(wantFiles) {
		t.Fatalf("songs = %d, want %d", len(c.Songs), len(wantFiles))
	}
	for i, s := range c.Songs {
		if s.GlobalIndex != i {
			t.Errorf("song %d GlobalIndex = %d", i, s.GlobalIndex)
		}
		if s.Filename != wantFiles[i] {
			t.Errorf("song %d = %q, want %q", i, s.Filename, wantFiles[i])
		}
	}
	if c.Songs[3].ArtistName != "Portishead" || c.Songs[3].Path != "ana/Portishead/Dummy" {
		t.Errorf("song 3 = %+v", c.Songs[3])
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := Build(testManifest(t))
	b := Build(testManifest(t))
	for i := range a.Songs {
		if *a.Songs[i] != *b.Songs[i] {
			t.Fatalf("song %d differs: %+v vs %+v", i, a.Songs[i], b.Songs[i])
		}
	}
}

func TestLookups(t *testing.T) {
	c := Build(testManifest(t))

	if _, ok := c.Album("dummy"); !ok {
		t.Error("album dummy not found")
	}
	if _, ok := c.Album("missing"); ok {
		t.Error("unexpected album")
	}
	if got := len(c.AlbumSongs("nevermind")); got != 2 {
		t.Errorf("AlbumSongs(nevermind) = %d", got)
	}
	if got := len(c.ArtistSongs("nirvana")); got != 3 {
		t.Errorf("ArtistSongs(nirvana) = %d", got)
	}
	choices := c.AlbumChoices()
	if choices[0].ID != AllSongsID || choices[0].Count != 5 || len(choices) != 4 {
		t.Errorf("AlbumChoices = %+v", choices)
	}
}

func TestBuildNilManifest(t *testing.T) {
	c := Build(nil)
	if !c.IsEmpty() {
		t.Error("nil manifest should build an empty catalog")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.json")
	if err := os.WriteFile(path, []byte(manifestJSON), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(context.Background(), NewFetcher(path, nil), "http://localhost:8787")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.BaseURL != "http://localhost:8787" {
		t.Errorf("BaseURL override not applied: %q", c.BaseURL)
	}
	if len(c.Songs) != 5 {
		t.Errorf("songs = %d", len(c.Songs))
	}
}

func TestLoadFromHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(manifestJSON))
	}))
	defer srv.Close()

	c, err := Load(context.Background(), NewFetcher(srv.URL+"/playlist.json", nil), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Albums) != 3 {
		t.Errorf("albums = %d", len(c.Albums))
	}
}

func TestLoadFailuresAreUnavailable(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)

	fetchers := []Fetcher{
		FileFetcher{Path: filepath.Join(t.TempDir(), "missing.json")},
		FileFetcher{Path: bad},
		HTTPFetcher{URL: notFound.URL},
		ObjectFetcher{Key: "playlist.json"},
	}
	for _, f := range fetchers {
		c, err := Load(context.Background(), f, "")
		if !errors.Is(err, ErrCatalogUnavailable) {
			t.Errorf("%s: err = %v, want ErrCatalogUnavailable", f, err)
		}
		if c == nil || !c.IsEmpty() {
			t.Errorf("%s: expected empty catalog", f)
		}
	}
}

type memObjects map[string][]byte

func (m memObjects) ReadObject(_ context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func TestLoadFromObjectStore(t *testing.T) {
	store := memObjects{"meta/playlist.json": []byte(manifestJSON)}
	f := NewFetcher("minio://meta/playlist.json", store)
	if _, ok := f.(ObjectFetcher); !ok {
		t.Fatalf("NewFetcher returned %T", f)
	}
	c, err := Load(context.Background(), f, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Artists) != 2 {
		t.Errorf("artists = %d", len(c.Artists))
	}
}
