package catalog

import (
	"path"
	"sort"
	"strings"

	"UndercoverFM/model"

	"github.com/samber/lo"
)

// SinglesName groups loose files directly under a user folder.
const SinglesName = "Singles"

var audioExtensions = []string{".mp3", ".flac", ".m4a", ".wav", ".ogg"}

// ObjectEntry is one listed bucket object.
type ObjectEntry struct {
	Key  string
	Size int64
}

// IsAudioKey reports whether key has a playable audio extension.
func IsAudioKey(key string) bool {
	ext := strings.ToLower(path.Ext(key))
	return lo.Contains(audioExtensions, ext)
}

type scannedAlbum struct {
	dir   string
	songs []string
}

// Organize groups bucket keys into a manifest. Accepted layouts:
//
//	User/song.mp3                 → artist "Singles", album "Singles"
//	User/Artist - Album/song.mp3  → split on the first " - "
//	User/Folder/song.mp3          → artist and album both "Folder"
//	User/Artist/Album/song.mp3
//
// Keys at the bucket root and non-audio keys are skipped. Users, artists,
// albums and songs are sorted by name. Album paths are the real directory
// of the objects so stream URLs resolve.
func Organize(objects []ObjectEntry, baseURL string) *model.Manifest {
	// user → artist → album
	tree := map[string]map[string]map[string]*scannedAlbum{}

	for _, obj := range objects {
		if !IsAudioKey(obj.Key) {
			continue
		}
		parts := strings.Split(obj.Key, "/")
		if len(parts) < 2 {
			continue
		}

		user := parts[0]
		var artist, album, filename string
		switch len(parts) {
		case 2:
			artist, album, filename = SinglesName, SinglesName, parts[1]
		case 3:
			folder := parts[1]
			filename = parts[2]
			if a, b, ok := strings.Cut(folder, " - "); ok {
				artist, album = strings.TrimSpace(a), strings.TrimSpace(b)
			} else {
				artist, album = folder, folder
			}
		default:
			artist, album, filename = parts[1], parts[2], parts[len(parts)-1]
		}

		if tree[user] == nil {
			tree[user] = map[string]map[string]*scannedAlbum{}
		}
		if tree[user][artist] == nil {
			tree[user][artist] = map[string]*scannedAlbum{}
		}
		sa := tree[user][artist][album]
		if sa == nil {
			sa = &scannedAlbum{dir: path.Dir(obj.Key)}
			tree[user][artist][album] = sa
		}
		sa.songs = append(sa.songs, filename)
	}

	m := &model.Manifest{BaseURL: baseURL, Users: []model.ManifestUser{}}
	for _, userName := range sortedKeys(tree) {
		user := model.ManifestUser{ID: slug(userName), Name: userName}
		for _, artistName := range sortedKeys(tree[userName]) {
			artist := model.ManifestArtist{
				ID:   user.ID + "-" + slug(artistName),
				Name: artistName,
			}
			albums := tree[userName][artistName]
			for _, albumName := range sortedKeys(albums) {
				sa := albums[albumName]
				songs := append([]string(nil), sa.songs...)
				sort.Strings(songs)
				artist.Albums = append(artist.Albums, model.ManifestAlbum{
					ID:    artist.ID + "-" + slug(albumName),
					Name:  albumName,
					Path:  sa.dir,
					Songs: songs,
				})
			}
			user.Artists = append(user.Artists, artist)
		}
		m.Users = append(m.Users, user)
	}
	return m
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
