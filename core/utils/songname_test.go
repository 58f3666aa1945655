package utils

import "testing"

func TestParseSongName(t *testing.T) {
	tests := []struct {
		filename string
		artist   string
		title    string
	}{
		{"01. Nirvana - Smells Like Teen Spirit.mp3", "Nirvana", "Smells Like Teen Spirit"},
		{"03 Intro.flac", UnknownArtist, "Intro"},
		{"Track.mp3", UnknownArtist, "Track"},
		{"Track.MP3", UnknownArtist, "Track"},
		{"01 - Come As You Are.mp3", UnknownArtist, "Come As You Are"},
		{"Queen - Bohemian Rhapsody - Live.flac", "Queen", "Bohemian Rhapsody - Live"},
		{"12.   Massive Attack - Teardrop.m4a", "Massive Attack", "Teardrop"},
		{"07.Song.ogg", UnknownArtist, "07.Song"},
		{"No Extension", UnknownArtist, "No Extension"},
		{"cover.jpg", UnknownArtist, "cover.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := ParseSongName(tt.filename)
			if got.Artist != tt.artist || got.Title != tt.title {
				t.Errorf("ParseSongName(%q) = %+v, want artist=%q title=%q", tt.filename, got, tt.artist, tt.title)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{9.9, "0:09"},
		{61, "1:01"},
		{3600, "60:00"},
		{-1, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.in); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
