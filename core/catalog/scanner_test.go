package catalog

import "testing"

func TestOrganizeLayouts(t *testing.T) {
	objects := []ObjectEntry{
		{Key: "Tibi/Nirvana/Nevermind/02 In Bloom.mp3"},
		{Key: "Tibi/Nirvana/Nevermind/01 Smells Like Teen Spirit.mp3"},
		{Key: "Tibi/Massive Attack - Mezzanine/Teardrop.FLAC"},
		{Key: "Tibi/Loose Track.mp3"},
		{Key: "Ana/Portishead/Glory Box.m4a"},
		{Key: "Ana/Portishead/cover.jpg"},
		{Key: "root.mp3"},
	}

	m := Organize(objects, "https://cdn.example.com")

	if m.BaseURL != "https://cdn.example.com" {
		t.Errorf("BaseURL = %q", m.BaseURL)
	}
	if len(m.Users) != 2 || m.Users[0].Name != "Ana" || m.Users[1].Name != "Tibi" {
		t.Fatalf("users = %+v", m.Users)
	}

	ana := m.Users[0]
	if len(ana.Artists) != 1 || ana.Artists[0].Name != "Portishead" {
		t.Fatalf("ana artists = %+v", ana.Artists)
	}
	ph := ana.Artists[0].Albums[0]
	if ph.Name != "Portishead" || ph.Path != "Ana/Portishead" || len(ph.Songs) != 1 {
		t.Errorf("portishead album = %+v", ph)
	}

	tibi := m.Users[1]
	names := []string{}
	for _, a := range tibi.Artists {
		names = append(names, a.Name)
	}
	want := []string{"Massive Attack", "Nirvana", SinglesName}
	if len(names) != len(want) {
		t.Fatalf("tibi artists = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("artist %d = %q, want %q", i, names[i], want[i])
		}
	}

	ma := tibi.Artists[0].Albums[0]
	if ma.Name != "Mezzanine" || ma.Path != "Tibi/Massive Attack - Mezzanine" {
		t.Errorf("mezzanine = %+v", ma)
	}
	nv := tibi.Artists[1].Albums[0]
	if nv.ID != "tibi-nirvana-nevermind" || nv.Songs[0] != "01 Smells Like Teen Spirit.mp3" {
		t.Errorf("nevermind = %+v", nv)
	}
	singles := tibi.Artists[2].Albums[0]
	if singles.Path != "Tibi" || singles.Songs[0] != "Loose Track.mp3" {
		t.Errorf("singles = %+v", singles)
	}
}

func TestIsAudioKey(t *testing.T) {
	for key, want := range map[string]bool{
		"a/b.mp3":  true,
		"a/b.FLAC": true,
		"a/b.wav":  true,
		"a/b.jpg":  false,
		"a/b":      false,
	} {
		if got := IsAudioKey(key); got != want {
			t.Errorf("IsAudioKey(%q) = %v", key, got)
		}
	}
}
