package session

import (
	"UndercoverFM/core/catalog"
	"UndercoverFM/core/playlist"
	"UndercoverFM/core/transport"
	"UndercoverFM/core/utils"
	"UndercoverFM/model"

	"github.com/samber/lo"
)

// State is a point-in-time snapshot for UI collaborators.
type State struct {
	Playing    bool                  `json:"playing"`
	NowPlaying *transport.NowPlaying `json:"nowPlaying,omitempty"`
	Index      int                   `json:"index"`
	Length     int                   `json:"length"`
	Selection  playlist.Selection    `json:"selection"`
	Shuffle    bool                  `json:"shuffle"`
	Repeat     model.RepeatMode      `json:"repeat"`
	Volume     model.VolumeState     `json:"volume"`
	Query      string                `json:"query"`
	Position   string                `json:"position"`
	Duration   string                `json:"duration"`
	Progress   float64               `json:"progress"`
	Visualizer VisualizerState       `json:"visualizer"`
	Albums     []catalog.AlbumChoice `json:"albums"`
}

// VisualizerState describes the active renderer and an in-flight fade.
type VisualizerState struct {
	Style   string  `json:"style"`
	Target  string  `json:"target"`
	Opacity float64 `json:"opacity"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
}

// State snapshots the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.ctrl.Position()
	dur := s.ctrl.Duration()
	st := State{
		Playing:   s.ctrl.IsPlaying(),
		Index:     s.cursor.Index(),
		Length:    s.cursor.Len(),
		Selection: s.cursor.Selection(),
		Shuffle:   s.cursor.Shuffle(),
		Repeat:    s.cursor.RepeatMode(),
		Volume:    s.ctrl.Volume(),
		Query:     s.cursor.Query(),
		Position:  utils.FormatTime(pos.Seconds()),
		Duration:  "0:00",
		Albums:    s.albumChoicesLocked(),
	}
	if dur > 0 {
		st.Duration = utils.FormatTime(dur.Seconds())
		st.Progress = min(float64(pos)/float64(dur), 1)
	}
	if np, ok := s.ctrl.NowPlaying(); ok {
		st.NowPlaying = &np
	}

	w, h := s.registry.Size()
	st.Visualizer = VisualizerState{
		Style:   s.registry.Active().String(),
		Target:  s.registry.Target().String(),
		Opacity: s.registry.Opacity(),
		Width:   w,
		Height:  h,
	}
	return st
}

// albumChoicesLocked lists the selector entries, narrowed after an artist
// selection.
func (s *Session) albumChoicesLocked() []catalog.AlbumChoice {
	choices := []catalog.AlbumChoice{{ID: catalog.AllSongsID, Name: "All Songs", Count: len(s.catalog.Songs)}}
	return append(choices, lo.Map(s.albums, func(a *model.Album, _ int) catalog.AlbumChoice {
		return catalog.AlbumChoice{ID: a.ID, Name: a.Name, Count: len(a.Songs)}
	})...)
}
