package transport

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"UndercoverFM/core/analysis"
	"UndercoverFM/core/catalog"
	"UndercoverFM/core/events"
	"UndercoverFM/core/playlist"
	"UndercoverFM/model"
)

type fakeOutput struct {
	attachCalls int
	attachErr   error
	playErr     error
	source      string
	playing     bool
	volume      float64
	seeks       []time.Duration
	duration    time.Duration
}

func (f *fakeOutput) Attach() (analysis.Source, error) {
	f.attachCalls++
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	return analysis.Silence{Size: 256}, nil
}

func (f *fakeOutput) Resume() error { return nil }

func (f *fakeOutput) SetSource(url string) error {
	f.source = url
	f.playing = false
	return nil
}

func (f *fakeOutput) Play() error {
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeOutput) Pause()                     { f.playing = false }
func (f *fakeOutput) SetVolume(v float64)        { f.volume = v }
func (f *fakeOutput) Position() time.Duration    { return 0 }
func (f *fakeOutput) Duration() time.Duration    { return f.duration }
func (f *fakeOutput) Seek(d time.Duration) error { f.seeks = append(f.seeks, d); return nil }

func newTestController(t *testing.T) (*Controller, *fakeOutput, *playlist.Cursor) {
	t.Helper()
	cat := catalog.Build(&model.Manifest{
		BaseURL: "https://cdn.example.com",
		Users: []model.ManifestUser{{Artists: []model.ManifestArtist{{
			ID: "nirvana", Name: "Nirvana",
			Albums: []model.ManifestAlbum{{
				ID: "nevermind", Name: "Nevermind", Path: "tibi/Nirvana/Nevermind",
				Songs: []string{
					"01. Nirvana - Smells Like Teen Spirit.mp3",
					"02 In Bloom.mp3",
					"03 Come as You Are.mp3",
				},
			}},
		}}}},
	})
	cursor := playlist.NewCursor(playlist.WithRand(rand.New(rand.NewPCG(7, 7))))
	cursor.SelectAll(cat)

	out := &fakeOutput{}
	c := NewController(out, cursor, events.NewBus(), Options{Volume: 0.7})
	c.SetBaseURL(cat.BaseURL)
	return c, out, cursor
}

func TestLoadDoesNotAutoplay(t *testing.T) {
	c, out, _ := newTestController(t)
	if !c.Load(0) {
		t.Fatal("Load(0) failed")
	}
	if c.IsPlaying() || out.playing {
		t.Error("Load must not start playback")
	}
	want := "https://cdn.example.com/tibi/Nirvana/Nevermind/01.%20Nirvana%20-%20Smells%20Like%20Teen%20Spirit.mp3?v=2"
	if out.source != want {
		t.Errorf("source = %s\nwant     %s", out.source, want)
	}
	np, _ := c.NowPlaying()
	if np.Title != "Smells Like Teen Spirit" || np.Artist != "Nirvana" {
		t.Errorf("now playing = %+v", np)
	}
}

func TestLoadOutOfRangeIsNoop(t *testing.T) {
	c, out, cursor := newTestController(t)
	c.Load(1)
	before := out.source
	for _, i := range []int{-1, 3, 100} {
		if c.Load(i) {
			t.Errorf("Load(%d) succeeded", i)
		}
	}
	if out.source != before || cursor.Index() != 1 {
		t.Error("out-of-range load changed state")
	}
}

func TestPlayAttachesOnce(t *testing.T) {
	c, out, _ := newTestController(t)
	c.Load(0)
	for i := 0; i < 3; i++ {
		if err := c.TogglePlay(); err != nil {
			t.Fatal(err)
		}
	}
	if out.attachCalls != 1 {
		t.Errorf("Attach called %d times", out.attachCalls)
	}
	if !c.IsPlaying() || c.Source() == nil {
		t.Error("expected playing with an attached source")
	}
}

func TestPlayRejectionPublishesDiagnostic(t *testing.T) {
	c, out, _ := newTestController(t)
	sub := c.bus.Subscribe(8)
	c.Load(0)
	<-sub // track.loaded

	out.playErr = errors.New("autoplay denied")
	err := c.Play()
	var se *StreamError
	if !errors.As(err, &se) || se.URL != out.source || se.Code != MediaErrDecode {
		t.Fatalf("err = %#v", err)
	}
	if c.IsPlaying() {
		t.Error("isPlaying must stay false")
	}
	ev := <-sub
	if ev.Type != events.Diagnostic {
		t.Errorf("event = %s", ev.Type)
	}
}

func TestStreamErrorStopsPlayback(t *testing.T) {
	c, _, _ := newTestController(t)
	c.Load(0)
	c.Play()
	c.StreamError(&StreamError{Code: MediaErrNetwork, Err: errors.New("connection reset")})
	if c.IsPlaying() {
		t.Error("stream error must stop playback")
	}
}

func TestNextKeepsPlayingState(t *testing.T) {
	c, out, cursor := newTestController(t)
	c.Load(0)
	c.Next()
	if cursor.Index() != 1 || c.IsPlaying() {
		t.Errorf("paused next: index=%d playing=%v", cursor.Index(), c.IsPlaying())
	}
	c.Play()
	c.Prev()
	if cursor.Index() != 0 || !c.IsPlaying() || !out.playing {
		t.Errorf("playing prev: index=%d playing=%v", cursor.Index(), c.IsPlaying())
	}
}

func TestEndedRepeatOneRestarts(t *testing.T) {
	c, out, cursor := newTestController(t)
	cursor.SetRepeatMode(model.RepeatOne)
	c.Load(1)
	c.Play()

	if err := c.Ended(); err != nil {
		t.Fatal(err)
	}
	if cursor.Index() != 1 || !c.IsPlaying() {
		t.Errorf("index=%d playing=%v", cursor.Index(), c.IsPlaying())
	}
	if len(out.seeks) != 1 || out.seeks[0] != 0 {
		t.Errorf("seeks = %v, want [0]", out.seeks)
	}
}

func TestEndedAtLastTrackStops(t *testing.T) {
	c, _, cursor := newTestController(t)
	c.Load(2)
	c.Play()
	c.Ended()
	if c.IsPlaying() || cursor.Index() != 2 {
		t.Errorf("index=%d playing=%v", cursor.Index(), c.IsPlaying())
	}
}

func TestEndedAdvancesAndPlays(t *testing.T) {
	c, out, cursor := newTestController(t)
	c.Load(0)
	c.Play()
	c.Ended()
	if cursor.Index() != 1 || !c.IsPlaying() || !out.playing {
		t.Errorf("index=%d playing=%v", cursor.Index(), c.IsPlaying())
	}
}

func TestMuteRoundTrip(t *testing.T) {
	c, out, _ := newTestController(t)
	c.SetVolume(0.42)

	c.ToggleMute()
	if out.volume != 0 || !c.Volume().Muted {
		t.Errorf("muted output = %v", out.volume)
	}
	c.ToggleMute()
	if c.Volume().Volume != 0.42 || out.volume != 0.42 {
		t.Errorf("volume after unmute = %v, device %v", c.Volume().Volume, out.volume)
	}
}

func TestSetVolumeWhileMuted(t *testing.T) {
	c, out, _ := newTestController(t)
	c.ToggleMute()
	c.SetVolume(0.3)
	if out.volume != 0 {
		t.Errorf("device volume = %v while muted", out.volume)
	}
	c.ToggleMute()
	if out.volume != 0.3 {
		t.Errorf("device volume = %v after unmute", out.volume)
	}
	c.SetVolume(4)
	if c.Volume().Volume != 1 {
		t.Errorf("volume not clamped: %v", c.Volume().Volume)
	}
}

func TestSeekFraction(t *testing.T) {
	c, out, _ := newTestController(t)
	c.SeekFraction(0.5)
	if len(out.seeks) != 0 {
		t.Error("seek with unknown duration")
	}
	out.duration = 200 * time.Second
	c.SeekFraction(0.25)
	if out.seeks[0] != 50*time.Second {
		t.Errorf("seek = %v", out.seeks[0])
	}
}
