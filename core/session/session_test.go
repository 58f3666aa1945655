package session

import (
	"context"
	"errors"
	"image"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"UndercoverFM/core/analysis"
	"UndercoverFM/core/catalog"
	"UndercoverFM/core/events"
	"UndercoverFM/core/scheduler"
	"UndercoverFM/core/visualizer"
	"UndercoverFM/model"
)

const manifestJSON = `{
  "baseUrl": "https://music.example.com",
  "users": [{"id": "tibi", "artists": [
    {"id": "nirvana", "name": "Nirvana", "albums": [
      {"id": "nevermind", "name": "Nevermind", "path": "tibi/Nirvana/Nevermind",
       "songs": ["01 Smells Like Teen Spirit.mp3", "02 In Bloom.mp3"]},
      {"id": "unplugged", "name": "Unplugged", "path": "tibi/Nirvana/Unplugged",
       "songs": ["01 About a Girl.mp3"]}
    ]},
    {"id": "portishead", "name": "Portishead", "albums": [
      {"id": "dummy", "name": "Dummy", "path": "tibi/Portishead/Dummy",
       "songs": ["01 Mysterons.mp3", "02 Sour Times.mp3"]}
    ]}
  ]}]
}`

type staticFetcher struct {
	data []byte
	err  error
}

func (f staticFetcher) Fetch(context.Context) ([]byte, error) { return f.data, f.err }
func (f staticFetcher) String() string                        { return "static" }

type fakeOutput struct {
	mu       sync.Mutex
	gen      uint64
	source   string
	playing  bool
	playErr  error
	duration time.Duration
	seeks    []time.Duration
}

func (f *fakeOutput) Attach() (analysis.Source, error) { return analysis.Silence{Size: 64}, nil }
func (f *fakeOutput) Resume() error                    { return nil }

func (f *fakeOutput) SetSource(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.source = url
	f.playing = false
	return nil
}

func (f *fakeOutput) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeOutput) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeOutput) Seek(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, d)
	return nil
}

func (f *fakeOutput) SetVolume(float64)       {}
func (f *fakeOutput) Position() time.Duration { return 30 * time.Second }
func (f *fakeOutput) Duration() time.Duration { return f.duration }
func (f *fakeOutput) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

type frameCounter struct {
	mu     sync.Mutex
	frames int
}

func (c *frameCounter) PublishFrame(*image.RGBA) {
	c.mu.Lock()
	c.frames++
	c.mu.Unlock()
}

func (c *frameCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

type memPrefs map[string]string

func (m memPrefs) GetPreference(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memPrefs) SetPreference(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

type testEnv struct {
	s     *Session
	out   *fakeOutput
	clock *scheduler.ManualClock
	sink  *frameCounter
	prefs memPrefs
	evs   <-chan events.Event
}

func newTestSession(t *testing.T, fetcher catalog.Fetcher, renderers ...visualizer.Renderer) *testEnv {
	t.Helper()
	env := &testEnv{
		out:   &fakeOutput{},
		clock: scheduler.NewManualClock(time.Unix(0, 0)),
		sink:  &frameCounter{},
		prefs: memPrefs{},
	}
	bus := events.NewBus()
	env.evs = bus.Subscribe(64)
	env.s = New(Options{
		Output:        env.out,
		Fetcher:       fetcher,
		Prefs:         env.prefs,
		Bus:           bus,
		Clock:         env.clock,
		Rand:          rand.New(rand.NewPCG(1, 2)),
		Sink:          env.sink,
		Volume:        0.7,
		Width:         64,
		Height:        32,
		FrameInterval: 10 * time.Millisecond,
		FadeDuration:  50 * time.Millisecond,
		Renderers:     renderers,
	})
	t.Cleanup(env.s.Close)
	return env
}

func (e *testEnv) drain() []events.Type {
	var types []events.Type
	for {
		select {
		case ev := <-e.evs:
			types = append(types, ev.Type)
		default:
			return types
		}
	}
}

func hasEvent(types []events.Type, want events.Type) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func TestStartLoadsCatalogWithoutAutoplay(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	if err := env.s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	st := env.s.State()
	if st.Length != 5 || st.Index != 0 {
		t.Errorf("length/index = %d/%d, want 5/0", st.Length, st.Index)
	}
	if st.Playing {
		t.Error("catalog load must not start playback")
	}
	if st.NowPlaying == nil || st.NowPlaying.Title != "Smells Like Teen Spirit" {
		t.Errorf("now playing = %+v", st.NowPlaying)
	}
	want := "https://music.example.com/tibi/Nirvana/Nevermind/01%20Smells%20Like%20Teen%20Spirit.mp3?v=2"
	if env.out.source != want {
		t.Errorf("source = %q, want %q", env.out.source, want)
	}
	if !hasEvent(env.drain(), events.CatalogLoaded) {
		t.Error("missing catalog.loaded event")
	}
}

func TestCatalogFailureLeavesEmptySession(t *testing.T) {
	env := newTestSession(t, staticFetcher{err: errors.New("404")})
	err := env.s.Start(context.Background())
	if !errors.Is(err, catalog.ErrCatalogUnavailable) {
		t.Fatalf("err = %v, want ErrCatalogUnavailable", err)
	}
	if !hasEvent(env.drain(), events.CatalogUnavailable) {
		t.Error("missing catalog.unavailable event")
	}

	st := env.s.State()
	if st.Length != 0 || st.NowPlaying != nil {
		t.Errorf("state after failure = %+v", st)
	}
	if err := env.s.Next(); err != nil {
		t.Errorf("Next on empty catalog: %v", err)
	}
	if err := env.s.Prev(); err != nil {
		t.Errorf("Prev on empty catalog: %v", err)
	}
	if env.s.IsPlaying() {
		t.Error("empty session should not play")
	}
}

func TestSelectArtistNarrowsAlbums(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	_ = env.s.Start(context.Background())

	albums, err := env.s.SelectArtist("portishead")
	if err != nil {
		t.Fatalf("SelectArtist: %v", err)
	}
	if len(albums) != 1 || albums[0].ID != "dummy" {
		t.Errorf("albums = %v", albums)
	}
	st := env.s.State()
	if st.Length != 2 {
		t.Errorf("sequence length = %d, want 2", st.Length)
	}
	if len(st.Albums) != 2 || st.Albums[0].ID != catalog.AllSongsID || st.Albums[1].ID != "dummy" {
		t.Errorf("album choices = %+v", st.Albums)
	}

	if _, err := env.s.SelectArtist("nobody"); err == nil {
		t.Error("unknown artist should fail")
	}
	env.s.SelectAll()
	if got := len(env.s.State().Albums); got != 4 {
		t.Errorf("album choices after SelectAll = %d, want 4", got)
	}
}

func TestSelectAlbumClearsQuery(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	_ = env.s.Start(context.Background())

	env.s.SetQuery("bloom")
	if got := len(env.s.Visible()); got != 1 {
		t.Fatalf("visible = %d, want 1", got)
	}
	if err := env.s.SelectAlbum("nevermind"); err != nil {
		t.Fatal(err)
	}
	st := env.s.State()
	if st.Query != "" || st.Length != 2 || st.Index != 0 {
		t.Errorf("state = %+v", st)
	}
	if err := env.s.SelectAlbum("missing"); err == nil {
		t.Error("unknown album should fail")
	}
}

func TestStaleEndedCallbackIgnored(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	_ = env.s.Start(context.Background())
	if err := env.s.Play(); err != nil {
		t.Fatal(err)
	}

	stale := env.out.Generation()
	if err := env.s.Next(); err != nil {
		t.Fatal(err)
	}
	env.s.HandleEnded(stale)
	if got := env.s.State().Index; got != 1 {
		t.Fatalf("stale callback moved the cursor to %d", got)
	}

	env.s.HandleEnded(env.out.Generation())
	st := env.s.State()
	if st.Index != 2 || !st.Playing {
		t.Errorf("after end: index %d playing %v, want 2 true", st.Index, st.Playing)
	}
}

func TestRepeatOneRestartsTrack(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	_ = env.s.Start(context.Background())
	env.s.SetRepeatMode(model.RepeatOne)
	_ = env.s.Play()

	env.s.HandleEnded(env.out.Generation())
	st := env.s.State()
	if st.Index != 0 || !st.Playing {
		t.Errorf("index %d playing %v, want 0 true", st.Index, st.Playing)
	}
	if len(env.out.seeks) != 1 || env.out.seeks[0] != 0 {
		t.Errorf("seeks = %v, want [0]", env.out.seeks)
	}
}

func TestStreamErrorStopsPlayback(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	_ = env.s.Start(context.Background())
	_ = env.s.Play()
	env.drain()

	env.s.HandleStreamError(env.out.Generation()+5, errors.New("stale"))
	if !env.s.IsPlaying() {
		t.Fatal("stale error must be ignored")
	}

	env.s.HandleStreamError(env.out.Generation(), errors.New("connection reset"))
	if env.s.IsPlaying() {
		t.Error("stream error should stop playback")
	}
	if !hasEvent(env.drain(), events.Diagnostic) {
		t.Error("missing diagnostic event")
	}
}

func TestRenderLoopFollowsPlayback(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	_ = env.s.Start(context.Background())

	env.clock.Advance(50 * time.Millisecond)
	if env.sink.count() != 0 {
		t.Fatal("loop should not run before play")
	}

	_ = env.s.Play()
	env.clock.Advance(30 * time.Millisecond)
	if got := env.sink.count(); got != 3 {
		t.Fatalf("frames = %d, want 3", got)
	}

	env.s.Pause()
	env.clock.Advance(10 * time.Millisecond)
	cleared := env.sink.count()
	if cleared != 4 {
		t.Errorf("frames after pause tick = %d, want 4 (one blank frame)", cleared)
	}
	env.clock.Advance(100 * time.Millisecond)
	if env.sink.count() != cleared {
		t.Error("loop kept rendering after playback stopped")
	}
}

type trackAwareBars struct {
	*visualizer.Bars
	changes int
}

func (b *trackAwareBars) OnTrackChange() {
	b.changes++
	b.Bars.OnTrackChange()
}

func TestTrackChangeNotifiesVisualizer(t *testing.T) {
	bars := &trackAwareBars{Bars: visualizer.NewBars(0.5)}
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)}, bars, visualizer.NewWave())
	_ = env.s.Start(context.Background())
	base := bars.changes

	_ = env.s.Next()
	if bars.changes != base+1 {
		t.Errorf("changes after Next = %d, want %d", bars.changes, base+1)
	}
	_ = env.s.SeekFraction(0.5)
	if bars.changes != base+1 {
		t.Error("seeking must not count as a track change")
	}
}

func TestStylePreferenceRestored(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	env.prefs[visualizer.PreferenceKey] = "wave"
	_ = env.s.Start(context.Background())

	if got := env.s.State().Visualizer.Style; got != "wave" {
		t.Errorf("style = %q, want wave", got)
	}
	if err := env.s.SetStyle(context.Background(), "starfield"); err != nil {
		t.Fatal(err)
	}
	if env.prefs[visualizer.PreferenceKey] != "starfield" {
		t.Errorf("persisted = %q", env.prefs[visualizer.PreferenceKey])
	}
	if err := env.s.SetStyle(context.Background(), "lasers"); err == nil {
		t.Error("unknown style should fail")
	}
}

func TestStateProgress(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	_ = env.s.Start(context.Background())

	st := env.s.State()
	if st.Duration != "0:00" || st.Progress != 0 {
		t.Errorf("unknown duration: %q %v", st.Duration, st.Progress)
	}

	env.out.duration = 2 * time.Minute
	st = env.s.State()
	if st.Position != "0:30" || st.Duration != "2:00" || st.Progress != 0.25 {
		t.Errorf("progress = %q/%q %v", st.Position, st.Duration, st.Progress)
	}
}

func TestVolumeAdjustAndMute(t *testing.T) {
	env := newTestSession(t, staticFetcher{data: []byte(manifestJSON)})
	env.s.AdjustVolume(0.1)
	if v := env.s.State().Volume.Volume; v < 0.79 || v > 0.81 {
		t.Errorf("volume = %v, want 0.8", v)
	}
	env.s.AdjustVolume(5)
	if v := env.s.State().Volume.Volume; v != 1 {
		t.Errorf("volume = %v, want clamp to 1", v)
	}
	if !env.s.ToggleMute() {
		t.Error("first toggle should mute")
	}
	if env.s.ToggleMute() || env.s.State().Volume.Volume != 1 {
		t.Error("unmute should restore the volume")
	}
}
