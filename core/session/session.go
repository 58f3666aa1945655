// Package session is the application context. It owns the catalog, the
// playlist cursor, the transport and the visualizer, and serializes every
// user and stream event behind one mutex so handlers run one at a time.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"UndercoverFM/core/analysis"
	"UndercoverFM/core/catalog"
	"UndercoverFM/core/events"
	"UndercoverFM/core/playlist"
	"UndercoverFM/core/scheduler"
	"UndercoverFM/core/transport"
	"UndercoverFM/core/visualizer"
	"UndercoverFM/logger"
	"UndercoverFM/model"
)

// Output is the audio output driven by the session. Generation changes
// on every SetSource; end and error callbacks carry the generation they
// were raised for.
type Output interface {
	transport.Output
	Generation() uint64
}

// Options wires a Session.
type Options struct {
	Output          Output
	Fetcher         catalog.Fetcher
	BaseURLOverride string
	Prefs           visualizer.PreferenceStore
	Bus             *events.Bus
	Clock           scheduler.Clock
	Rand            playlist.Rand
	Sink            visualizer.FrameSink

	Volume         float64
	Width, Height  int
	FrameInterval  time.Duration
	FadeDuration   time.Duration
	ResizeDebounce time.Duration
	Smoothing      float64
	Renderers      []visualizer.Renderer
}

type sourceBox struct{ src analysis.Source }

// Session is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	opts     Options
	bus      *events.Bus
	out      Output
	catalog  *catalog.Catalog
	cursor   *playlist.Cursor
	ctrl     *transport.Controller
	registry *visualizer.Registry
	loop     *visualizer.Loop
	albums   []*model.Album

	// source is read by the render loop without taking mu.
	source atomic.Pointer[sourceBox]
}

func New(opts Options) *Session {
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Clock == nil {
		opts.Clock = scheduler.Real()
	}

	s := &Session{
		opts:    opts,
		bus:     opts.Bus,
		out:     opts.Output,
		catalog: catalog.Empty(),
	}
	var cursorOpts []playlist.Option
	if opts.Rand != nil {
		cursorOpts = append(cursorOpts, playlist.WithRand(opts.Rand))
	}
	s.cursor = playlist.NewCursor(cursorOpts...)
	s.ctrl = transport.NewController(opts.Output, s.cursor, s.bus, transport.Options{
		Volume:          opts.Volume,
		OnPlayingChange: s.playingChanged,
	})
	s.registry = visualizer.NewRegistry(visualizer.RegistryOptions{
		Clock:          opts.Clock,
		Width:          opts.Width,
		Height:         opts.Height,
		FadeDuration:   opts.FadeDuration,
		ResizeDebounce: opts.ResizeDebounce,
		Prefs:          opts.Prefs,
		Bus:            s.bus,
		Renderers:      opts.Renderers,
		Smoothing:      opts.Smoothing,
	})
	s.loop = visualizer.NewLoop(s.registry, visualizer.LoopOptions{
		Clock:     opts.Clock,
		Interval:  opts.FrameInterval,
		IsPlaying: s.ctrl.IsPlaying,
		Source:    s.analysisSource,
		Sink:      opts.Sink,
	})
	return s
}

// Bus is the event bus the session publishes on.
func (s *Session) Bus() *events.Bus { return s.bus }

// Registry exposes the visualizer for frame readers.
func (s *Session) Registry() *visualizer.Registry { return s.registry }

// Start restores the visualizer preference and loads the catalog. A
// catalog failure is reported on the bus and leaves the session usable.
func (s *Session) Start(ctx context.Context) error {
	s.registry.LoadPreference(ctx)
	return s.LoadCatalog(ctx)
}

// LoadCatalog fetches the manifest and selects every song with the first
// track loaded but not playing. On failure the catalog becomes empty.
func (s *Session) LoadCatalog(ctx context.Context) error {
	if s.opts.Fetcher == nil {
		s.mu.Lock()
		s.applyCatalogLocked(catalog.Empty())
		s.mu.Unlock()
		err := catalog.ErrCatalogUnavailable
		s.bus.Publish(events.CatalogUnavailable, map[string]string{"error": err.Error()})
		return err
	}

	cat, err := catalog.Load(ctx, s.opts.Fetcher, s.opts.BaseURLOverride)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCatalogLocked(cat)
	if err != nil {
		s.bus.Publish(events.CatalogUnavailable, map[string]string{"error": err.Error()})
		return err
	}
	s.bus.Publish(events.CatalogLoaded, map[string]int{
		"artists": len(cat.Artists),
		"albums":  len(cat.Albums),
		"songs":   len(cat.Songs),
	})
	return nil
}

func (s *Session) applyCatalogLocked(cat *catalog.Catalog) {
	if cat == nil {
		cat = catalog.Empty()
	}
	s.catalog = cat
	s.albums = cat.Albums
	s.ctrl.SetBaseURL(cat.BaseURL)
	s.cursor.SelectAll(cat)
	s.afterSelectLocked()
}

// afterSelectLocked loads the first track of a fresh sequence without
// starting it.
func (s *Session) afterSelectLocked() {
	s.bus.Publish(events.SequenceChanged, s.cursor.Selection())
	if s.cursor.Len() == 0 {
		if s.ctrl.IsPlaying() {
			s.ctrl.Pause()
		}
		return
	}
	s.trackChange(func() { s.ctrl.Load(0) })
}

// trackChange runs fn and tells the visualizer when the loaded stream changed.
func (s *Session) trackChange(fn func()) {
	before, _ := s.ctrl.NowPlaying()
	gen := s.out.Generation()
	fn()
	after, _ := s.ctrl.NowPlaying()
	if gen != s.out.Generation() || before.URL != after.URL {
		s.registry.TrackChanged()
	}
}

// SelectAll selects every song of the catalog.
func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.SelectAll(s.catalog)
	s.albums = s.catalog.Albums
	s.afterSelectLocked()
}

// SelectAlbum selects one album, or every song for the pseudo-album "all".
func (s *Session) SelectAlbum(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cursor.SelectAlbum(s.catalog, id); err != nil {
		return err
	}
	s.afterSelectLocked()
	return nil
}

// SelectArtist selects all songs of an artist and narrows the album
// choices to that artist's albums.
func (s *Session) SelectArtist(id string) ([]*model.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	albums, err := s.cursor.SelectArtist(s.catalog, id)
	if err != nil {
		return nil, err
	}
	s.albums = albums
	s.afterSelectLocked()
	return albums, nil
}

// PlayIndex loads track i of the sequence and starts it.
func (s *Session) PlayIndex(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.trackChange(func() { ok = s.ctrl.Load(i) })
	if !ok {
		return nil
	}
	return s.ctrl.Play()
}

func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Play()
}

func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Pause()
}

func (s *Session) TogglePlay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.TogglePlay()
}

func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.trackChange(func() { err = s.ctrl.Next() })
	return ignoreEmpty(err)
}

func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	s.trackChange(func() { err = s.ctrl.Prev() })
	return ignoreEmpty(err)
}

// navigation on an empty sequence is a no-op
func ignoreEmpty(err error) error {
	if errors.Is(err, playlist.ErrEmptySequence) {
		return nil
	}
	return err
}

// HandleEnded is the end-of-stream callback. Callbacks raised for an
// earlier source are dropped.
func (s *Session) HandleEnded(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.out.Generation() {
		logger.Debug("忽略过期的播放结束回调", logger.Int64("gen", int64(gen)))
		return
	}
	s.trackChange(func() {
		if err := s.ctrl.Ended(); err != nil {
			logger.Warn("自动切歌失败", logger.ErrorField(err))
		}
	})
}

// HandleStreamError is the stream failure callback.
func (s *Session) HandleStreamError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.out.Generation() {
		return
	}
	s.ctrl.StreamError(err)
}

func (s *Session) Seek(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Seek(d)
}

// SeekFraction seeks to a fraction of the track, as a click on the
// progress bar does.
func (s *Session) SeekFraction(f float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.SeekFraction(f)
}

func (s *Session) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SetVolume(v)
}

// AdjustVolume changes the volume by delta.
func (s *Session) AdjustVolume(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SetVolume(s.ctrl.Volume().Volume + delta)
}

func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.ToggleMute()
}

func (s *Session) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	on := s.cursor.ToggleShuffle()
	s.publishModeLocked()
	return on
}

func (s *Session) CycleRepeat() model.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.cursor.CycleRepeat()
	s.publishModeLocked()
	return m
}

func (s *Session) SetRepeatMode(m model.RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.SetRepeatMode(m)
	s.publishModeLocked()
}

func (s *Session) publishModeLocked() {
	s.bus.Publish(events.ModeChanged, map[string]interface{}{
		"shuffle": s.cursor.Shuffle(),
		"repeat":  s.cursor.RepeatMode().String(),
	})
}

// SetQuery filters the visible playlist. The sequence is unchanged.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.SetQuery(q)
}

// Query is the active playlist filter.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Query()
}

// Entries returns the whole sequence.
func (s *Session) Entries() []playlist.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Entries()
}

// Visible returns the filtered rows of the sequence.
func (s *Session) Visible() []playlist.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Visible()
}

// SetStyle switches the visualizer by persisted name.
func (s *Session) SetStyle(ctx context.Context, name string) error {
	return s.registry.SetStyleName(ctx, name)
}

func (s *Session) NextStyle(ctx context.Context) visualizer.Style {
	return s.registry.NextStyle(ctx)
}

// Resize requests a new canvas size; bursts are debounced.
func (s *Session) Resize(width, height int) {
	s.registry.Resize(width, height)
}

func (s *Session) IsPlaying() bool { return s.ctrl.IsPlaying() }

// Catalog returns the current catalog. It is immutable.
func (s *Session) Catalog() *catalog.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Close stops the continuous tasks and silences the output.
func (s *Session) Close() {
	s.mu.Lock()
	s.ctrl.Pause()
	s.mu.Unlock()
	s.loop.Stop()
	s.registry.Stop()
}

func (s *Session) playingChanged(playing bool) {
	if !playing {
		// the loop clears the canvas and stops on its next tick
		return
	}
	if src := s.ctrl.Source(); src != nil {
		s.source.Store(&sourceBox{src: src})
	}
	s.loop.Start()
}

func (s *Session) analysisSource() analysis.Source {
	if box := s.source.Load(); box != nil {
		return box.src
	}
	return nil
}
