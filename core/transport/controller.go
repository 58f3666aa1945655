// Package transport owns play/pause and volume state and drives the audio
// output through the stream lifecycle of the current track.
package transport

import (
	"errors"
	"sync/atomic"
	"time"

	"UndercoverFM/core/analysis"
	"UndercoverFM/core/events"
	"UndercoverFM/core/playlist"
	"UndercoverFM/core/utils"
	"UndercoverFM/logger"
	"UndercoverFM/model"
)

// Output is the audio element: one stream source at a time, decoded and
// sent to the device.
type Output interface {
	// Attach builds the analysis graph. It is called once, on the first Play.
	Attach() (analysis.Source, error)
	// Resume wakes a suspended processing context.
	Resume() error
	SetSource(url string) error
	Play() error
	Pause()
	Seek(d time.Duration) error
	SetVolume(v float64)
	Position() time.Duration
	// Duration is zero while unknown.
	Duration() time.Duration
}

// NowPlaying is the metadata shown for the loaded track.
type NowPlaying struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	URL    string `json:"url"`
}

// Options configures a Controller.
type Options struct {
	Volume float64
	// OnPlayingChange runs after every isPlaying transition.
	OnPlayingChange func(playing bool)
}

// Controller is the transport. Apart from IsPlaying it is not safe for
// concurrent use; the session serializes calls.
type Controller struct {
	out    Output
	cursor *playlist.Cursor
	bus    *events.Bus
	opts   Options

	baseURL    string
	playing    atomic.Bool
	attached   bool
	source     analysis.Source
	volume     model.VolumeState
	nowPlaying NowPlaying
	loaded     bool
}

func NewController(out Output, cursor *playlist.Cursor, bus *events.Bus, opts Options) *Controller {
	v := clampVolume(opts.Volume)
	c := &Controller{
		out:    out,
		cursor: cursor,
		bus:    bus,
		opts:   opts,
		volume: model.VolumeState{Volume: v, PreviousVolume: v},
	}
	out.SetVolume(v)
	return c
}

// SetBaseURL sets the stream origin of the current catalog.
func (c *Controller) SetBaseURL(base string) { c.baseURL = base }

// IsPlaying is safe to call from any goroutine.
func (c *Controller) IsPlaying() bool { return c.playing.Load() }

// Source is the analysis source, nil until the first successful Attach.
func (c *Controller) Source() analysis.Source { return c.source }

func (c *Controller) NowPlaying() (NowPlaying, bool) { return c.nowPlaying, c.loaded }

func (c *Controller) Volume() model.VolumeState { return c.volume }

func (c *Controller) Position() time.Duration { return c.out.Position() }

func (c *Controller) Duration() time.Duration { return c.out.Duration() }

// Load points the output at track i of the sequence without starting it.
// An out-of-range index changes nothing.
func (c *Controller) Load(i int) bool {
	if !c.cursor.Jump(i) {
		return false
	}
	c.loadCurrent()
	return true
}

func (c *Controller) loadCurrent() {
	entry, ok := c.cursor.Current()
	if !ok {
		return
	}
	if c.IsPlaying() {
		c.out.Pause()
		c.setPlaying(false)
	}

	song := entry.Song
	url := BuildStreamURL(c.baseURL, song.Path, song.Filename)
	parsed := utils.ParseSongName(song.Filename)
	artist := song.ArtistName
	if artist == "" {
		artist = parsed.Artist
	}
	c.nowPlaying = NowPlaying{
		Index:  entry.Position,
		Title:  parsed.Title,
		Artist: artist,
		Album:  song.AlbumName,
		URL:    url,
	}
	c.loaded = true

	if err := c.out.SetSource(url); err != nil {
		c.fail(err)
		return
	}
	logger.Debug("载入曲目", logger.Int("index", entry.Position), logger.String("url", url))
	c.bus.Publish(events.TrackLoaded, c.nowPlaying)
}

// Play starts playback of the loaded track. A rejected start leaves
// isPlaying false and publishes a diagnostic.
func (c *Controller) Play() error {
	if !c.loaded {
		return playlist.ErrEmptySequence
	}
	if !c.attached {
		src, err := c.out.Attach()
		if err != nil {
			return c.fail(err)
		}
		c.source = src
		c.attached = true
	}
	if err := c.out.Resume(); err != nil {
		return c.fail(err)
	}
	if err := c.out.Play(); err != nil {
		return c.fail(err)
	}
	c.setPlaying(true)
	return nil
}

func (c *Controller) Pause() {
	c.out.Pause()
	c.setPlaying(false)
}

func (c *Controller) TogglePlay() error {
	if c.IsPlaying() {
		c.Pause()
		return nil
	}
	return c.Play()
}

// Next advances the cursor and keeps playing if playback was running.
func (c *Controller) Next() error {
	wasPlaying := c.IsPlaying()
	if _, err := c.cursor.Advance(); err != nil {
		return err
	}
	c.loadCurrent()
	if wasPlaying {
		return c.Play()
	}
	return nil
}

// Prev retreats the cursor and keeps playing if playback was running.
func (c *Controller) Prev() error {
	wasPlaying := c.IsPlaying()
	if _, err := c.cursor.Retreat(); err != nil {
		return err
	}
	c.loadCurrent()
	if wasPlaying {
		return c.Play()
	}
	return nil
}

// Ended handles the end of the current stream according to the repeat mode.
func (c *Controller) Ended() error {
	switch c.cursor.TrackEnded() {
	case playlist.EndRestart:
		if err := c.out.Seek(0); err != nil {
			return c.fail(err)
		}
		return c.Play()
	case playlist.EndAdvance:
		c.loadCurrent()
		return c.Play()
	default:
		c.Pause()
		return nil
	}
}

// StreamError records a failure of the active source. Playback stops.
func (c *Controller) StreamError(err error) {
	c.fail(err)
}

func (c *Controller) fail(err error) error {
	se := &StreamError{URL: c.nowPlaying.URL, Code: ErrorCode(err), Err: err}
	var existing *StreamError
	if errors.As(err, &existing) {
		se = existing
		if se.URL == "" {
			se.URL = c.nowPlaying.URL
		}
	}
	c.out.Pause()
	c.setPlaying(false)
	logger.Warn("音频播放失败",
		logger.String("url", se.URL),
		logger.Int("code", se.Code),
		logger.ErrorField(err))
	c.bus.Publish(events.Diagnostic, se.Diagnostic())
	return se
}

// Seek jumps within the current track.
func (c *Controller) Seek(d time.Duration) error {
	if d < 0 {
		d = 0
	}
	return c.out.Seek(d)
}

// SeekFraction seeks to f of the track duration. It does nothing while
// the duration is unknown.
func (c *Controller) SeekFraction(f float64) error {
	total := c.out.Duration()
	if total <= 0 {
		return nil
	}
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return c.Seek(time.Duration(f * float64(total)))
}

// SetVolume sets the volume in [0,1]. While muted the device stays silent
// and the new value is restored on unmute.
func (c *Controller) SetVolume(v float64) {
	v = clampVolume(v)
	c.volume.Volume = v
	if c.volume.Muted {
		c.volume.PreviousVolume = v
	}
	c.out.SetVolume(c.volume.Output())
	c.bus.Publish(events.VolumeChanged, c.volume)
}

// ToggleMute mutes keeping the current volume, or restores it.
func (c *Controller) ToggleMute() bool {
	if c.volume.Muted {
		c.volume.Muted = false
		c.volume.Volume = c.volume.PreviousVolume
	} else {
		c.volume.Muted = true
		c.volume.PreviousVolume = c.volume.Volume
	}
	c.out.SetVolume(c.volume.Output())
	c.bus.Publish(events.VolumeChanged, c.volume)
	return c.volume.Muted
}

func (c *Controller) setPlaying(p bool) {
	if c.playing.Swap(p) == p {
		return
	}
	c.bus.Publish(events.PlaybackChanged, map[string]bool{"playing": p})
	if c.opts.OnPlayingChange != nil {
		c.opts.OnPlayingChange(p)
	}
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
