package visualizer

import (
	"context"
	"image"
	"sync"
	"time"

	"UndercoverFM/core/analysis"
	"UndercoverFM/core/events"
	"UndercoverFM/core/scheduler"
	"UndercoverFM/logger"
)

// PreferenceKey is the persisted name of the style preference.
const PreferenceKey = "visualizerStyle"

// PreferenceStore persists user preferences across sessions.
type PreferenceStore interface {
	GetPreference(ctx context.Context, key string) (value string, ok bool, err error)
	SetPreference(ctx context.Context, key, value string) error
}

type fadePhase int

const (
	fadeIdle fadePhase = iota
	fadeOut
	fadeIn
)

// RegistryOptions configures a Registry. Zero values fall back to defaults.
type RegistryOptions struct {
	Clock          scheduler.Clock
	Width, Height  int
	FadeDuration   time.Duration
	FadeTick       time.Duration
	ResizeDebounce time.Duration
	Prefs          PreferenceStore
	Bus            *events.Bus
	// Renderers replaces the default strategy set.
	Renderers []Renderer
	Smoothing float64
}

// Registry owns the renderers, the canvas and the active style. Style
// switches cross-fade: the opacity ramps to 0, the strategy is swapped,
// then it ramps back to 1, each ramp lasting FadeDuration of wall-clock time.
type Registry struct {
	clock scheduler.Clock
	prefs PreferenceStore
	bus   *events.Bus

	mu         sync.Mutex
	renderers  map[Style]Renderer
	fallback   Style
	canvas     *Canvas
	active     Style
	target     Style
	opacity    float64
	phase      fadePhase
	phaseStart time.Time
	phaseFrom  float64
	fadeDur    time.Duration
	pendingW   int
	pendingH   int

	fade   *scheduler.Task
	resize *scheduler.Debouncer
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = scheduler.Real()
	}
	if opts.FadeTick <= 0 {
		opts.FadeTick = time.Second / 60
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 200
	}
	if len(opts.Renderers) == 0 {
		opts.Renderers = []Renderer{NewBars(opts.Smoothing), NewStarfield(nil), NewWave()}
	}

	r := &Registry{
		clock:     opts.Clock,
		prefs:     opts.Prefs,
		bus:       opts.Bus,
		renderers: make(map[Style]Renderer, len(opts.Renderers)),
		canvas:    NewCanvas(opts.Width, opts.Height),
		opacity:   1,
		fadeDur:   opts.FadeDuration,
	}
	for _, rd := range opts.Renderers {
		r.renderers[rd.Style()] = rd
	}
	r.fallback = opts.Renderers[0].Style()
	if _, ok := r.renderers[StyleBars]; ok {
		r.fallback = StyleBars
	}
	r.active, r.target = r.fallback, r.fallback
	r.fade = scheduler.NewTask(opts.Clock, opts.FadeTick, r.fadeStep)
	r.resize = scheduler.NewDebouncer(opts.Clock, opts.ResizeDebounce, r.applyResize)
	return r
}

// LoadPreference activates the persisted style without a fade. Missing,
// unreadable or unknown preferences leave the bar spectrum active.
func (r *Registry) LoadPreference(ctx context.Context) Style {
	style := r.fallback
	if r.prefs != nil {
		v, ok, err := r.prefs.GetPreference(ctx, PreferenceKey)
		switch {
		case err != nil:
			logger.Warn("读取可视化偏好失败", logger.ErrorField(err))
		case ok:
			if s, err := ParseStyle(v); err == nil {
				style = s
			} else {
				logger.Warn("忽略未知的可视化样式", logger.String("value", v))
			}
		}
	}
	if _, ok := r.renderers[style]; !ok {
		style = r.fallback
	}

	r.mu.Lock()
	r.active, r.target = style, style
	r.mu.Unlock()
	return style
}

// SetStyle starts a cross-fade to s and persists the choice.
func (r *Registry) SetStyle(ctx context.Context, s Style) error {
	if _, ok := r.renderers[s]; !ok {
		return ErrUnknownStyle
	}

	r.mu.Lock()
	if s == r.target {
		r.mu.Unlock()
		return nil
	}
	r.target = s
	now := r.clock.Now()
	switch r.phase {
	case fadeIdle, fadeIn:
		r.phase = fadeOut
		r.phaseStart = now
		r.phaseFrom = r.opacity
	case fadeOut:
		// keep ramping down, the new target is swapped in at the bottom
	}
	instant := r.fadeDur <= 0
	r.mu.Unlock()

	r.persist(ctx, s)
	if instant {
		r.fadeStep(now)
		r.fadeStep(now)
		return nil
	}
	r.fade.Start()
	return nil
}

// SetStyleName parses and applies a preference string.
func (r *Registry) SetStyleName(ctx context.Context, name string) error {
	s, err := ParseStyle(name)
	if err != nil {
		return err
	}
	return r.SetStyle(ctx, s)
}

// NextStyle switches to the style after the current target.
func (r *Registry) NextStyle(ctx context.Context) Style {
	r.mu.Lock()
	next := r.target.Next()
	r.mu.Unlock()
	r.SetStyle(ctx, next)
	return next
}

func (r *Registry) persist(ctx context.Context, s Style) {
	if r.prefs == nil {
		return
	}
	if err := r.prefs.SetPreference(ctx, PreferenceKey, s.String()); err != nil {
		logger.Warn("保存可视化偏好失败", logger.String("style", s.String()), logger.ErrorField(err))
	}
}

// fadeStep advances the cross-fade to now. It returns false once the
// fade has finished.
func (r *Registry) fadeStep(now time.Time) bool {
	r.mu.Lock()
	var swapped *Style
	cont := true

	elapsed := now.Sub(r.phaseStart)
	frac := 1.0
	if r.fadeDur > 0 {
		frac = clamp01(float64(elapsed) / float64(r.fadeDur))
	}

	switch r.phase {
	case fadeOut:
		r.opacity = r.phaseFrom * (1 - frac)
		if frac >= 1 {
			r.opacity = 0
			r.active = r.target
			if se, ok := r.renderers[r.active].(StyleEnterer); ok {
				se.OnStyleEnter()
			}
			s := r.active
			swapped = &s
			r.phase = fadeIn
			r.phaseStart = now
		}
	case fadeIn:
		r.opacity = frac
		if frac >= 1 {
			r.opacity = 1
			r.phase = fadeIdle
			cont = false
		}
	default:
		cont = false
	}
	r.mu.Unlock()

	if swapped != nil {
		logger.Debug("切换可视化样式", logger.String("style", swapped.String()))
		r.bus.Publish(events.StyleChanged, map[string]string{"style": swapped.String()})
	}
	return cont
}

// Resize requests a new canvas size. Bursts are coalesced; renderers see
// one resize after the quiet period.
func (r *Registry) Resize(width, height int) {
	r.mu.Lock()
	r.pendingW, r.pendingH = ClampSize(width, height)
	r.mu.Unlock()
	r.resize.Trigger()
}

func (r *Registry) applyResize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, h := ClampSize(r.pendingW, r.pendingH)
	r.canvas.Resize(w, h)
	for _, rd := range r.renderers {
		if rs, ok := rd.(Resizer); ok {
			rs.OnResize(w, h)
		}
	}
	logger.Debug("画布尺寸变化", logger.Int("width", w), logger.Int("height", h))
}

// TrackChanged resets the renderers keyed to the previous track.
func (r *Registry) TrackChanged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rd := range r.renderers {
		if tc, ok := rd.(TrackChangeAware); ok {
			tc.OnTrackChange()
		}
	}
}

// Render draws f with the active renderer at the current fade opacity.
func (r *Registry) Render(f *analysis.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvas.Clear()
	r.canvas.Alpha = r.opacity
	r.renderers[r.active].Render(r.canvas, f)
}

// Clear blanks the canvas.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvas.Clear()
}

// Snapshot copies the canvas.
func (r *Registry) Snapshot() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canvas.Snapshot()
}

// Active is the style currently drawn.
func (r *Registry) Active() Style {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Target is the style being switched to, equal to Active when idle.
func (r *Registry) Target() Style {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

func (r *Registry) Opacity() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opacity
}

func (r *Registry) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canvas.Width(), r.canvas.Height()
}

// Renderer returns the strategy registered for s.
func (r *Registry) Renderer(s Style) (Renderer, bool) {
	rd, ok := r.renderers[s]
	return rd, ok
}

// Stop cancels pending fades and resizes.
func (r *Registry) Stop() {
	r.fade.Stop()
	r.resize.Cancel()
}
