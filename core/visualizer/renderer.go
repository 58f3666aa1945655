package visualizer

import (
	"UndercoverFM/core/analysis"
)

// Renderer draws one analysis frame. Renderers own their state across
// frames and must accept a first frame with no history.
type Renderer interface {
	Style() Style
	Render(c *Canvas, f *analysis.Frame)
}

// StyleEnterer is notified when its style becomes active, at the bottom of
// the cross-fade. Renderer-local caches are dropped here.
type StyleEnterer interface {
	OnStyleEnter()
}

// Resizer is notified after the canvas changed size.
type Resizer interface {
	OnResize(width, height int)
}

// TrackChangeAware is notified when a new track is loaded.
type TrackChangeAware interface {
	OnTrackChange()
}
