package visualizer

import (
	"UndercoverFM/core/analysis"

	"github.com/lucasb-eyer/go-colorful"
)

var barStops = []colorful.Color{
	colorful.MustParseHex("#6c5ce7"),
	colorful.MustParseHex("#00d4ff"),
	colorful.MustParseHex("#6c5ce7"),
}

// Bars draws one vertical bar per frequency bin, 80% of the canvas height
// at full magnitude, exponentially smoothed against the previous frame.
type Bars struct {
	// Smoothing is the factor in (0,1]; 1 disables smoothing.
	Smoothing float64

	prev []float64
}

func NewBars(smoothing float64) *Bars {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = 1
	}
	return &Bars{Smoothing: smoothing}
}

func (b *Bars) Style() Style { return StyleBars }

func (b *Bars) Render(c *Canvas, f *analysis.Frame) {
	bins := len(f.Frequency)
	if bins == 0 {
		return
	}
	if len(b.prev) != bins {
		b.prev = nil
	}

	w, h := float64(c.Width()), float64(c.Height())
	barWidth := w / float64(bins) * 2.5
	smoothed := make([]float64, bins)

	x := 0.0
	for i, v := range f.Frequency {
		cur := float64(v)
		if b.prev != nil {
			cur = b.prev[i] + (cur-b.prev[i])*b.Smoothing
		}
		smoothed[i] = cur

		if x < w {
			barHeight := cur / 255 * h * 0.8
			c.FillRectGradient(x, h-barHeight, barWidth, barHeight, barStops, 1)
		}
		x += barWidth + 1
	}
	b.prev = smoothed
}

// OnTrackChange forgets the previous frame.
func (b *Bars) OnTrackChange() { b.prev = nil }

func (b *Bars) OnStyleEnter() { b.prev = nil }
