package visualizer

import (
	"math"

	"UndercoverFM/core/analysis"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	bandSmoothing = 0.2
	kickThreshold = 0.6
	kickDecay     = 0.9
	wavePoints    = 96
)

// band boundaries as fractions of the bin count
var bandEdges = [4]float64{0, 0.1, 0.4, 1}

var bandColors = [3]colorful.Color{
	colorful.MustParseHex("#ff4d6d"),
	colorful.MustParseHex("#6c5ce7"),
	colorful.MustParseHex("#00d4ff"),
}

// Bands is the per-band energy in [0,1].
type Bands [3]float64

// SplitBands averages the low, mid and high bands (the first 10%, the
// next 30% and the last 60% of the bins), normalized to [0,1].
func SplitBands(freq []byte) Bands {
	var out Bands
	n := len(freq)
	if n == 0 {
		return out
	}
	for b := 0; b < 3; b++ {
		lo := int(bandEdges[b] * float64(n))
		hi := int(bandEdges[b+1] * float64(n))
		if hi <= lo {
			hi = min(lo+1, n)
		}
		if lo >= n {
			continue
		}
		sum := 0
		for _, v := range freq[lo:hi] {
			sum += int(v)
		}
		out[b] = float64(sum) / float64(hi-lo) / 255
	}
	return out
}

type waveState struct {
	energy  Bands
	lastLow float64
	kick    float64
	phase   float64
	primed  bool
}

// Wave draws three phase-offset sine curves, one per band, whose
// amplitude, thickness and glow follow the smoothed band energies. A kick
// on the low band pulses all curves.
type Wave struct {
	state waveState
}

func NewWave() *Wave { return &Wave{} }

func (w *Wave) Style() Style { return StyleWave }

// Kick is the current kick energy, 1 right after a kick and decaying.
func (w *Wave) Kick() float64 { return w.state.kick }

// Energy is the smoothed band energy.
func (w *Wave) Energy() Bands { return w.state.energy }

func (w *Wave) update(raw Bands) {
	st := &w.state
	if !st.primed {
		st.energy = raw
		st.primed = true
	} else {
		for i := range st.energy {
			st.energy[i] += (raw[i] - st.energy[i]) * bandSmoothing
		}
	}

	if raw[0] > kickThreshold && st.lastLow <= kickThreshold {
		st.kick = 1
	} else {
		st.kick *= kickDecay
	}
	st.lastLow = raw[0]
	st.phase += 0.04 + st.energy[1]*0.1
}

func (w *Wave) Render(c *Canvas, f *analysis.Frame) {
	w.update(SplitBands(f.Frequency))
	st := &w.state

	width, height := float64(c.Width()), float64(c.Height())
	mid := height / 2
	pts := make([]Point, wavePoints+1)

	for b := 0; b < 3; b++ {
		e := st.energy[b]
		amp := height * 0.12 * (0.15 + e)
		if b == 0 {
			amp += height * 0.15 * st.kick
		}
		freq := 1.5 + float64(b)*1.5
		offset := float64(b) * 2 * math.Pi / 3

		for i := range pts {
			t := float64(i) / wavePoints
			// taper the ends so curves start and finish on the centre line
			env := math.Sin(t * math.Pi)
			y := mid + amp*env*math.Sin(t*freq*2*math.Pi+st.phase*(1+float64(b)*0.3)+offset)
			pts[i] = Point{X: t * width, Y: y}
		}

		thickness := 1.5 + e*4 + st.kick*2
		glow := 0.1 + e*0.3 + st.kick*0.2
		c.StrokePath(pts, thickness*4, false, bandColors[b], glow)
		c.StrokePath(pts, thickness, false, bandColors[b], 0.9)
	}
}

func (w *Wave) OnTrackChange() { w.state = waveState{} }

func (w *Wave) OnStyleEnter() { w.state = waveState{} }
