package visualizer

import (
	"math"
	"math/rand/v2"

	"UndercoverFM/core/analysis"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	starCount = 200
	// average magnitude above which the ring turns forward
	ringThreshold = 100.0
	ringPoints    = 128
)

var (
	starColor = colorful.MustParseHex("#ffffff")
	ringStops = []colorful.Color{
		colorful.MustParseHex("#00d4ff"),
		colorful.MustParseHex("#6c5ce7"),
	}
)

// star moves from the centre towards the viewer. x and y are the
// direction in [-1,1] screen space, z the depth in (0,1].
type star struct {
	x, y, z float64
	vx, vy  float64
}

// starfieldState is the simulation, keyed to the canvas size it was built for.
type starfieldState struct {
	width, height int
	stars         []star
	rotation      float64
}

// Starfield flies a particle field at a speed following the average
// magnitude and draws a rotating ring shaped by the waveform.
type Starfield struct {
	rng   *rand.Rand
	state *starfieldState
}

func NewStarfield(rng *rand.Rand) *Starfield {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Starfield{rng: rng}
}

func (s *Starfield) Style() Style { return StyleStarfield }

func (s *Starfield) reset(width, height int) {
	st := &starfieldState{width: width, height: height, stars: make([]star, starCount)}
	for i := range st.stars {
		st.stars[i] = s.spawn()
		// spread the initial depths so the field starts full
		st.stars[i].z = 0.05 + s.rng.Float64()*0.95
	}
	s.state = st
}

func (s *Starfield) spawn() star {
	a := s.rng.Float64() * 2 * math.Pi
	r := 0.02 + s.rng.Float64()*0.3
	return star{
		x:  math.Cos(a) * r,
		y:  math.Sin(a) * r,
		z:  1,
		vx: math.Cos(a) * 0.002,
		vy: math.Sin(a) * 0.002,
	}
}

func (s *Starfield) Render(c *Canvas, f *analysis.Frame) {
	w, h := c.Width(), c.Height()
	if s.state == nil || s.state.width != w || s.state.height != h {
		s.reset(w, h)
	}
	st := s.state
	avg := f.Average()
	cx, cy := float64(w)/2, float64(h)/2
	scale := math.Max(cx, cy)

	speed := 0.004 + avg/255*0.04
	for i := range st.stars {
		p := &st.stars[i]
		p.z -= speed
		p.x += p.vx * (1 + avg/64)
		p.y += p.vy * (1 + avg/64)
		if p.z <= 0.01 {
			*p = s.spawn()
			continue
		}
		sx := cx + p.x/p.z*scale
		sy := cy + p.y/p.z*scale
		if sx < 0 || sx >= float64(w) || sy < 0 || sy >= float64(h) {
			*p = s.spawn()
			continue
		}
		size := (1 - p.z) * 3
		c.FillCircle(sx, sy, math.Max(size, 0.5), starColor, 0.3+0.7*(1-p.z))
	}

	if avg > ringThreshold {
		st.rotation += 0.02
	} else {
		st.rotation -= 0.005
	}
	s.drawRing(c, f, cx, cy, avg)
}

func (s *Starfield) drawRing(c *Canvas, f *analysis.Frame, cx, cy, avg float64) {
	td := f.TimeDomain
	if len(td) == 0 {
		return
	}
	base := math.Min(cx, cy) * 0.45
	pts := make([]Point, ringPoints)
	for i := range pts {
		v := float64(td[i*len(td)/ringPoints])
		r := base + (v-128)/128*base*0.5
		a := float64(i)/ringPoints*2*math.Pi + s.state.rotation
		pts[i] = Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	col := Gradient(ringStops, avg/255)
	c.StrokePath(pts, 6, true, col, 0.15)
	c.StrokePath(pts, 2, true, col, 0.9)
}

// OnResize drops the field; the next frame rebuilds it for the new bounds.
func (s *Starfield) OnResize(width, height int) { s.state = nil }

func (s *Starfield) OnStyleEnter() { s.state = nil }
