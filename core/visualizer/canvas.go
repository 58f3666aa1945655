package visualizer

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/vector"
)

// Canvas is the drawing surface handed to renderers. Alpha is the global
// opacity applied to every draw call, driven by the style cross-fade.
type Canvas struct {
	img   *image.RGBA
	ras   *vector.Rasterizer
	Alpha float64
}

// MaxCanvasDim bounds each side of the canvas. Larger requests are clamped.
const MaxCanvasDim = 4096

// ClampSize limits a requested size to [1, MaxCanvasDim] on each side.
func ClampSize(width, height int) (int, int) {
	return min(max(width, 1), MaxCanvasDim), min(max(height, 1), MaxCanvasDim)
}

func NewCanvas(width, height int) *Canvas {
	width, height = ClampSize(width, height)
	return &Canvas{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		ras:   vector.NewRasterizer(width, height),
		Alpha: 1,
	}
}

func (c *Canvas) Width() int  { return c.img.Rect.Dx() }
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// Resize reallocates the surface. Content is discarded.
func (c *Canvas) Resize(width, height int) {
	width, height = ClampSize(width, height)
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
	c.ras.Reset(width, height)
}

// Clear makes every pixel transparent.
func (c *Canvas) Clear() {
	clear(c.img.Pix)
}

// Image is the live surface. Callers must not keep it across frames.
func (c *Canvas) Image() *image.RGBA { return c.img }

// Snapshot copies the current surface.
func (c *Canvas) Snapshot() *image.RGBA {
	out := image.NewRGBA(c.img.Rect)
	copy(out.Pix, c.img.Pix)
	return out
}

// paint converts a colour and a local alpha into the source image for a draw.
func (c *Canvas) paint(col colorful.Color, alpha float64) image.Image {
	a := clamp01(alpha * c.Alpha)
	r, g, b := col.Clamped().RGB255()
	return image.NewUniform(color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(a * 255))})
}

// FillRect fills an axis-aligned rectangle.
func (c *Canvas) FillRect(x, y, w, h float64, col colorful.Color, alpha float64) {
	if w <= 0 || h <= 0 {
		return
	}
	rect := image.Rect(int(math.Floor(x)), int(math.Floor(y)), int(math.Ceil(x+w)), int(math.Ceil(y+h))).Intersect(c.img.Rect)
	if rect.Empty() {
		return
	}
	draw.Draw(c.img, rect, c.paint(col, alpha), image.Point{}, draw.Over)
}

// FillRectGradient fills a rectangle with a vertical gradient. stops are
// evenly spaced from top to bottom and blended in Lab space.
func (c *Canvas) FillRectGradient(x, y, w, h float64, stops []colorful.Color, alpha float64) {
	if w <= 0 || h <= 0 || len(stops) == 0 {
		return
	}
	top := int(math.Floor(y))
	bottom := int(math.Ceil(y + h))
	for row := top; row < bottom; row++ {
		t := 0.0
		if bottom-top > 1 {
			t = float64(row-top) / float64(bottom-top-1)
		}
		c.FillRect(x, float64(row), w, 1, Gradient(stops, t), alpha)
	}
}

// Gradient samples evenly spaced colour stops at t in [0,1].
func Gradient(stops []colorful.Color, t float64) colorful.Color {
	if len(stops) == 1 {
		return stops[0]
	}
	t = clamp01(t)
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	frac := pos - float64(i)
	if frac == 0 {
		return stops[i]
	}
	return stops[i].BlendLab(stops[i+1], frac)
}

// FillCircle fills a disc.
func (c *Canvas) FillCircle(cx, cy, r float64, col colorful.Color, alpha float64) {
	if r <= 0 {
		return
	}
	const segments = 16
	c.ras.Reset(c.Width(), c.Height())
	for i := 0; i <= segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		x, y := float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a))
		if i == 0 {
			c.ras.MoveTo(x, y)
		} else {
			c.ras.LineTo(x, y)
		}
	}
	c.ras.ClosePath()
	c.ras.Draw(c.img, c.img.Rect, c.paint(col, alpha), image.Point{})
}

// Point is a canvas coordinate.
type Point struct{ X, Y float64 }

// StrokePath strokes a polyline with the given width. Each segment is
// rasterized as a quad; closed paths join the last point to the first.
func (c *Canvas) StrokePath(pts []Point, width float64, closed bool, col colorful.Color, alpha float64) {
	if len(pts) < 2 || width <= 0 {
		return
	}
	c.ras.Reset(c.Width(), c.Height())
	half := width / 2
	n := len(pts) - 1
	if closed {
		n = len(pts)
	}
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%len(pts)]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		// normal scaled to half the width
		nx, ny := -dy/l*half, dx/l*half
		c.ras.MoveTo(float32(a.X+nx), float32(a.Y+ny))
		c.ras.LineTo(float32(b.X+nx), float32(b.Y+ny))
		c.ras.LineTo(float32(b.X-nx), float32(b.Y-ny))
		c.ras.LineTo(float32(a.X-nx), float32(a.Y-ny))
		c.ras.ClosePath()
	}
	c.ras.Draw(c.img, c.img.Rect, c.paint(col, alpha), image.Point{})
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
