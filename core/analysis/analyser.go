package analysis

import (
	"fmt"
	"math"
	"sync"
)

const (
	MinFFTSize = 32
	MaxFFTSize = 32768

	// dB range mapped onto 0..255
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// Analyser keeps the most recent FFTSize mono samples and derives byte
// arrays from them on demand. Write is called from the audio goroutine,
// the Byte* methods from the render loop.
type Analyser struct {
	size        int
	minDecibels float64
	maxDecibels float64
	window      []float64

	mu   sync.Mutex
	ring []float64
	pos  int

	scratch []complex128
	ordered []float64
}

// NewAnalyser creates an analyser with the given power-of-two window size.
func NewAnalyser(fftSize int) (*Analyser, error) {
	if !IsPowerOfTwo(fftSize) || fftSize < MinFFTSize || fftSize > MaxFFTSize {
		return nil, fmt.Errorf("fft size %d must be a power of two in [%d, %d]", fftSize, MinFFTSize, MaxFFTSize)
	}
	return &Analyser{
		size:        fftSize,
		minDecibels: DefaultMinDecibels,
		maxDecibels: DefaultMaxDecibels,
		window:      blackman(fftSize),
		ring:        make([]float64, fftSize),
		scratch:     make([]complex128, fftSize),
		ordered:     make([]float64, fftSize),
	}, nil
}

func (a *Analyser) FFTSize() int           { return a.size }
func (a *Analyser) FrequencyBinCount() int { return a.size / 2 }

// Write appends mono samples in [-1, 1].
func (a *Analyser) Write(samples []float64) {
	a.mu.Lock()
	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % a.size
	}
	a.mu.Unlock()
}

// Reset forgets buffered samples, e.g. when the source changes.
func (a *Analyser) Reset() {
	a.mu.Lock()
	for i := range a.ring {
		a.ring[i] = 0
	}
	a.pos = 0
	a.mu.Unlock()
}

// snapshotLocked copies the ring into chronological order.
func (a *Analyser) snapshotLocked() []float64 {
	for i := 0; i < a.size; i++ {
		a.ordered[i] = a.ring[(a.pos+i)%a.size]
	}
	return a.ordered
}

func (a *Analyser) ByteTimeDomainData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	samples := a.snapshotLocked()
	n := len(dst)
	if n > a.size {
		n = a.size
	}
	offset := a.size - n
	for i := 0; i < n; i++ {
		dst[i] = clampByte(128 * (1 + samples[offset+i]))
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 128
	}
}

func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	samples := a.snapshotLocked()
	for i, s := range samples {
		a.scratch[i] = complex(s*a.window[i], 0)
	}
	fft(a.scratch)

	bins := a.size / 2
	scale := 255 / (a.maxDecibels - a.minDecibels)
	for i := range dst {
		if i >= bins {
			dst[i] = 0
			continue
		}
		c := a.scratch[i]
		mag := math.Hypot(real(c), imag(c)) / float64(a.size)
		if mag <= 0 {
			dst[i] = 0
			continue
		}
		db := 20 * math.Log10(mag)
		dst[i] = clampByte((db - a.minDecibels) * scale)
	}
}

func clampByte(v float64) byte {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
