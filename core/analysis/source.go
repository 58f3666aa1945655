// Package analysis turns the audio being played into per-frame frequency and
// time-domain byte arrays. It performs no smoothing between frames; renderers
// choose their own time constants.
package analysis

// Source is a frequency analyser sampled once per animation tick. Both
// arrays describe the current instant only.
type Source interface {
	// FFTSize is the analysis window length; the time-domain array has this length.
	FFTSize() int
	// FrequencyBinCount is FFTSize/2; the frequency array has this length.
	FrequencyBinCount() int
	// ByteFrequencyData fills dst with magnitudes 0..255.
	ByteFrequencyData(dst []byte)
	// ByteTimeDomainData fills dst with waveform samples 0..255, 128 is silence.
	ByteTimeDomainData(dst []byte)
}

// Frame is one tick's worth of analysis output.
type Frame struct {
	Frequency  []byte
	TimeDomain []byte
}

// NewFrame allocates a frame sized for src.
func NewFrame(src Source) *Frame {
	return &Frame{
		Frequency:  make([]byte, src.FrequencyBinCount()),
		TimeDomain: make([]byte, src.FFTSize()),
	}
}

// Sample overwrites the frame with the source's current instant.
func (f *Frame) Sample(src Source) {
	src.ByteFrequencyData(f.Frequency)
	src.ByteTimeDomainData(f.TimeDomain)
}

// Average returns the mean frequency magnitude, 0..255.
func (f *Frame) Average() float64 {
	if f == nil || len(f.Frequency) == 0 {
		return 0
	}
	sum := 0
	for _, v := range f.Frequency {
		sum += int(v)
	}
	return float64(sum) / float64(len(f.Frequency))
}

// Silence is a Source producing an all-quiet signal. It stands in until the
// real analysis graph is attached.
type Silence struct {
	Size int
}

func (s Silence) FFTSize() int           { return s.Size }
func (s Silence) FrequencyBinCount() int { return s.Size / 2 }

func (s Silence) ByteFrequencyData(dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
}

func (s Silence) ByteTimeDomainData(dst []byte) {
	for i := range dst {
		dst[i] = 128
	}
}
