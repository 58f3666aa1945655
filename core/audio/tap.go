package audio

import (
	"github.com/gopxl/beep/v2"
)

// SampleSink 接收送往扬声器的单声道混音
type SampleSink interface {
	Write(samples []float64)
}

// Tap 透传音频流，同时把单声道混音写入分析器
type Tap struct {
	s    beep.Streamer
	sink SampleSink
	mono []float64
}

func NewTap(s beep.Streamer, sink SampleSink) *Tap {
	return &Tap{s: s, sink: sink}
}

func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	if n > 0 && t.sink != nil {
		if cap(t.mono) < n {
			t.mono = make([]float64, n)
		}
		mono := t.mono[:n]
		for i := range n {
			mono[i] = (samples[i][0] + samples[i][1]) / 2
		}
		t.sink.Write(mono)
	}
	return n, ok
}

func (t *Tap) Err() error {
	return t.s.Err()
}
