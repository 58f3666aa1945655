package visualizer

import (
	"image"
	"time"

	"UndercoverFM/core/analysis"
	"UndercoverFM/core/scheduler"
)

// FrameSink receives every rendered frame, and the blank frame published
// when the loop stops.
type FrameSink interface {
	PublishFrame(img *image.RGBA)
}

// LoopOptions wires the render loop to the playback state.
type LoopOptions struct {
	Clock    scheduler.Clock
	Interval time.Duration
	// IsPlaying is read at the start of every tick.
	IsPlaying func() bool
	// Source returns the analysis source, nil until attached.
	Source func() analysis.Source
	Sink   FrameSink
}

// Loop is the render loop: a repeating task that samples the analysis
// source and renders while playback runs. A tick that finds playback
// stopped clears the canvas and does not reschedule.
type Loop struct {
	reg   *Registry
	opts  LoopOptions
	task  *scheduler.Task
	frame *analysis.Frame
	src   analysis.Source
}

func NewLoop(reg *Registry, opts LoopOptions) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 60
	}
	l := &Loop{reg: reg, opts: opts}
	l.task = scheduler.NewTask(opts.Clock, opts.Interval, l.tick)
	return l
}

// Start schedules the loop. Starting a running loop is a no-op.
func (l *Loop) Start() { l.task.Start() }

// Stop cancels the loop explicitly.
func (l *Loop) Stop() { l.task.Stop() }

func (l *Loop) Running() bool { return l.task.Running() }

func (l *Loop) tick(time.Time) bool {
	if !l.opts.IsPlaying() {
		l.reg.Clear()
		l.publish()
		return false
	}

	src := l.opts.Source()
	if src == nil {
		return true
	}
	if src != l.src || l.frame == nil {
		l.src = src
		l.frame = analysis.NewFrame(src)
	}
	l.frame.Sample(src)
	l.reg.Render(l.frame)
	l.publish()
	return true
}

func (l *Loop) publish() {
	if l.opts.Sink != nil {
		l.opts.Sink.PublishFrame(l.reg.Snapshot())
	}
}
