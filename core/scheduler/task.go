package scheduler

import (
	"sync"
	"time"
)

// Task is a self-rescheduling repeating job. Each run calls fn; when fn
// returns false the task stops without rescheduling. Stop cancels the task
// explicitly; a run already in flight completes but is not rescheduled.
type Task struct {
	clock    Clock
	interval time.Duration
	fn       func(now time.Time) bool

	mu      sync.Mutex
	running bool
	// restart records a Start that arrived while a run was in flight.
	restart bool
	gen     uint64
	timer   Timer
}

// NewTask creates a stopped task running fn every interval.
func NewTask(clock Clock, interval time.Duration, fn func(now time.Time) bool) *Task {
	if clock == nil {
		clock = Real()
	}
	return &Task{clock: clock, interval: interval, fn: fn}
}

// Start schedules the first run one interval from now. Starting a running
// task only marks it for rescheduling, so a run that is about to return
// false does not swallow the request.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.restart = true
		return
	}
	t.running = true
	t.gen++
	t.scheduleLocked(t.gen)
}

// Stop cancels the pending run.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.restart = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Running reports whether a next run is scheduled or in flight.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Task) scheduleLocked(gen uint64) {
	t.timer = t.clock.AfterFunc(t.interval, func() { t.run(gen) })
}

func (t *Task) run(gen uint64) {
	t.mu.Lock()
	if !t.running || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.restart = false
	t.mu.Unlock()

	cont := t.fn(t.clock.Now())

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || !t.running {
		return
	}
	if !cont && !t.restart {
		t.running = false
		t.timer = nil
		return
	}
	t.restart = false
	t.scheduleLocked(gen)
}
