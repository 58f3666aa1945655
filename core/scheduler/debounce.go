package scheduler

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Trigger calls into a single fn call after
// a quiet period. Each Trigger cancels the pending execution.
type Debouncer struct {
	clock Clock
	wait  time.Duration
	fn    func()

	mu    sync.Mutex
	timer Timer
}

func NewDebouncer(clock Clock, wait time.Duration, fn func()) *Debouncer {
	if clock == nil {
		clock = Real()
	}
	return &Debouncer{clock: clock, wait: wait, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	var t Timer
	t = d.clock.AfterFunc(d.wait, func() {
		d.mu.Lock()
		if d.timer != t {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fn()
	})
	d.timer = t
}

// Cancel drops the pending execution, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether an execution is waiting for the quiet period to end.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
