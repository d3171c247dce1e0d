package workflow

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of change notifications into a single run on
// the trailing edge: each Trigger replaces the pending run and re-arms the
// timer, so the callback fires once, Interval after the burst goes quiet.
type Debouncer struct {
	Interval time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{Interval: interval}
}

// Trigger schedules fn to run after Interval. A pending run is dropped and
// replaced; only the last fn of a burst executes.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.Interval, fn)
}

// Cancel drops the pending run, if any. A run that has already started is
// not interrupted.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
