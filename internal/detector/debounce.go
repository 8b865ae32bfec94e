package detector

import (
	"sync"
	"time"
)

// Clock schedules deferred work. It exists so tests can drive time.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs work on the trailing edge of a burst of triggers. It holds
// at most one pending timer: every Trigger cancels it and schedules anew.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu      sync.Mutex
	pending Timer
	gen     uint64
	closed  bool
}

func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = realClock{}
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger (re)starts the quiet-period timer; fn runs once the delay elapses
// without another Trigger.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.pending != nil {
		d.pending.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A timer that fired while being replaced must not run.
		if d.closed || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		fn()
	})
}

// isPending reports whether a run is scheduled.
func (d *Debouncer) isPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop cancels the pending run and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
