package frame

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of triggers into one callback after a quiet
// period. Used by the structural-change watch to batch DOM mutations into
// a single asset-repair pass.
type Debouncer struct {
	mu     sync.Mutex
	sched  Scheduler
	delay  time.Duration
	fn     func()
	cancel Cancel
}

// NewDebouncer wraps fn so repeated Trigger calls within delay fire it once.
func NewDebouncer(sched Scheduler, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{sched: sched, delay: delay, fn: fn}
}

// Trigger (re)arms the debounce window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.cancel = d.sched.After(d.delay, d.fn)
}

// Stop cancels any pending fire.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
