// Package frame provides the cooperative scheduler the preview engine runs
// on. Camera commits, scroll mirroring and asset repair are all deferred
// work: either coalesced onto the next frame tick or fired after a delay.
// Every callback runs on a single dispatch goroutine, so components never
// observe two callbacks concurrently.
package frame

import (
	"sync"
	"time"
)

// DefaultInterval approximates one display frame.
const DefaultInterval = 16 * time.Millisecond

// Cancel revokes scheduled work. Safe to call more than once; a no-op if
// the callback already ran.
type Cancel func()

// Scheduler defers callbacks to a frame tick or a delay.
type Scheduler interface {
	// Frame schedules fn for the next frame tick. Multiple callbacks
	// scheduled within one tick all run on that tick, in order.
	Frame(fn func()) Cancel

	// After schedules fn once after d has elapsed.
	After(d time.Duration, fn func()) Cancel
}

type frameTask struct {
	fn        func()
	cancelled bool
}

// Loop is the production Scheduler. One goroutine drains frame callbacks
// at a fixed interval and delayed callbacks as their timers fire.
type Loop struct {
	mu       sync.Mutex
	interval time.Duration
	queue    []*frameTask
	run      chan func()
	done     chan struct{}
	closed   bool
}

// NewLoop starts a dispatch loop with the given tick interval.
// A non-positive interval falls back to DefaultInterval.
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	l := &Loop{
		interval: interval,
		run:      make(chan func(), 64),
		done:     make(chan struct{}),
	}
	go l.dispatch()
	return l
}

func (l *Loop) dispatch() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case fn := <-l.run:
			fn()
		case <-ticker.C:
			l.mu.Lock()
			queue := l.queue
			l.queue = nil
			l.mu.Unlock()
			for _, t := range queue {
				l.mu.Lock()
				cancelled := t.cancelled
				l.mu.Unlock()
				if !cancelled {
					t.fn()
				}
			}
		}
	}
}

// Frame schedules fn for the next tick.
func (l *Loop) Frame(fn func()) Cancel {
	t := &frameTask{fn: fn}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return func() {}
	}
	l.queue = append(l.queue, t)
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		t.cancelled = true
		l.mu.Unlock()
	}
}

// After schedules fn on the dispatch goroutine once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) Cancel {
	var mu sync.Mutex
	cancelled := false

	timer := time.AfterFunc(d, func() {
		select {
		case l.run <- func() {
			mu.Lock()
			dead := cancelled
			mu.Unlock()
			if !dead {
				fn()
			}
		}:
		case <-l.done:
		}
	})

	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		timer.Stop()
	}
}

// Close stops the dispatch loop. Pending callbacks are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
}
