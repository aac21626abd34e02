package frame

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler for tests. Nothing fires until the
// test advances the clock or pumps a tick.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	frames []*frameTask
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// NewManual creates a manual scheduler with its clock at zero.
func NewManual() *Manual {
	return &Manual{}
}

// Frame queues fn for the next Tick call.
func (m *Manual) Frame(fn func()) Cancel {
	t := &frameTask{fn: fn}
	m.mu.Lock()
	m.frames = append(m.frames, t)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		t.cancelled = true
		m.mu.Unlock()
	}
}

// After queues fn to fire when the clock passes d.
func (m *Manual) After(d time.Duration, fn func()) Cancel {
	m.mu.Lock()
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		t.cancelled = true
		m.mu.Unlock()
	}
}

// Tick runs every frame callback queued so far. Callbacks queued while
// ticking wait for the next Tick, matching one-frame coalescing.
func (m *Manual) Tick() {
	m.mu.Lock()
	queue := m.frames
	m.frames = nil
	m.mu.Unlock()

	for _, t := range queue {
		m.mu.Lock()
		cancelled := t.cancelled
		m.mu.Unlock()
		if !cancelled {
			t.fn()
		}
	}
}

// Advance moves the clock forward, firing due timers in order, then runs
// a frame tick.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	deadline := m.now

	var due []*manualTimer
	remaining := m.timers[:0]
	for _, t := range m.timers {
		if t.at <= deadline && !t.cancelled {
			due = append(due, t)
		} else if !t.cancelled {
			remaining = append(remaining, t)
		}
	}
	m.timers = remaining
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.fn()
	}

	m.Tick()
}

// PendingFrames reports how many frame callbacks are queued.
func (m *Manual) PendingFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.frames {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// PendingTimers reports how many timers are armed.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}
