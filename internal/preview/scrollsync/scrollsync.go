// Package scrollsync mirrors scroll offsets between a comparison pair of
// surfaces. Each pair runs a small state machine (Idle, AttachPending,
// Attached, Error); mirrored writes carry an initiator token so they never
// re-trigger a sync in the opposite direction.
package scrollsync

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/infrastructure/resilience"
	"github.com/previewlab/restyle/internal/logging"
	"github.com/previewlab/restyle/internal/preview/surface"
	"github.com/previewlab/restyle/internal/shared/frame"
)

// Status is the pair's attachment state.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusAttachPending Status = "attach_pending"
	StatusAttached      Status = "attached"

	// StatusError means the attach retries are exhausted; comparison
	// mode stays usable without synchronized scrolling.
	StatusError Status = "error"
)

// Attach retry schedules. The two-surface case retries faster because
// both documents load together; the multi-surface grid staggers loads.
var (
	TwoSurfaceSchedule = resilience.NewBackoff(
		100*time.Millisecond, 300*time.Millisecond, 800*time.Millisecond)
	MultiSurfaceSchedule = resilience.NewBackoff(
		250*time.Millisecond, 750*time.Millisecond,
		1500*time.Millisecond, 3*time.Second)
)

type initiator int

const (
	initiatorNone initiator = iota
	initiatorA
	initiatorB
)

// Pair synchronizes one surface pair.
type Pair struct {
	log     *logging.Logger
	sched   frame.Scheduler
	a, b    surface.Handle
	backoff resilience.Backoff

	mu        sync.Mutex
	status    Status
	attempt   int
	initiator initiator
	pending   frame.Cancel
	retry     frame.Cancel
	removers  []func()
	done      chan struct{}
}

// NewPair creates an idle pair; Attach starts it.
func NewPair(a, b surface.Handle, sched frame.Scheduler, backoff resilience.Backoff, log *logging.Logger) *Pair {
	if log == nil {
		log = logging.NewNop()
	}
	return &Pair{
		log:     log.Component("scrollsync"),
		sched:   sched,
		a:       a,
		b:       b,
		backoff: backoff,
		status:  StatusIdle,
	}
}

// Status returns the current attachment state.
func (p *Pair) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Attach resolves both surfaces' scrollable contexts and installs the
// scroll listeners. When a surface is not ready yet it retries on the
// surface's own load signal and on the bounded backoff schedule;
// exhausting the schedule parks the pair in StatusError.
func (p *Pair) Attach() {
	p.mu.Lock()
	if p.status == StatusAttached || p.status == StatusAttachPending {
		p.mu.Unlock()
		return
	}
	p.status = StatusAttachPending
	p.attempt = 0
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.watchReady()
	p.tryAttach()
}

// Detach removes all listeners and cancels any pending frame-scheduled
// sync or retry. Safe to call in any state.
func (p *Pair) Detach() {
	p.mu.Lock()
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	removers := p.removers
	p.removers = nil
	if p.pending != nil {
		p.pending()
		p.pending = nil
	}
	if p.retry != nil {
		p.retry()
		p.retry = nil
	}
	p.status = StatusIdle
	p.initiator = initiatorNone
	p.mu.Unlock()

	for _, rm := range removers {
		rm()
	}
}

// watchReady attaches as soon as both surfaces report loaded, without
// waiting out the backoff schedule.
func (p *Pair) watchReady() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return
	}

	select {
	case <-done:
		return
	case <-p.a.Ready():
	}
	select {
	case <-done:
		return
	case <-p.b.Ready():
	}
	p.tryAttach()
}

func (p *Pair) tryAttach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusAttachPending {
		return
	}
	if p.retry != nil {
		p.retry()
		p.retry = nil
	}

	if !loaded(p.a) || !loaded(p.b) || !scrollable(p.a) || !scrollable(p.b) {
		p.scheduleRetryLocked()
		return
	}

	p.removers = append(p.removers,
		p.a.OnScroll(func(surface.Offset) { p.observe(initiatorA) }),
		p.b.OnScroll(func(surface.Offset) { p.observe(initiatorB) }),
	)
	p.status = StatusAttached
	p.log.Debug("pair attached", zap.Int("attempts", p.attempt+1))
}

func (p *Pair) scheduleRetryLocked() {
	delay, ok := p.backoff.Delay(p.attempt)
	if !ok {
		p.status = StatusError
		p.log.Warn("scroll sync attach failed", zap.Int("attempts", p.attempt))
		return
	}
	p.attempt++
	p.retry = p.sched.After(delay, p.tryAttach)
}

// observe handles a scroll event from one side. The first event claims
// the initiator token and schedules one mirror on the next frame; events
// from the opposite side are absorbed until the mirror completes.
func (p *Pair) observe(from initiator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusAttached {
		return
	}
	if p.initiator != initiatorNone && p.initiator != from {
		return
	}
	p.initiator = from
	if p.pending == nil {
		p.pending = p.sched.Frame(p.sync)
	}
}

// sync mirrors the initiator's current offset onto the counterpart. The
// write happens outside the lock; the counterpart's own scroll event
// arrives while the token is still held and is absorbed.
func (p *Pair) sync() {
	p.mu.Lock()
	p.pending = nil
	if p.status != StatusAttached || p.initiator == initiatorNone {
		p.mu.Unlock()
		return
	}
	src, dst := p.a, p.b
	if p.initiator == initiatorB {
		src, dst = p.b, p.a
	}
	p.mu.Unlock()

	off, err := src.ScrollOffset()
	if err == nil {
		err = dst.SetScrollOffset(off)
	}
	if err != nil {
		p.log.Warn("scroll mirror failed", zap.Error(err))
	}

	p.mu.Lock()
	p.initiator = initiatorNone
	p.mu.Unlock()
}

func loaded(h surface.Handle) bool {
	select {
	case <-h.Ready():
		return true
	default:
		return false
	}
}

func scrollable(h surface.Handle) bool {
	_, err := h.ScrollOffset()
	return err == nil
}
