// Package camera owns the pan/zoom transform of the preview canvas.
//
// Input events write to a fast local buffer; a frame-coalesced commit
// pushes the buffer into shared application state at most once per frame
// and again when the interaction ends, so visual feedback stays immediate
// while shared-state churn is bounded.
package camera

import (
	"math"
	"sync"

	"github.com/previewlab/restyle/internal/shared/frame"
)

const (
	// MinZoom and MaxZoom bound the zoom factor.
	MinZoom = 0.1
	MaxZoom = 5.0

	// zoomEpsilon discards sub-threshold zoom deltas as no-ops.
	zoomEpsilon = 0.0001
)

// Point is a 2D offset in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the committed camera transform.
type State struct {
	Zoom float64 `json:"zoom"`
	Pan  Point   `json:"pan"`
}

// Camera buffers pan/zoom input and commits it on frame ticks.
type Camera struct {
	mu          sync.Mutex
	buf         State
	interacting bool
	dirty       bool
	pending     frame.Cancel

	sched  frame.Scheduler
	commit func(State)
}

// New creates a camera at zoom 1 with no pan. commit receives the buffered
// state on each coalesced flush; it may be nil.
func New(sched frame.Scheduler, commit func(State)) *Camera {
	if commit == nil {
		commit = func(State) {}
	}
	return &Camera{
		buf:    State{Zoom: 1},
		sched:  sched,
		commit: commit,
	}
}

// State returns the current buffered transform.
func (c *Camera) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf
}

// ZoomAt applies a multiplicative zoom step anchored at cursor, given as
// the pointer offset from the canvas center. The content point under the
// cursor keeps its screen position:
//
//	newPan = cursor - (cursor - oldPan) * (newZoom / oldZoom)
func (c *Camera) ZoomAt(cursor Point, factor float64) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldZoom := c.buf.Zoom
	newZoom := clampZoom(oldZoom * factor)
	if math.Abs(newZoom-oldZoom) < zoomEpsilon {
		return c.buf
	}

	scale := newZoom / oldZoom
	c.buf.Zoom = newZoom
	c.buf.Pan = Point{
		X: cursor.X - (cursor.X-c.buf.Pan.X)*scale,
		Y: cursor.Y - (cursor.Y-c.buf.Pan.Y)*scale,
	}
	c.scheduleCommitLocked()
	return c.buf
}

// SetZoom sets an absolute zoom level anchored at the canvas center.
func (c *Camera) SetZoom(zoom float64) State {
	c.mu.Lock()
	current := c.buf.Zoom
	c.mu.Unlock()
	if current == 0 {
		current = 1
	}
	return c.ZoomAt(Point{}, clampZoom(zoom)/current)
}

// PanBy translates the pan buffer while dragging.
func (c *Camera) PanBy(delta Point) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Pan.X += delta.X
	c.buf.Pan.Y += delta.Y
	c.scheduleCommitLocked()
	return c.buf
}

// Reset restores the identity transform and commits immediately.
func (c *Camera) Reset() {
	c.mu.Lock()
	c.buf = State{Zoom: 1}
	c.mu.Unlock()
	c.flush()
}

// BeginInteraction marks the start of a drag or pinch gesture.
func (c *Camera) BeginInteraction() {
	c.mu.Lock()
	c.interacting = true
	c.mu.Unlock()
}

// EndInteraction marks the end of a gesture and flushes any buffered
// state immediately instead of waiting for the next frame.
func (c *Camera) EndInteraction() {
	c.mu.Lock()
	c.interacting = false
	dirty := c.dirty
	if c.pending != nil {
		c.pending()
		c.pending = nil
	}
	c.mu.Unlock()
	if dirty {
		c.flush()
	}
}

// Interacting reports whether a gesture is in progress.
func (c *Camera) Interacting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interacting
}

func (c *Camera) scheduleCommitLocked() {
	c.dirty = true
	if c.pending != nil {
		return
	}
	c.pending = c.sched.Frame(func() {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		c.flush()
	})
}

func (c *Camera) flush() {
	c.mu.Lock()
	state := c.buf
	c.dirty = false
	c.mu.Unlock()
	c.commit(state)
}

func clampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
