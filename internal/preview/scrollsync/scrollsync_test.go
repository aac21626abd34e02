package scrollsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previewlab/restyle/internal/preview/surface"
	"github.com/previewlab/restyle/internal/shared/frame"
)

const pageHTML = "<html><head></head><body><p>content</p></body></html>"

func readyPair(t *testing.T, sched frame.Scheduler) (*Pair, *surface.DocSurface, *surface.DocSurface) {
	t.Helper()
	a := surface.NewDocSurface()
	b := surface.NewDocSurface()
	require.NoError(t, a.Write(pageHTML))
	require.NoError(t, b.Write(pageHTML))
	return NewPair(a, b, sched, TwoSurfaceSchedule, nil), a, b
}

func TestAttachWhenReady(t *testing.T) {
	sched := frame.NewManual()
	p, _, _ := readyPair(t, sched)

	assert.Equal(t, StatusIdle, p.Status())
	p.Attach()
	assert.Equal(t, StatusAttached, p.Status())
	assert.Equal(t, 0, sched.PendingTimers())
}

func TestScrollMirrorsWithinOneFrame(t *testing.T) {
	sched := frame.NewManual()
	p, a, b := readyPair(t, sched)
	p.Attach()

	require.NoError(t, a.SetScrollOffset(surface.Offset{Y: 120}))
	off, err := b.ScrollOffset()
	require.NoError(t, err)
	assert.Equal(t, 0.0, off.Y, "mirror waits for the frame tick")

	sched.Tick()
	off, err = b.ScrollOffset()
	require.NoError(t, err)
	assert.Equal(t, 120.0, off.Y)

	// The mirrored write fired b's own scroll listener; the initiator
	// token absorbed it, so no reverse sync is pending.
	assert.Equal(t, 0, sched.PendingFrames())
	offA, err := a.ScrollOffset()
	require.NoError(t, err)
	assert.Equal(t, 120.0, offA.Y)
}

func TestScrollCoalescesPerFrame(t *testing.T) {
	sched := frame.NewManual()
	p, a, b := readyPair(t, sched)
	p.Attach()

	require.NoError(t, a.SetScrollOffset(surface.Offset{Y: 10}))
	require.NoError(t, a.SetScrollOffset(surface.Offset{Y: 20}))
	require.NoError(t, a.SetScrollOffset(surface.Offset{Y: 30}))
	assert.Equal(t, 1, sched.PendingFrames())

	sched.Tick()
	off, err := b.ScrollOffset()
	require.NoError(t, err)
	assert.Equal(t, 30.0, off.Y, "mirror reads the latest offset")
}

func TestReverseDirection(t *testing.T) {
	sched := frame.NewManual()
	p, a, b := readyPair(t, sched)
	p.Attach()

	require.NoError(t, b.SetScrollOffset(surface.Offset{Y: 44}))
	sched.Tick()
	off, err := a.ScrollOffset()
	require.NoError(t, err)
	assert.Equal(t, 44.0, off.Y)
}

func TestAttachRetriesThenError(t *testing.T) {
	sched := frame.NewManual()
	a := surface.NewDocSurface()
	b := surface.NewDocSurface()
	p := NewPair(a, b, sched, TwoSurfaceSchedule, nil)

	p.Attach()
	assert.Equal(t, StatusAttachPending, p.Status())
	assert.Equal(t, 1, sched.PendingTimers())

	sched.Advance(100 * time.Millisecond)
	assert.Equal(t, StatusAttachPending, p.Status())
	sched.Advance(300 * time.Millisecond)
	assert.Equal(t, StatusAttachPending, p.Status())
	sched.Advance(800 * time.Millisecond)
	assert.Equal(t, StatusError, p.Status())
	assert.Equal(t, 0, sched.PendingTimers())
}

func TestAttachOnLoadSignal(t *testing.T) {
	sched := frame.NewManual()
	a := surface.NewDocSurface()
	b := surface.NewDocSurface()
	p := NewPair(a, b, sched, TwoSurfaceSchedule, nil)

	p.Attach()
	require.Equal(t, StatusAttachPending, p.Status())

	require.NoError(t, a.Write(pageHTML))
	require.NoError(t, b.Write(pageHTML))
	assert.Eventually(t, func() bool {
		return p.Status() == StatusAttached
	}, time.Second, 5*time.Millisecond)
}

func TestRestrictedSurfaceExhaustsRetries(t *testing.T) {
	sched := frame.NewManual()
	a := surface.NewDocSurface()
	require.NoError(t, a.Write(pageHTML))
	p := NewPair(a, surface.NewRestrictedSurface(), sched, TwoSurfaceSchedule, nil)

	p.Attach()
	sched.Advance(100 * time.Millisecond)
	sched.Advance(300 * time.Millisecond)
	sched.Advance(800 * time.Millisecond)
	assert.Equal(t, StatusError, p.Status())
}

func TestDetachCancelsPendingSync(t *testing.T) {
	sched := frame.NewManual()
	p, a, b := readyPair(t, sched)
	p.Attach()

	require.NoError(t, a.SetScrollOffset(surface.Offset{Y: 50}))
	p.Detach()
	assert.Equal(t, StatusIdle, p.Status())

	sched.Tick()
	off, err := b.ScrollOffset()
	require.NoError(t, err)
	assert.Equal(t, 0.0, off.Y)

	// Listeners removed: further scrolls schedule nothing.
	require.NoError(t, a.SetScrollOffset(surface.Offset{Y: 60}))
	assert.Equal(t, 0, sched.PendingFrames())
}

func TestDetachDuringRetry(t *testing.T) {
	sched := frame.NewManual()
	a := surface.NewDocSurface()
	b := surface.NewDocSurface()
	p := NewPair(a, b, sched, TwoSurfaceSchedule, nil)

	p.Attach()
	require.Equal(t, 1, sched.PendingTimers())
	p.Detach()
	assert.Equal(t, StatusIdle, p.Status())

	sched.Advance(5 * time.Second)
	assert.Equal(t, StatusIdle, p.Status())
}

func TestReattachAfterDetach(t *testing.T) {
	sched := frame.NewManual()
	p, a, b := readyPair(t, sched)
	p.Attach()
	p.Detach()
	p.Attach()
	require.Equal(t, StatusAttached, p.Status())

	require.NoError(t, a.SetScrollOffset(surface.Offset{Y: 15}))
	sched.Tick()
	off, err := b.ScrollOffset()
	require.NoError(t, err)
	assert.Equal(t, 15.0, off.Y)
}
