package frame

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualTickCoalesces(t *testing.T) {
	m := NewManual()
	var order []int

	m.Frame(func() { order = append(order, 1) })
	m.Frame(func() { order = append(order, 2) })
	assert.Equal(t, 2, m.PendingFrames())

	m.Tick()
	assert.Equal(t, []int{1, 2}, order)
	assert.Zero(t, m.PendingFrames())
}

func TestManualCancelPreventsFire(t *testing.T) {
	m := NewManual()
	fired := false

	cancel := m.Frame(func() { fired = true })
	cancel()
	m.Tick()
	assert.False(t, fired)

	cancel = m.After(10*time.Millisecond, func() { fired = true })
	cancel()
	cancel() // idempotent
	m.Advance(time.Second)
	assert.False(t, fired)
}

func TestManualTimerOrdering(t *testing.T) {
	m := NewManual()
	var order []string

	m.After(30*time.Millisecond, func() { order = append(order, "late") })
	m.After(10*time.Millisecond, func() { order = append(order, "early") })

	m.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	m := NewManual()
	count := 0
	d := NewDebouncer(m, 20*time.Millisecond, func() { count++ })

	d.Trigger()
	d.Trigger()
	d.Trigger()
	m.Advance(25 * time.Millisecond)
	assert.Equal(t, 1, count)

	d.Trigger()
	d.Stop()
	m.Advance(25 * time.Millisecond)
	assert.Equal(t, 1, count)
}

func TestLoopRunsFrameCallbacks(t *testing.T) {
	l := NewLoop(time.Millisecond)
	defer l.Close()

	var mu sync.Mutex
	fired := false
	done := make(chan struct{})

	l.Frame(func() {
		mu.Lock()
		fired = true
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("frame callback never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, fired)
}

func TestLoopAfterCancel(t *testing.T) {
	l := NewLoop(time.Millisecond)
	defer l.Close()

	var mu sync.Mutex
	fired := false

	cancel := l.After(5*time.Millisecond, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	cancel()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
}
