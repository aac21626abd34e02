package surface

import (
	"strings"
	"testing"
	"time"

	"github.com/previewlab/restyle/internal/preview/device"
	"github.com/previewlab/restyle/internal/shared/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingHandle wraps a DocSurface to observe content writes.
type countingHandle struct {
	*DocSurface
	writes int
}

func (c *countingHandle) Write(html string) error {
	c.writes++
	return c.DocSurface.Write(html)
}

const managerHTML = `<html><head>
<link rel="stylesheet" href="{{PROXY_BASE}}/api/proxy-path/https://example.com/site.css">
</head><body><img src="/logo.png"></body></html>`

func testProfile() device.Profile {
	return device.Profile{ID: "test", Name: "Test", Kind: device.KindDesktop, Width: 1280, Height: 800}
}

func TestManagerWritesContentExactlyOnce(t *testing.T) {
	sched := frame.NewManual()
	m := NewManager(sched, DefaultConfig("http://localhost:8000"), nil)

	h := &countingHandle{DocSurface: NewDocSurface()}
	s := m.Create(RoleModified, testProfile(), h, false)

	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))
	assert.Equal(t, 1, h.writes)
	assert.True(t, s.Initialized())

	// Device switches and comparison toggles re-run passes; the ledger
	// blocks any second content write.
	m.Sync()
	m.Sync()
	assert.Equal(t, 1, h.writes)
}

func TestManagerSubstitutesProxyBase(t *testing.T) {
	sched := frame.NewManual()
	m := NewManager(sched, DefaultConfig("http://localhost:8000"), nil)

	h := NewDocSurface()
	m.Create(RoleModified, testProfile(), h, false)
	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))

	html, err := h.HTML()
	require.NoError(t, err)
	assert.NotContains(t, html, ProxyBasePlaceholder)
	assert.Contains(t, html, "http://localhost:8000/api/proxy-path/https://example.com/site.css")
}

func TestManagerReinjectHookOnInitializedSurfaces(t *testing.T) {
	sched := frame.NewManual()
	m := NewManager(sched, DefaultConfig("http://localhost:8000"), nil)

	var initialized, reinjected []string
	m.OnInitialized(func(s *Surface) { initialized = append(initialized, s.ID) })
	m.OnReinject(func(s *Surface) { reinjected = append(reinjected, s.ID) })

	h := NewDocSurface()
	s := m.Create(RoleModified, testProfile(), h, false)
	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))

	assert.Equal(t, []string{s.ID}, initialized)
	assert.Empty(t, reinjected)

	m.Sync()
	assert.Equal(t, []string{s.ID}, initialized)
	assert.Equal(t, []string{s.ID}, reinjected)
}

func TestManagerSkipsSelfLoadingOriginal(t *testing.T) {
	sched := frame.NewManual()
	m := NewManager(sched, DefaultConfig("http://localhost:8000"), nil)

	h := &countingHandle{DocSurface: NewDocSurface()}
	s := m.Create(RoleOriginal, testProfile(), h, true)
	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))

	assert.Zero(t, h.writes)
	assert.True(t, s.Initialized())
}

func TestManagerStaggeredRepairPasses(t *testing.T) {
	sched := frame.NewManual()
	cfg := DefaultConfig("http://localhost:8000")
	m := NewManager(sched, cfg, nil)

	h := NewDocSurface()
	m.Create(RoleModified, testProfile(), h, false)
	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))

	// Immediate pass runs on the next frame tick.
	sched.Tick()
	html, err := h.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "/api/proxy-path/https://example.com/logo.png")

	// The two delayed passes stay armed for late-arriving content, and
	// the repair's own attribute writes armed the mutation debounce.
	assert.Equal(t, 3, sched.PendingTimers())
	sched.Advance(3 * time.Second)
	assert.Zero(t, sched.PendingTimers())
}

func TestManagerWatchTriggersDebouncedRepair(t *testing.T) {
	sched := frame.NewManual()
	m := NewManager(sched, DefaultConfig("http://localhost:8000"), nil)

	h := NewDocSurface()
	m.Create(RoleModified, testProfile(), h, false)
	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))
	sched.Advance(3 * time.Second) // drain the staggered schedule

	// Simulate late-added content with an unrepaired reference.
	nodes, err := h.QueryAll("img")
	require.NoError(t, err)
	require.NoError(t, nodes[0].SetAttr("src", "/late.png"))

	sched.Advance(300 * time.Millisecond)
	html, err := h.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "/api/proxy-path/https://example.com/late.png")
}

func TestManagerURLChangeClearsLedger(t *testing.T) {
	sched := frame.NewManual()
	m := NewManager(sched, DefaultConfig("http://localhost:8000"), nil)

	h := &countingHandle{DocSurface: NewDocSurface()}
	s := m.Create(RoleModified, testProfile(), h, false)

	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))
	assert.Equal(t, 1, h.writes)

	// Same URL: no reload.
	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))
	assert.Equal(t, 1, h.writes)

	// New URL: ledger cleared, content rewritten.
	require.NoError(t, m.SetContent(managerHTML, "https://other.example.com/"))
	assert.Equal(t, 2, h.writes)
	assert.True(t, s.Initialized())
}

func TestManagerRestrictedSurfaceDegrades(t *testing.T) {
	sched := frame.NewManual()
	m := NewManager(sched, DefaultConfig("http://localhost:8000"), nil)

	h := NewRestrictedSurface()
	s := m.Create(RoleModified, testProfile(), h, false)
	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))

	sched.Tick() // immediate repair pass hits the restriction
	assert.True(t, s.Restricted())

	// A restricted surface is non-fatal; later passes skip it.
	sched.Advance(3 * time.Second)
	m.Sync()
}

func TestManagerRemoveCancelsScheduledWork(t *testing.T) {
	sched := frame.NewManual()
	m := NewManager(sched, DefaultConfig("http://localhost:8000"), nil)

	h := NewDocSurface()
	s := m.Create(RoleModified, testProfile(), h, false)
	require.NoError(t, m.SetContent(managerHTML, "https://example.com/"))
	require.Positive(t, sched.PendingTimers())

	m.Remove(s.ID)
	assert.Zero(t, sched.PendingTimers())
	assert.Empty(t, m.List())
}

func TestManagerRejectsOriginlessSource(t *testing.T) {
	sched := frame.NewManual()
	m := NewManager(sched, DefaultConfig("http://localhost:8000"), nil)
	err := m.SetContent("<html></html>", "not a url")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "content rejected"))
}
