package surface

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/logging"
	"github.com/previewlab/restyle/internal/preview/device"
	"github.com/previewlab/restyle/internal/shared/frame"
	"github.com/previewlab/restyle/internal/shared/id"
)

// ProxyBasePlaceholder is the token the fetch collaborator leaves in
// processed markup wherever the proxy origin must be substituted at
// content-injection time.
const ProxyBasePlaceholder = "{{PROXY_BASE}}"

// Surface is one live rendering surface tracked by the manager.
type Surface struct {
	ID      string
	Role    Role
	Profile device.Profile
	Handle  Handle

	// selfLoading originals fetch their own reference copy from the
	// source URL; the manager never writes content into them.
	selfLoading bool

	initialized bool
	restricted  bool

	watchOff func()
	debounce *frame.Debouncer
	cancels  []frame.Cancel
}

// Initialized reports whether this surface already received its content
// for the current load.
func (s *Surface) Initialized() bool { return s.initialized }

// Restricted reports whether introspection is disabled for this surface.
func (s *Surface) Restricted() bool { return s.restricted }

// Config tunes the surface manager.
type Config struct {
	// ProxyBase replaces the {{PROXY_BASE}} placeholder.
	ProxyBase string

	// RepairDelays is the staggered schedule of repair passes after a
	// content write: immediate, post-DOM-ready, post-load.
	RepairDelays []time.Duration

	// RepairDebounce batches structural-change notifications into one
	// repair pass.
	RepairDebounce time.Duration
}

// DefaultConfig returns the stock repair schedule.
func DefaultConfig(proxyBase string) Config {
	return Config{
		ProxyBase:      proxyBase,
		RepairDelays:   []time.Duration{0, 500 * time.Millisecond, 2 * time.Second},
		RepairDebounce: 250 * time.Millisecond,
	}
}

// Manager owns the set of live rendering surfaces and guarantees each
// receives its content exactly once per load. Subsequent passes over an
// initialized surface only re-run style injection, never content writes;
// that is the invariant preventing reload flicker on device switches and
// comparison toggles.
type Manager struct {
	mu  sync.Mutex
	log *logging.Logger

	sched    frame.Scheduler
	cfg      Config
	repairer *Repairer

	surfaces map[string]*Surface
	order    []string

	content   string
	sourceURL string

	onInitialized func(*Surface)
	onReinject    func(*Surface)
}

// NewManager creates an empty manager.
func NewManager(sched frame.Scheduler, cfg Config, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNop()
	}
	if len(cfg.RepairDelays) == 0 {
		cfg.RepairDelays = DefaultConfig(cfg.ProxyBase).RepairDelays
	}
	if cfg.RepairDebounce <= 0 {
		cfg.RepairDebounce = 250 * time.Millisecond
	}
	return &Manager{
		log:      log.Component("surface"),
		sched:    sched,
		cfg:      cfg,
		surfaces: make(map[string]*Surface),
	}
}

// OnInitialized registers the hook run after a surface first receives
// content (the injection pipeline and deferred extraction hang off this).
func (m *Manager) OnInitialized(fn func(*Surface)) { m.onInitialized = fn }

// OnReinject registers the hook run when a pass reaches an
// already-initialized surface.
func (m *Manager) OnReinject(fn func(*Surface)) { m.onReinject = fn }

// Create registers a surface for a device profile. If content is already
// loaded the surface is initialized immediately.
func (m *Manager) Create(role Role, profile device.Profile, h Handle, selfLoading bool) *Surface {
	s := &Surface{
		ID:          id.NewSurfaceID().String(),
		Role:        role,
		Profile:     profile,
		Handle:      h,
		selfLoading: selfLoading,
	}

	m.mu.Lock()
	m.surfaces[s.ID] = s
	m.order = append(m.order, s.ID)
	hasContent := m.content != ""
	m.mu.Unlock()

	m.log.Debug("surface created",
		zap.String("id", s.ID),
		zap.String("role", string(s.Role)),
		zap.String("device", s.Profile.ID))

	if hasContent {
		m.applyTo(s)
	}
	return s
}

// Get returns a surface by ID.
func (m *Manager) Get(id string) (*Surface, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surfaces[id]
	return s, ok
}

// List returns all surfaces in creation order.
func (m *Manager) List() []*Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Surface, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.surfaces[id])
	}
	return out
}

// Remove tears down one surface.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.surfaces[id]
	if ok {
		delete(m.surfaces, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()
	if ok {
		m.teardown(s)
	}
}

// SetContent stores processed markup plus its canonical source URL and
// runs a pass over every surface. A change of source URL clears the
// initialization ledger first: every surface reloads.
func (m *Manager) SetContent(markup, sourceURL string) error {
	repairer, err := NewRepairer(sourceURL, m.cfg.ProxyBase)
	if err != nil {
		return fmt.Errorf("content rejected: %w", err)
	}

	m.mu.Lock()
	urlChanged := m.sourceURL != "" && m.sourceURL != sourceURL
	m.content = markup
	m.sourceURL = sourceURL
	m.repairer = repairer
	var all []*Surface
	for _, id := range m.order {
		all = append(all, m.surfaces[id])
	}
	m.mu.Unlock()

	if urlChanged {
		for _, s := range all {
			m.resetSurface(s)
		}
	}

	m.Sync()
	return nil
}

// SourceURL returns the canonical URL of the current content.
func (m *Manager) SourceURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceURL
}

// Sync runs one pass: uninitialized surfaces get their one content write,
// initialized ones only get style re-injection. Redundant passes are safe
// by design.
func (m *Manager) Sync() {
	for _, s := range m.List() {
		m.applyTo(s)
	}
}

// Reset clears content and the ledger, tearing down every surface's
// scheduled work. Called when the loaded URL is abandoned.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.content = ""
	m.sourceURL = ""
	m.repairer = nil
	var all []*Surface
	for _, id := range m.order {
		all = append(all, m.surfaces[id])
	}
	m.mu.Unlock()

	for _, s := range all {
		m.resetSurface(s)
	}
}

// Close tears down all surfaces.
func (m *Manager) Close() {
	for _, s := range m.List() {
		m.Remove(s.ID)
	}
}

func (m *Manager) applyTo(s *Surface) {
	m.mu.Lock()
	content := m.content
	initialized := s.initialized
	m.mu.Unlock()

	if content == "" {
		return
	}

	if initialized {
		if m.onReinject != nil {
			m.onReinject(s)
		}
		return
	}

	if s.Role == RoleOriginal && s.selfLoading {
		// The counterpart loads its own reference copy straight from
		// the source URL; only mark it so it is not revisited.
		m.mu.Lock()
		s.initialized = true
		m.mu.Unlock()
		return
	}

	markup := strings.ReplaceAll(content, ProxyBasePlaceholder, m.cfg.ProxyBase)
	if err := s.Handle.Write(markup); err != nil {
		m.log.Warn("content write failed",
			zap.String("id", s.ID), zap.Error(err))
		return
	}

	m.mu.Lock()
	s.initialized = true
	m.mu.Unlock()

	m.scheduleRepairs(s)

	if m.onInitialized != nil {
		m.onInitialized(s)
	}
}

// scheduleRepairs arms the staggered repair passes and the
// structural-change watch for one freshly written surface.
func (m *Manager) scheduleRepairs(s *Surface) {
	m.mu.Lock()
	delays := m.cfg.RepairDelays
	debounce := m.cfg.RepairDebounce
	m.mu.Unlock()

	for _, d := range delays {
		var cancel frame.Cancel
		if d <= 0 {
			cancel = m.sched.Frame(func() { m.runRepair(s) })
		} else {
			cancel = m.sched.After(d, func() { m.runRepair(s) })
		}
		m.mu.Lock()
		s.cancels = append(s.cancels, cancel)
		m.mu.Unlock()
	}

	deb := frame.NewDebouncer(m.sched, debounce, func() { m.runRepair(s) })
	off := s.Handle.Watch(func() { deb.Trigger() })

	m.mu.Lock()
	s.debounce = deb
	s.watchOff = off
	m.mu.Unlock()
}

func (m *Manager) runRepair(s *Surface) {
	m.mu.Lock()
	repairer := m.repairer
	restricted := s.restricted
	m.mu.Unlock()

	if repairer == nil || restricted {
		return
	}

	fixed, err := repairer.Repair(s.Handle)
	if err != nil {
		m.markRestricted(s, err)
		return
	}
	if fixed > 0 {
		m.log.Debug("asset repair pass",
			zap.String("id", s.ID), zap.Int("fixed", fixed))
	}
}

// markRestricted flags a surface as non-introspectable. The failure is
// degradable: the surface stays live, styling features narrow.
func (m *Manager) markRestricted(s *Surface, err error) {
	m.mu.Lock()
	already := s.restricted
	s.restricted = true
	m.mu.Unlock()
	if !already {
		m.log.Warn("surface restricted",
			zap.String("id", s.ID), zap.Error(err))
	}
}

func (m *Manager) resetSurface(s *Surface) {
	m.teardown(s)
	m.mu.Lock()
	s.initialized = false
	s.restricted = false
	m.mu.Unlock()
}

func (m *Manager) teardown(s *Surface) {
	m.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	deb := s.debounce
	s.debounce = nil
	off := s.watchOff
	s.watchOff = nil
	m.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	if deb != nil {
		deb.Stop()
	}
	if off != nil {
		off()
	}
}
