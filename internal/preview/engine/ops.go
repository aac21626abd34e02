package engine

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/preview/camera"
	"github.com/previewlab/restyle/internal/preview/device"
	"github.com/previewlab/restyle/internal/preview/extract"
	"github.com/previewlab/restyle/internal/preview/inject"
	"github.com/previewlab/restyle/internal/preview/remap"
	"github.com/previewlab/restyle/internal/preview/scrollsync"
	"github.com/previewlab/restyle/internal/preview/session"
	"github.com/previewlab/restyle/internal/preview/surface"
)

// LoadURL fetches a page through the proxy collaborator and loads it.
// Fetch errors carry human-readable messages and propagate untouched.
func (e *Engine) LoadURL(ctx context.Context, rawURL string) (State, error) {
	if e.fetch == nil {
		return State{}, fmt.Errorf("engine: no fetcher configured")
	}
	page, err := e.fetch.Render(ctx, rawURL)
	if err != nil {
		return State{}, err
	}
	if err := e.LoadContent(page); err != nil {
		return State{}, err
	}
	return e.State(), nil
}

// LoadContent loads already-processed markup. A change of canonical URL
// tears down the initialization ledger, the pairs, and any pending
// extraction before the new content is written.
func (e *Engine) LoadContent(page Page) error {
	e.mu.Lock()
	urlChanged := e.url != page.URL
	if urlChanged {
		e.teardownComparisonLocked()
		e.cancelExtractLocked()
	}
	e.mu.Unlock()

	// Commit url/markup only once the manager accepts the content, so a
	// rejected source never leaves the engine claiming it is loaded.
	if err := e.manager.SetContent(page.HTML, page.URL); err != nil {
		return err
	}

	e.mu.Lock()
	e.url = page.URL
	e.markup = page.HTML
	e.ensurePrimaryLocked()
	if e.comparison.Enabled() {
		e.rebuildComparisonLocked()
	}
	e.scheduleExtractLocked()
	e.mu.Unlock()

	e.log.Info("content loaded", zap.String("url", page.URL), zap.Bool("urlChanged", urlChanged))
	e.notify()
	return nil
}

// ZoomAt applies a cursor-anchored zoom step.
func (e *Engine) ZoomAt(cursor camera.Point, factor float64) camera.State {
	return e.camera.ZoomAt(cursor, factor)
}

// SetZoom zooms around the viewport center.
func (e *Engine) SetZoom(zoom float64) camera.State {
	return e.camera.SetZoom(zoom)
}

// Pan translates the viewport while dragging.
func (e *Engine) Pan(delta camera.Point) camera.State {
	return e.camera.PanBy(delta)
}

// BeginInteraction marks the start of a drag or pinch gesture.
func (e *Engine) BeginInteraction() { e.camera.BeginInteraction() }

// EndInteraction ends the gesture and flushes the camera buffer.
func (e *Engine) EndInteraction() { e.camera.EndInteraction() }

// ResetView restores the default camera.
func (e *Engine) ResetView() {
	e.camera.Reset()
	e.notify()
}

// Camera returns the committed camera state.
func (e *Engine) Camera() camera.State { return e.camera.State() }

// ScrollSurface records a viewer-driven scroll on one surface. The write
// goes through the surface handle, so comparison mirroring follows.
func (e *Engine) ScrollSurface(id string, offset surface.Offset) error {
	e.mu.Lock()
	s, ok := e.manager.Get(id)
	e.mu.Unlock()
	if !ok {
		return ErrSurfaceNotFound
	}
	// SetScrollOffset notifies listeners outside the surface lock.
	return s.Handle.SetScrollOffset(offset)
}

// SelectDevice switches the primary surface's simulated viewport. The
// surface keeps its content; only its profile changes and styles are
// re-injected.
func (e *Engine) SelectDevice(id string) error {
	profile, ok := e.catalog.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	e.mu.Lock()
	e.deviceID = id
	if s, ok := e.manager.Get(e.primaryID); ok {
		s.Profile = profile
	}
	e.mu.Unlock()

	e.manager.Sync()
	e.notify()
	return nil
}

// SetMultiDevice switches the extra device grid. Each listed profile gets
// its own surface; passing no IDs leaves only the primary surface.
func (e *Engine) SetMultiDevice(ids []string) error {
	profiles := make([]device.Profile, 0, len(ids))
	for _, id := range ids {
		p, ok := e.catalog.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
		}
		profiles = append(profiles, p)
	}

	e.mu.Lock()
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	for id, sid := range e.multi {
		if !keep[id] {
			e.manager.Remove(sid)
			delete(e.multi, id)
		}
	}
	for i, id := range ids {
		if _, exists := e.multi[id]; exists {
			continue
		}
		h := e.handleFactory(surface.RoleModified, profiles[i])
		s := e.manager.Create(surface.RoleModified, profiles[i], h, false)
		e.multi[id] = s.ID
		e.relayScroll(s.ID, h)
	}
	e.multiIDs = append([]string(nil), ids...)
	if e.comparison.Enabled() {
		e.rebuildComparisonLocked()
	}
	e.mu.Unlock()

	e.notify()
	return nil
}

// ToggleComparison turns the before/after mode on or off. Turning it on
// creates an original-role counterpart per modified surface and starts
// the scroll synchronizer.
func (e *Engine) ToggleComparison(on bool) {
	e.mu.Lock()
	if on {
		e.comparison.SetEnabled(true)
		e.rebuildComparisonLocked()
	} else {
		e.teardownComparisonLocked()
		e.comparison.SetEnabled(false)
	}
	e.mu.Unlock()
	e.notify()
}

// SetSplit moves the comparison slider, saturating at [0,100].
func (e *Engine) SetSplit(ratio float64) float64 {
	clamped := e.comparison.SetSplit(ratio)
	e.notify()
	return clamped
}

// SetScrollSync toggles synchronized scrolling for the live pairs.
func (e *Engine) SetScrollSync(on bool) {
	e.comparison.SetSyncEnabled(on)
	e.mu.Lock()
	for _, info := range e.pairs {
		if on {
			info.sync.Attach()
		} else {
			info.sync.Detach()
		}
	}
	e.mu.Unlock()
	e.notify()
}

// SetCustomCSS replaces the user's custom style layer and re-injects.
func (e *Engine) SetCustomCSS(css string) {
	e.pipeline.SetCustomCSS(css)
	e.manager.Sync()
	e.notify()
}

// SetTypography replaces the typography layer and re-injects.
func (e *Engine) SetTypography(t inject.Typography) {
	e.pipeline.SetTypography(t)
	e.manager.Sync()
	e.notify()
}

// SetEffects replaces the active effect presets and re-injects.
func (e *Engine) SetEffects(ids []string) {
	e.pipeline.SetEffects(ids)
	e.manager.Sync()
	e.notify()
}

// Extract runs the style probe against the primary surface and caches
// the report.
func (e *Engine) Extract() (*extract.Report, error) {
	e.mu.Lock()
	s := e.probeSurfaceLocked()
	e.mu.Unlock()
	if s == nil {
		return nil, ErrNoContent
	}

	report, err := e.prober.Probe(s.Handle)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.lastReport = report
	e.mu.Unlock()
	e.notify()
	return report, nil
}

// LastReport returns the cached probe result, nil before any extraction.
func (e *Engine) LastReport() *extract.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastReport
}

// ApplyMapping plans source-to-target assignments, merges them into the
// persistent mapping, and applies the result to every live modified
// surface. Sources default to the last extracted palette; an empty target
// palette falls back to the built-in one.
func (e *Engine) ApplyMapping(sources, targets []string) (map[string]string, error) {
	e.mu.Lock()
	if len(sources) == 0 && e.lastReport != nil {
		sources = e.lastReport.Palette()
	}
	rng := e.rng
	e.mu.Unlock()
	if len(sources) == 0 {
		return nil, ErrNoContent
	}

	plan := remap.Plan(sources, targets, rng)
	e.mapping.Merge(plan)

	// The layer text is generated before the in-place pass so it still
	// matches the pre-remap rule values.
	var layerCSS string
	for _, s := range e.manager.List() {
		if s.Role != surface.RoleModified || s.Restricted() || !s.Initialized() {
			continue
		}
		if layerCSS == "" {
			css, err := e.applier.RuleOverrides(s.Handle, e.mapping)
			if err == nil {
				layerCSS = css
			}
		}
		if err := e.applier.Apply(s.Handle, s.Role, e.mapping); err != nil {
			e.log.Warn("remap application failed", zap.String("surface", s.ID), zap.Error(err))
		}
	}
	// A re-application against already-remapped values produces no new
	// overrides; keep the existing layer in that case.
	if layerCSS != "" {
		e.pipeline.SetRemapCSS(layerCSS)
	}
	e.manager.Sync()

	e.persistMapping()
	e.notify()
	return plan, nil
}

// Mapping returns the current assignments.
func (e *Engine) Mapping() map[string]string {
	return e.mapping.Snapshot()
}

// ResetMapping clears every assignment and reloads the current content so
// the surfaces return to their original colors with no accumulated drift.
func (e *Engine) ResetMapping() error {
	e.mapping.Reset()
	e.pipeline.SetRemapCSS("")

	e.mu.Lock()
	markup, url := e.markup, e.url
	e.mu.Unlock()

	if markup != "" {
		e.manager.Reset()
		if err := e.manager.SetContent(markup, url); err != nil {
			return err
		}
	}

	e.persistMapping()
	e.notify()
	return nil
}

// AddDevice registers and persists a custom device profile.
func (e *Engine) AddDevice(p device.Profile) error {
	if err := e.catalog.Add(p); err != nil {
		return err
	}
	raw, err := sonic.Marshal(p)
	if err == nil {
		err = e.store.Set(context.Background(), nsDevices, p.ID, raw)
	}
	if err != nil {
		e.log.Warn("device persist failed", zap.String("id", p.ID), zap.Error(err))
	}
	e.notify()
	return nil
}

// RemoveDevice deletes a custom profile; built-ins are protected.
func (e *Engine) RemoveDevice(id string) error {
	if err := e.catalog.Remove(id); err != nil {
		return err
	}
	if err := e.store.Delete(context.Background(), nsDevices, id); err != nil {
		e.log.Warn("device delete failed", zap.String("id", id), zap.Error(err))
	}
	e.notify()
	return nil
}

// Devices lists the catalog.
func (e *Engine) Devices() []device.Profile { return e.catalog.List() }

// Effects lists the effect presets.
func (e *Engine) Effects() []inject.Effect { return e.pipeline.Presets() }

// ensurePrimaryLocked creates the primary surface for the selected device
// if it does not exist yet.
func (e *Engine) ensurePrimaryLocked() {
	if e.primaryID != "" {
		if _, ok := e.manager.Get(e.primaryID); ok {
			return
		}
	}
	profile, _ := e.catalog.Get(e.deviceID)
	h := e.handleFactory(surface.RoleModified, profile)
	s := e.manager.Create(surface.RoleModified, profile, h, false)
	e.primaryID = s.ID
	e.relayScroll(s.ID, h)
}

// probeSurfaceLocked picks the surface the extractor reads: the primary
// when usable, else the first initialized unrestricted modified surface.
func (e *Engine) probeSurfaceLocked() *surface.Surface {
	if s, ok := e.manager.Get(e.primaryID); ok && s.Initialized() && !s.Restricted() {
		return s
	}
	for _, s := range e.manager.List() {
		if s.Role == surface.RoleModified && s.Initialized() && !s.Restricted() {
			return s
		}
	}
	return nil
}

type pairInfo struct {
	sync       *scrollsync.Pair
	modifiedID string
	originalID string
}

// rebuildComparisonLocked tears down any existing pairs and creates an
// original counterpart plus a synchronizer per modified surface.
func (e *Engine) rebuildComparisonLocked() {
	e.teardownComparisonLocked()
	e.comparison.SetEnabled(true)

	var modified []*surface.Surface
	for _, s := range e.manager.List() {
		if s.Role == surface.RoleModified {
			modified = append(modified, s)
		}
	}

	schedule := scrollsync.TwoSurfaceSchedule
	if len(modified) > 1 {
		schedule = scrollsync.MultiSurfaceSchedule
	}

	refs := make([]session.PairRef, 0, len(modified))
	for _, mod := range modified {
		h := e.handleFactory(surface.RoleOriginal, mod.Profile)
		orig := e.manager.Create(surface.RoleOriginal, mod.Profile, h, e.selfLoadingOriginals)
		e.relayScroll(orig.ID, h)

		pair := scrollsync.NewPair(mod.Handle, orig.Handle, e.sched, schedule, e.log)
		id := newPairID()
		e.pairs[id] = pairInfo{sync: pair, modifiedID: mod.ID, originalID: orig.ID}
		if e.comparison.SyncEnabled() {
			pair.Attach()
		}
		refs = append(refs, session.PairRef{
			ID:         id,
			ModifiedID: mod.ID,
			OriginalID: orig.ID,
			Status:     pair.Status(),
		})
	}
	e.comparison.SetPairs(refs)
}

// teardownComparisonLocked detaches every pair and removes the original
// surfaces.
func (e *Engine) teardownComparisonLocked() {
	for id, info := range e.pairs {
		info.sync.Detach()
		e.manager.Remove(info.originalID)
		delete(e.pairs, id)
	}
	e.comparison.SetPairs(nil)
}

func (e *Engine) cancelExtractLocked() {
	if e.extractCancel != nil {
		e.extractCancel()
		e.extractCancel = nil
	}
}

// scheduleExtractLocked arms the deferred automatic probe that runs once
// referenced stylesheets have had time to settle.
func (e *Engine) scheduleExtractLocked() {
	e.cancelExtractLocked()
	e.extractCancel = e.sched.After(e.extractDelay, func() {
		if _, err := e.Extract(); err != nil {
			e.log.Warn("deferred extraction failed", zap.Error(err))
		}
	})
}
