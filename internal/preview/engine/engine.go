// Package engine is the top-level coordinator. It owns every piece of
// shared preview state (camera, device selection, surfaces, style layers,
// color mapping, comparison session) and exposes the public operations the
// UI chrome calls. All mutations are serialized through one mutex; writes
// are user-serialized, one interaction at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/logging"
	"github.com/previewlab/restyle/internal/preview/camera"
	"github.com/previewlab/restyle/internal/preview/device"
	"github.com/previewlab/restyle/internal/preview/extract"
	"github.com/previewlab/restyle/internal/preview/inject"
	"github.com/previewlab/restyle/internal/preview/remap"
	"github.com/previewlab/restyle/internal/preview/session"
	"github.com/previewlab/restyle/internal/preview/surface"
	"github.com/previewlab/restyle/internal/shared/frame"
	"github.com/previewlab/restyle/internal/storage"
)

var (
	// ErrNoContent means no URL is loaded yet.
	ErrNoContent = errors.New("engine: no content loaded")

	// ErrSurfaceNotFound marks an unknown surface ID.
	ErrSurfaceNotFound = errors.New("engine: surface not found")

	// ErrUnknownDevice marks a device ID missing from the catalog.
	ErrUnknownDevice = errors.New("engine: unknown device profile")
)

// Storage namespaces.
const (
	nsMappings = "mappings"
	nsDevices  = "devices"

	mappingKey = "current"
)

// Page is what the fetch collaborator returns: processed markup carrying
// the {{PROXY_BASE}} placeholder plus the final canonical URL.
type Page struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
}

// Fetcher loads and processes a page. Failures must carry human-readable
// messages; the engine propagates them to the UI untouched.
type Fetcher interface {
	Render(ctx context.Context, rawURL string) (Page, error)
}

// HandleFactory builds the surface handle for a new slot.
type HandleFactory func(role surface.Role, profile device.Profile) surface.Handle

// Observer receives domain events for metrics. Implementations must be
// cheap and non-blocking; calls happen on engine goroutines.
type Observer interface {
	SetSurfacesActive(count int)
	RecordSurfaceWrite(role string)
	IncStyleRepairs()
}

// Options wires the engine's collaborators.
type Options struct {
	Scheduler frame.Scheduler
	Fetcher   Fetcher
	Store     storage.Store
	Logger    *logging.Logger

	// HandleFactory defaults to in-process DocSurfaces.
	HandleFactory HandleFactory

	// SelfLoadingOriginals marks original-role surfaces as fetching
	// their own reference copy; the manager then skips content writes
	// for them. Browser-hosted deployments set this.
	SelfLoadingOriginals bool

	SurfaceConfig surface.Config

	// ExtractDelay defers the automatic style probe after a load so
	// referenced stylesheets can settle.
	ExtractDelay time.Duration

	// DefaultDevice is the profile selected before any SelectDevice.
	DefaultDevice string

	// Observer, when set, receives surface lifecycle events.
	Observer Observer
}

// Engine coordinates the preview core.
type Engine struct {
	log   *logging.Logger
	sched frame.Scheduler
	fetch Fetcher
	store storage.Store

	camera     *camera.Camera
	catalog    *device.Catalog
	manager    *surface.Manager
	pipeline   *inject.Pipeline
	prober     *extract.Prober
	applier    *remap.Applier
	mapping    *remap.Mapping
	comparison *session.Comparison

	handleFactory        HandleFactory
	selfLoadingOriginals bool
	extractDelay         time.Duration
	obs                  Observer

	mu            sync.Mutex
	url           string
	markup        string
	deviceID      string
	multiIDs      []string
	multi         map[string]string
	pairs         map[string]pairInfo
	primaryID     string
	extractCancel frame.Cancel
	lastReport    *extract.Report
	rng           *rand.Rand

	onState  func(State)
	onScroll func(surfaceID string, offset surface.Offset)
}

// New builds an engine. Scheduler is required; Fetcher may be nil when
// content arrives through LoadContent directly.
func New(opts Options) (*Engine, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("engine: scheduler required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = storage.NewMemory()
	}

	catalog, err := device.NewCatalog()
	if err != nil {
		return nil, err
	}
	registry, err := inject.NewRegistry()
	if err != nil {
		return nil, err
	}

	defaultDevice := opts.DefaultDevice
	if defaultDevice == "" {
		defaultDevice = "desktop-fhd"
	}
	if _, ok := catalog.Get(defaultDevice); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, defaultDevice)
	}

	factory := opts.HandleFactory
	if factory == nil {
		factory = func(surface.Role, device.Profile) surface.Handle {
			return surface.NewDocSurface()
		}
	}

	extractDelay := opts.ExtractDelay
	if extractDelay <= 0 {
		extractDelay = 1500 * time.Millisecond
	}

	e := &Engine{
		log:                  log.Component("engine"),
		sched:                opts.Scheduler,
		fetch:                opts.Fetcher,
		store:                store,
		catalog:              catalog,
		pipeline:             inject.NewPipeline(registry, log),
		prober:               extract.NewProber(log),
		applier:              remap.NewApplier(log),
		mapping:              remap.NewMapping(),
		comparison:           session.New(),
		handleFactory:        factory,
		selfLoadingOriginals: opts.SelfLoadingOriginals,
		extractDelay:         extractDelay,
		obs:                  opts.Observer,
		deviceID:             defaultDevice,
		multi:                make(map[string]string),
		pairs:                make(map[string]pairInfo),
		rng:                  rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	scfg := opts.SurfaceConfig
	if len(scfg.RepairDelays) == 0 && scfg.RepairDebounce == 0 {
		scfg = surface.DefaultConfig(scfg.ProxyBase)
	}

	e.camera = camera.New(opts.Scheduler, func(camera.State) { e.notifyAsync() })
	e.manager = surface.NewManager(opts.Scheduler, scfg, log)
	e.manager.OnInitialized(e.styleSurface)
	e.manager.OnReinject(e.reinjectSurface)

	e.restorePersisted()
	return e, nil
}

// OnState registers the listener notified after state-changing commits;
// the websocket relay broadcasts these snapshots.
func (e *Engine) OnState(fn func(State)) {
	e.mu.Lock()
	e.onState = fn
	e.mu.Unlock()
}

// OnSurfaceScroll registers the listener for surface scroll offsets,
// covering both viewer scrolls and mirrored comparison writes.
func (e *Engine) OnSurfaceScroll(fn func(surfaceID string, offset surface.Offset)) {
	e.mu.Lock()
	e.onScroll = fn
	e.mu.Unlock()
}

// relayScroll subscribes the engine's scroll listener to a new surface.
// The registration lives as long as the handle.
func (e *Engine) relayScroll(id string, h surface.Handle) {
	h.OnScroll(func(offset surface.Offset) {
		e.mu.Lock()
		fn := e.onScroll
		e.mu.Unlock()
		if fn != nil {
			fn(id, offset)
		}
	})
}

// Close tears down all surfaces, pairs, and pending work.
func (e *Engine) Close() {
	e.mu.Lock()
	pairs := e.pairs
	e.pairs = make(map[string]pairInfo)
	if e.extractCancel != nil {
		e.extractCancel()
		e.extractCancel = nil
	}
	e.mu.Unlock()

	for _, p := range pairs {
		p.sync.Detach()
	}
	e.manager.Close()
}

// styleSurface runs after a surface first receives content: style
// injection plus any persisted color mapping.
func (e *Engine) styleSurface(s *surface.Surface) {
	if s.Restricted() || s.Role == surface.RoleOriginal {
		return
	}
	if err := e.pipeline.Apply(s.Handle, s.Role); err != nil {
		e.log.Warn("style injection failed", zap.String("surface", s.ID), zap.Error(err))
	}
	if err := e.applier.Apply(s.Handle, s.Role, e.mapping); err != nil {
		e.log.Warn("remap application failed", zap.String("surface", s.ID), zap.Error(err))
	}
	if e.obs != nil {
		e.obs.RecordSurfaceWrite(string(s.Role))
	}
}

// reinjectSurface runs when a pass reaches an already-initialized
// surface: style re-injection only, never a content write.
func (e *Engine) reinjectSurface(s *surface.Surface) {
	if s.Restricted() || s.Role == surface.RoleOriginal {
		return
	}
	if err := e.pipeline.Apply(s.Handle, s.Role); err != nil {
		e.log.Warn("style re-injection failed", zap.String("surface", s.ID), zap.Error(err))
	}
	if e.obs != nil {
		e.obs.IncStyleRepairs()
	}
}

// restorePersisted loads the saved color mapping and custom device
// profiles. Failures log and continue; persistence is never blocking.
func (e *Engine) restorePersisted() {
	ctx := context.Background()

	if raw, err := e.store.Get(ctx, nsMappings, mappingKey); err == nil {
		var pairs map[string]string
		if err := sonic.Unmarshal(raw, &pairs); err != nil {
			e.log.Warn("persisted mapping unreadable", zap.Error(err))
		} else {
			e.mapping.Replace(pairs)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		e.log.Warn("mapping load failed", zap.Error(err))
	}

	customs, err := e.store.List(ctx, nsDevices)
	if err != nil {
		e.log.Warn("device profiles load failed", zap.Error(err))
		return
	}
	for key, raw := range customs {
		var p device.Profile
		if err := sonic.Unmarshal(raw, &p); err != nil {
			e.log.Warn("persisted profile unreadable", zap.String("id", key), zap.Error(err))
			continue
		}
		if err := e.catalog.Add(p); err != nil {
			e.log.Warn("persisted profile rejected", zap.String("id", key), zap.Error(err))
		}
	}
}

// persistMapping saves the current mapping; write failures log and
// continue.
func (e *Engine) persistMapping() {
	raw, err := sonic.Marshal(e.mapping.Snapshot())
	if err != nil {
		e.log.Warn("mapping encode failed", zap.Error(err))
		return
	}
	if err := e.store.Set(context.Background(), nsMappings, mappingKey, raw); err != nil {
		e.log.Warn("mapping persist failed", zap.Error(err))
	}
}

func (e *Engine) notifyAsync() {
	go e.notify()
}

func (e *Engine) notify() {
	e.mu.Lock()
	fn := e.onState
	e.mu.Unlock()
	if e.obs != nil {
		e.obs.SetSurfacesActive(len(e.manager.List()))
	}
	if fn == nil {
		return
	}
	fn(e.State())
}

func newPairID() string {
	return uuid.NewString()
}
