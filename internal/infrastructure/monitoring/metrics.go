package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Upstream fetch metrics
	PagesRendered    prometheus.Counter
	ResourcesProxied prometheus.Counter
	FetchDuration    *prometheus.HistogramVec
	FetchErrors      *prometheus.CounterVec

	// Preview metrics
	SurfacesActive prometheus.Gauge
	SurfaceWrites  *prometheus.CounterVec
	StyleRepairs   prometheus.Counter
	Extractions    prometheus.Counter
	RemapsApplied  prometheus.Counter
	SyncEvents     *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON stats endpoint.
type Snapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	PagesRendered  int64   `json:"pages_rendered"`
	SurfacesActive int64   `json:"surfaces_active"`
	WSConnections  int64   `json:"ws_connections"`
	TotalDuration  float64 `json:"-"`
	RequestCount   int64   `json:"-"`
	AvgDurationMS  float64 `json:"avg_duration_ms"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restyle_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "restyle_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "restyle_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "restyle_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Upstream fetch metrics
		PagesRendered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "restyle_pages_rendered_total",
				Help: "Total number of pages fetched and processed for embedding",
			},
		),
		ResourcesProxied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "restyle_resources_proxied_total",
				Help: "Total number of subresources proxied",
			},
		),
		FetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "restyle_fetch_duration_seconds",
				Help:    "Upstream fetch duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		FetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restyle_fetch_errors_total",
				Help: "Total number of upstream fetch failures",
			},
			[]string{"kind"},
		),

		// Preview metrics
		SurfacesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "restyle_surfaces_active",
				Help: "Number of live rendering surfaces",
			},
		),
		SurfaceWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restyle_surface_writes_total",
				Help: "Total number of surface content writes",
			},
			[]string{"role"},
		),
		StyleRepairs: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "restyle_style_repairs_total",
				Help: "Total number of injected style repairs",
			},
		),
		Extractions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "restyle_extractions_total",
				Help: "Total number of style probe runs",
			},
		),
		RemapsApplied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "restyle_remaps_applied_total",
				Help: "Total number of color remap applications",
			},
		),
		SyncEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restyle_sync_events_total",
				Help: "Total number of comparison scroll sync events",
			},
			[]string{"result"},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "restyle_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restyle_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "restyle_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordPageRendered records a successful page render
func (m *Metrics) RecordPageRendered(duration time.Duration) {
	m.PagesRendered.Inc()
	m.FetchDuration.WithLabelValues("page").Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.PagesRendered++
	m.mu.Unlock()
}

// RecordResourceProxied records a successful subresource fetch
func (m *Metrics) RecordResourceProxied(duration time.Duration) {
	m.ResourcesProxied.Inc()
	m.FetchDuration.WithLabelValues("resource").Observe(duration.Seconds())
}

// RecordFetchError records an upstream fetch failure
func (m *Metrics) RecordFetchError(kind string) {
	m.FetchErrors.WithLabelValues(kind).Inc()
}

// SetSurfacesActive sets the number of live surfaces
func (m *Metrics) SetSurfacesActive(count int) {
	m.SurfacesActive.Set(float64(count))

	m.mu.Lock()
	m.snapshot.SurfacesActive = int64(count)
	m.mu.Unlock()
}

// RecordSurfaceWrite records a surface content write
func (m *Metrics) RecordSurfaceWrite(role string) {
	m.SurfaceWrites.WithLabelValues(role).Inc()
}

// IncStyleRepairs increments the style repair counter
func (m *Metrics) IncStyleRepairs() {
	m.StyleRepairs.Inc()
}

// IncExtractions increments the probe run counter
func (m *Metrics) IncExtractions() {
	m.Extractions.Inc()
}

// IncRemapsApplied increments the remap application counter
func (m *Metrics) IncRemapsApplied() {
	m.RemapsApplied.Inc()
}

// RecordSyncEvent records a scroll sync outcome
func (m *Metrics) RecordSyncEvent(result string) {
	m.SyncEvents.WithLabelValues(result).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()

	m.mu.Lock()
	m.snapshot.WSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()

	m.mu.Lock()
	m.snapshot.WSConnections--
	m.mu.Unlock()
}

// GetSnapshot returns current values for the JSON stats endpoint.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()

	if snap.RequestCount > 0 {
		snap.AvgDurationMS = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
