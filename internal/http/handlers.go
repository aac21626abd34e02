package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/previewlab/restyle/internal/infrastructure/monitoring"
	"github.com/previewlab/restyle/internal/logging"
	"github.com/previewlab/restyle/internal/preview/camera"
	"github.com/previewlab/restyle/internal/preview/device"
	"github.com/previewlab/restyle/internal/preview/engine"
	"github.com/previewlab/restyle/internal/preview/inject"
	"github.com/previewlab/restyle/internal/proxy"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	engine    *engine.Engine
	client    *proxy.Client
	metrics   *monitoring.Metrics
	proxyBase string
	log       *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(eng *engine.Engine, client *proxy.Client, metrics *monitoring.Metrics, proxyBase string, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{
		engine:    eng,
		client:    client,
		metrics:   metrics,
		proxyBase: proxyBase,
		log:       log.Component("http"),
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Restyle Preview Service",
		"version": "0.2.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	st := h.engine.State()
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"surfaces":   len(st.Surfaces),
		"comparison": st.Comparison.Enabled,
		"url":        st.URL,
	})
}

// Render fetches a page, loads it into the preview engine, and returns
// the embeddable markup plus the resulting state.
func (h *Handlers) Render(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timer := monitoring.NewFetchTimer(h.metrics, "page")
	res, err := h.client.Render(c.Request.Context(), req.URL)
	timer.Done(err)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.LoadContent(engine.Page{HTML: res.HTML, URL: res.URL}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":   res.URL,
		"html":  h.substituteBase(res.HTML),
		"meta":  res.Meta,
		"state": h.engine.State(),
	})
}

// ProxyResource serves one subresource with CORS-open headers. The URL
// arrives as a query parameter.
func (h *Handlers) ProxyResource(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter required"})
		return
	}
	h.serveResource(c, target)
}

// ProxyPath serves one subresource addressed by path, which lets the
// browser resolve a page's relative references through the proxy.
func (h *Handlers) ProxyPath(c *gin.Context) {
	target := strings.TrimPrefix(c.Param("target"), "/")
	if raw := c.Request.URL.RawQuery; raw != "" {
		target += "?" + raw
	}
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target url required"})
		return
	}
	h.serveResource(c, target)
}

func (h *Handlers) serveResource(c *gin.Context, target string) {
	timer := monitoring.NewFetchTimer(h.metrics, "resource")
	res, err := h.client.FetchResource(c.Request.Context(), target)
	timer.Done(err)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	for k, v := range proxy.OpenHeaders() {
		c.Header(k, v)
	}
	if res.CacheControl != "" {
		c.Header("Cache-Control", res.CacheControl)
	}
	if res.Expires != "" {
		c.Header("Expires", res.Expires)
	}

	body := res.Body
	if strings.Contains(res.ContentType, "text/css") {
		// Rewritten stylesheets carry the placeholder; resolve it against
		// this deployment before the browser sees it.
		body = []byte(h.substituteBase(string(body)))
	}
	c.Data(http.StatusOK, res.ContentType, body)
}

// State returns the current engine snapshot.
func (h *Handlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.State())
}

// Zoom applies cursor-anchored zoom.
func (h *Handlers) Zoom(c *gin.Context) {
	var req struct {
		Cursor camera.Point `json:"cursor"`
		Factor float64      `json:"factor" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera": h.engine.ZoomAt(req.Cursor, req.Factor)})
}

// SetZoom sets an absolute zoom level, anchored at the viewport center.
func (h *Handlers) SetZoom(c *gin.Context) {
	var req struct {
		Zoom float64 `json:"zoom" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera": h.engine.SetZoom(req.Zoom)})
}

// Pan moves the viewport by a pixel delta.
func (h *Handlers) Pan(c *gin.Context) {
	var req struct {
		Delta camera.Point `json:"delta"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera": h.engine.Pan(req.Delta)})
}

// ResetView restores the default camera.
func (h *Handlers) ResetView(c *gin.Context) {
	h.engine.ResetView()
	c.JSON(http.StatusOK, gin.H{"camera": h.engine.Camera()})
}

// ListDevices lists the device catalog.
func (h *Handlers) ListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": h.engine.Devices()})
}

// AddDevice registers a custom device profile.
func (h *Handlers) AddDevice(c *gin.Context) {
	var p device.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.AddDevice(p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": p})
}

// RemoveDevice deletes a custom device profile.
func (h *Handlers) RemoveDevice(c *gin.Context) {
	if err := h.engine.RemoveDevice(c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": c.Param("id")})
}

// SelectDevice switches the primary surface to another profile.
func (h *Handlers) SelectDevice(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.SelectDevice(req.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.engine.State())
}

// SetMultiDevice switches the extra device grid.
func (h *Handlers) SetMultiDevice(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.SetMultiDevice(req.IDs); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.engine.State())
}

// SetCustomCSS replaces the custom style layer.
func (h *Handlers) SetCustomCSS(c *gin.Context) {
	var req struct {
		CSS string `json:"css"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.engine.SetCustomCSS(req.CSS)
	c.JSON(http.StatusOK, h.engine.State())
}

// SetTypography replaces the typography layer.
func (h *Handlers) SetTypography(c *gin.Context) {
	var req inject.Typography
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.engine.SetTypography(req)
	c.JSON(http.StatusOK, h.engine.State())
}

// SetEffects selects the active effect presets.
func (h *Handlers) SetEffects(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.engine.SetEffects(req.IDs)
	c.JSON(http.StatusOK, h.engine.State())
}

// ListEffects lists the effect presets.
func (h *Handlers) ListEffects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"effects": h.engine.Effects()})
}

// Extract runs the style probe and returns the report.
func (h *Handlers) Extract(c *gin.Context) {
	report, err := h.engine.Extract()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.IncExtractions()
	}
	c.JSON(http.StatusOK, report)
}

// LastReport returns the cached probe report, if any.
func (h *Handlers) LastReport(c *gin.Context) {
	report := h.engine.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no extraction has run yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ApplyRemap plans and applies a color remapping.
func (h *Handlers) ApplyRemap(c *gin.Context) {
	var req struct {
		Sources []string `json:"sources"`
		Targets []string `json:"targets"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, err := h.engine.ApplyMapping(req.Sources, req.Targets)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.IncRemapsApplied()
	}
	c.JSON(http.StatusOK, gin.H{"mapping": plan})
}

// GetMapping returns the accumulated color mapping.
func (h *Handlers) GetMapping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mapping": h.engine.Mapping()})
}

// ResetMapping clears the mapping and restores original colors.
func (h *Handlers) ResetMapping(c *gin.Context) {
	if err := h.engine.ResetMapping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.engine.State())
}

// ToggleComparison turns before/after mode on or off.
func (h *Handlers) ToggleComparison(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.engine.ToggleComparison(*req.Enabled)
	c.JSON(http.StatusOK, h.engine.State())
}

// SetSplit moves the comparison divider.
func (h *Handlers) SetSplit(c *gin.Context) {
	var req struct {
		Ratio float64 `json:"ratio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratio": h.engine.SetSplit(req.Ratio)})
}

// SetScrollSync toggles synchronized comparison scrolling.
func (h *Handlers) SetScrollSync(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.engine.SetScrollSync(*req.Enabled)
	c.JSON(http.StatusOK, h.engine.State())
}

// Stats returns the JSON metrics snapshot.
func (h *Handlers) Stats(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}

// substituteBase resolves the proxy placeholder for content leaving the
// service.
func (h *Handlers) substituteBase(s string) string {
	return strings.ReplaceAll(s, proxy.PlaceholderBase, h.proxyBase)
}
