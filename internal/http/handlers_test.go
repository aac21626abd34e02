package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previewlab/restyle/internal/config"
	"github.com/previewlab/restyle/internal/preview/engine"
	"github.com/previewlab/restyle/internal/proxy"
	"github.com/previewlab/restyle/internal/shared/frame"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	engine *engine.Engine
	sched  *frame.Manual
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	sched := frame.NewManual()
	eng, err := engine.New(engine.Options{Scheduler: sched})
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	cfg := config.Default().Proxy
	cfg.FetchTimeout = 5 * time.Second
	cfg.RetryMax = 0
	client := proxy.NewClient(cfg, nil)

	h := NewHandlers(eng, client, nil, "http://preview.local", nil)

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	api := router.Group("/api")
	{
		api.POST("/render", h.Render)
		api.GET("/proxy-resource", h.ProxyResource)
		api.GET("/proxy-path/*target", h.ProxyPath)
		api.GET("/state", h.State)
		api.POST("/view/zoom", h.Zoom)
		api.POST("/view/pan", h.Pan)
		api.POST("/view/reset", h.ResetView)
		api.GET("/devices", h.ListDevices)
		api.POST("/devices/select", h.SelectDevice)
		api.POST("/style/css", h.SetCustomCSS)
		api.POST("/extract", h.Extract)
		api.GET("/extract/last", h.LastReport)
		api.POST("/remap", h.ApplyRemap)
		api.GET("/remap", h.GetMapping)
		api.POST("/comparison", h.ToggleComparison)
		api.POST("/comparison/split", h.SetSplit)
	}

	return &apiFixture{engine: eng, sched: sched, router: router}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRootAndHealth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", decode(t, w)["status"])

	w = f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestRenderLoadsPage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><link rel="stylesheet" href="/a.css"></head><body>page</body></html>`))
	}))
	defer upstream.Close()

	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/api/render", map[string]string{"url": upstream.URL})
	require.Equal(t, http.StatusOK, w.Code)

	out := decode(t, w)
	assert.Equal(t, upstream.URL, out["url"])
	html := out["html"].(string)
	assert.Contains(t, html, "http://preview.local/api/proxy-path/"+upstream.URL+"/a.css")
	assert.NotContains(t, html, "{{PROXY_BASE}}")

	state := out["state"].(map[string]interface{})
	assert.Equal(t, upstream.URL, state["url"])
	assert.NotEmpty(t, state["surfaces"])
}

func TestRenderRequiresURL(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/api/render", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenderUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/api/render", map[string]string{"url": upstream.URL})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "failed to load website")
}

func TestProxyResourceRequiresURL(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/proxy-resource", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProxyPathServesResource(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer upstream.Close()

	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/proxy-path/"+upstream.URL+"/logo.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "ALLOWALL", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=60", w.Header().Get("Cache-Control"))
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, w.Body.Bytes())
}

func TestProxyPathSubstitutesCSSPlaceholder(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		w.Write([]byte(`.x { background: url("bg.png"); }`))
	}))
	defer upstream.Close()

	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/proxy-path/"+upstream.URL+"/site.css", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http://preview.local/api/proxy-path/")
	assert.NotContains(t, w.Body.String(), "{{PROXY_BASE}}")
}

func TestCameraEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/view/zoom", map[string]interface{}{
		"cursor": map[string]float64{"x": 100, "y": 50},
		"factor": 2.0,
	})
	require.Equal(t, http.StatusOK, w.Code)
	cam := decode(t, w)["camera"].(map[string]interface{})
	assert.InDelta(t, 2.0, cam["zoom"].(float64), 0.001)

	w = f.do(t, http.MethodPost, "/api/view/pan", map[string]interface{}{
		"delta": map[string]float64{"x": 10, "y": 5},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/view/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cam = decode(t, w)["camera"].(map[string]interface{})
	assert.InDelta(t, 1.0, cam["zoom"].(float64), 0.001)
}

func TestSelectDeviceUnknown(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/api/devices/select", map[string]string{"id": "fridge"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListDevices(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["devices"])
}

func TestExtractWithoutContent(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/extract", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodGet, "/api/extract/last", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStyleAndRemapFlow(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.engine.LoadContent(engine.Page{
		HTML: `<html><head></head><body style="background-color: #000000"><p style="color: #ffffff">hi</p></body></html>`,
		URL:  "https://example.com",
	}))

	w := f.do(t, http.MethodPost, "/api/style/css", map[string]string{"css": "body { margin: 0; }"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/extract", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/remap", map[string]interface{}{
		"targets": []string{"#112233", "#eeff00"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	mapping := decode(t, w)["mapping"].(map[string]interface{})
	assert.NotEmpty(t, mapping)

	w = f.do(t, http.MethodGet, "/api/remap", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["mapping"])
}

func TestComparisonEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.engine.LoadContent(engine.Page{
		HTML: "<html><body><p>hi</p></body></html>",
		URL:  "https://example.com",
	}))

	on := true
	w := f.do(t, http.MethodPost, "/api/comparison", map[string]interface{}{"enabled": &on})
	require.Equal(t, http.StatusOK, w.Code)
	state := decode(t, w)
	comparison := state["comparison"].(map[string]interface{})
	assert.Equal(t, true, comparison["enabled"])

	w = f.do(t, http.MethodPost, "/api/comparison/split", map[string]float64{"ratio": 130})
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 100.0, decode(t, w)["ratio"].(float64), 0.001)
}
