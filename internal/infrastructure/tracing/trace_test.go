package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpanGeneratesIDs(t *testing.T) {
	tracer := New("restyle", nil)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(context.Background(), "render")

	assert.True(t, strings.HasPrefix(string(span.TraceID), "trace_"))
	assert.True(t, strings.HasPrefix(string(span.SpanID), "span_"))
	assert.Equal(t, "render", span.Name)
	assert.Equal(t, "restyle", span.Service)

	assert.Equal(t, span.TraceID, GetTraceID(ctx))
	assert.Equal(t, span.SpanID, GetSpanID(ctx))
}

func TestChildSpanInheritsTrace(t *testing.T) {
	tracer := New("restyle", nil)
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "render")
	child, _ := tracer.StartSpan(ctx, "fetch")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
}

func TestInjectExtractRoundTrip(t *testing.T) {
	tracer := New("restyle", nil)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(context.Background(), "render")

	headers := make(map[string]string)
	InjectTraceContext(ctx, headers)

	traceID, spanID := ExtractTraceContext(headers)
	assert.Equal(t, span.TraceID, traceID)
	assert.Equal(t, span.SpanID, spanID)
}

func TestHTTPMiddlewareSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("restyle", nil)
	defer tracer.Close()

	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/state", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Trace-ID"), "trace_"))
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Span-ID"), "span_"))
}

func TestHTTPMiddlewareContinuesIncomingTrace(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("restyle", nil)
	defer tracer.Close()

	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/state", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("X-Trace-ID", "trace_upstream")
	router.ServeHTTP(w, req)

	assert.Equal(t, "trace_upstream", w.Header().Get("X-Trace-ID"))
}
