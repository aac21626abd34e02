package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		// Route template keeps label cardinality bounded; the proxy-path
		// wildcard would otherwise mint a label per target URL.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())

		metrics.RecordHTTPRequest(method, path, status, duration, reqSize, respSize)
	}
}

// FetchTimer measures one upstream fetch and records its outcome.
type FetchTimer struct {
	start   time.Time
	metrics *Metrics
	kind    string
}

// NewFetchTimer starts timing an upstream fetch of the given kind
// ("page" or "resource").
func NewFetchTimer(metrics *Metrics, kind string) *FetchTimer {
	return &FetchTimer{start: time.Now(), metrics: metrics, kind: kind}
}

// Done records the fetch outcome.
func (t *FetchTimer) Done(err error) {
	if t.metrics == nil {
		return
	}
	if err != nil {
		t.metrics.RecordFetchError(t.kind)
		return
	}
	switch t.kind {
	case "resource":
		t.metrics.RecordResourceProxied(time.Since(t.start))
	default:
		t.metrics.RecordPageRendered(time.Since(t.start))
	}
}
