package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Resource is a proxied subresource plus the response metadata the
// handler forwards to the embedding page.
type Resource struct {
	Body        []byte
	ContentType string
	// CacheControl and Expires pass through from upstream when present.
	CacheControl string
	Expires      string
}

// CORS-open headers every proxied response carries, so the iframe can
// load cross-origin assets without upstream cooperation.
var openHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, OPTIONS",
	"Access-Control-Allow-Headers": "*",
	"X-Frame-Options":              "ALLOWALL",
}

// OpenHeaders returns the permissive header set for proxied responses.
func OpenHeaders() map[string]string {
	out := make(map[string]string, len(openHeaders))
	for k, v := range openHeaders {
		out[k] = v
	}
	return out
}

// FetchResource retrieves one subresource on behalf of the embedded
// page. CSS bodies get their url() references rewritten so nested
// imports keep routing through the proxy.
func (c *Client) FetchResource(ctx context.Context, rawURL string) (Resource, error) {
	rawURL = normalizeTarget(rawURL)

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.rest.R().
			SetContext(ctx).
			SetDoNotParseResponse(true).
			SetHeader("Accept", "*/*").
			SetHeader("Referer", rawURL).
			Get(rawURL)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusBadRequest {
			drainBody(resp)
			return nil, fmt.Errorf("upstream returned %s", resp.Status())
		}
		return resp, nil
	})
	if err != nil {
		c.log.Warn("resource fetch failed", zap.String("url", rawURL), zap.Error(err))
		return Resource{}, humanizeFetchError(err)
	}
	resp := out.(*resty.Response)

	body, err := c.readCapped(resp)
	if err != nil {
		return Resource{}, err
	}

	res := Resource{
		Body:         body,
		ContentType:  resp.Header().Get("Content-Type"),
		CacheControl: resp.Header().Get("Cache-Control"),
		Expires:      resp.Header().Get("Expires"),
	}
	if res.ContentType == "" || strings.HasPrefix(res.ContentType, "application/octet-stream") {
		res.ContentType = mimetype.Detect(body).String()
	}

	if isCSS(res.ContentType, rawURL) {
		res.Body = []byte(c.rewriteStylesheet(string(body), rawURL))
	}
	return res, nil
}

// readCapped reads the streamed body up to the configured resource cap.
func (c *Client) readCapped(resp *resty.Response) ([]byte, error) {
	raw := resp.RawBody()
	defer raw.Close()

	body, err := io.ReadAll(io.LimitReader(raw, c.maxResource+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read resource body: %w", err)
	}
	if int64(len(body)) > c.maxResource {
		return nil, fmt.Errorf("resource exceeds the %d MiB proxy limit", c.maxResource>>20)
	}
	return body, nil
}

// rewriteStylesheet proxies url() and @import references inside a
// fetched stylesheet, resolved against the stylesheet's own URL.
func (c *Client) rewriteStylesheet(css, sheetURL string) string {
	base, err := url.Parse(sheetURL)
	if err != nil {
		return css
	}
	rw := &rewriter{base: base, scheme: base.Scheme}
	return rw.rewriteCSSURLs(css)
}

func isCSS(contentType, rawURL string) bool {
	if strings.Contains(contentType, "text/css") {
		return true
	}
	if u, err := url.Parse(rawURL); err == nil {
		return strings.HasSuffix(strings.ToLower(u.Path), ".css")
	}
	return false
}

func drainBody(resp *resty.Response) {
	if raw := resp.RawBody(); raw != nil {
		io.Copy(io.Discard, raw)
		raw.Close()
	}
}
