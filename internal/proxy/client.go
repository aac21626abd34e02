// Package proxy is the fetch collaborator: it loads an upstream page,
// decodes it, and rewrites it into iframe-embeddable markup whose
// resource references route back through this service. It also proxies
// individual subresources with open CORS headers.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/config"
	"github.com/previewlab/restyle/internal/infrastructure/resilience"
	"github.com/previewlab/restyle/internal/logging"
)

// Result is the render output: processed markup carrying the
// {{PROXY_BASE}} placeholder, the final URL after redirects, and the
// page's descriptive metadata.
type Result struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
	Meta Meta   `json:"meta"`
}

// Client fetches and processes upstream pages.
type Client struct {
	rest         *resty.Client
	breaker      *resilience.Breaker
	log          *logging.Logger
	stripScripts bool
	maxResource  int64
}

// NewClient builds the production client: retryable transport under
// resty, browser-like headers, and a circuit breaker around the upstream.
func NewClient(cfg config.ProxyConfig, log *logging.Logger) *Client {
	if log == nil {
		log = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.Logger = nil

	rest := resty.New().
		SetTimeout(cfg.FetchTimeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	rest.SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("proxy-upstream", resilience.Settings{
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		rest:         rest,
		breaker:      breaker,
		log:          log.Component("proxy"),
		stripScripts: cfg.StripScripts,
		maxResource:  int64(cfg.MaxResourceMiB) << 20,
	}
}

// Render fetches a page and returns it processed for embedding. Errors
// carry human-readable messages suitable for direct display.
func (c *Client) Render(ctx context.Context, rawURL string) (Result, error) {
	rawURL = normalizeTarget(rawURL)

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.rest.R().
			SetContext(ctx).
			SetHeader("Accept", "text/html,application/xhtml+xml,*/*;q=0.8").
			Get(rawURL)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("upstream returned %s", resp.Status())
		}
		return resp, nil
	})
	if err != nil {
		c.log.Warn("render fetch failed", zap.String("url", rawURL), zap.Error(err))
		return Result{}, humanizeFetchError(err)
	}
	resp := out.(*resty.Response)

	finalURL := rawURL
	if req := resp.RawResponse.Request; req != nil && req.URL != nil {
		finalURL = req.URL.String()
	}

	html := decodeHTML(resp.Body(), resp.Header().Get("Content-Type"))
	processed, err := Process(html, finalURL, Options{StripScripts: c.stripScripts})
	if err != nil {
		return Result{}, fmt.Errorf("failed to process website content: %w", err)
	}

	c.log.Info("page rendered",
		zap.String("url", finalURL), zap.Int("bytes", len(processed)))
	return Result{HTML: processed, URL: finalURL, Meta: extractMeta(html)}, nil
}

// normalizeTarget defaults bare hosts to https.
func normalizeTarget(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "https://" + rawURL
	}
	return rawURL
}

// humanizeFetchError maps transport failures to messages the UI shows
// verbatim.
func humanizeFetchError(err error) error {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return fmt.Errorf("the upstream fetcher is cooling down after repeated failures, try again shortly")
	case errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(strings.ToLower(err.Error()), "timeout"):
		return fmt.Errorf("request timed out, the website may be slow or taking too long to load")
	default:
		return fmt.Errorf("failed to load website: %v, the website may be unreachable or blocked", err)
	}
}
