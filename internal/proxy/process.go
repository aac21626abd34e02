package proxy

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlaceholderBase stands in for the externally visible origin. The
// content pipeline substitutes it just before a surface write, so the
// same processed markup works behind any host.
const PlaceholderBase = "{{PROXY_BASE}}"

const (
	resourcePathPrefix = "/api/proxy-resource/"
	pathProxyPrefix    = "/api/proxy-path/"
)

// permissiveCSP replaces whatever policy the page shipped with so the
// preview can inline styles and load proxied resources.
const permissiveCSP = "default-src * 'unsafe-inline' 'unsafe-eval' data: blob:;"

// Options tunes HTML processing.
type Options struct {
	// StripScripts removes all script elements after rewriting, leaving
	// an inert but visually complete document.
	StripScripts bool
}

var (
	cssURLPattern  = regexp.MustCompile(`url\(([^)]+)\)`)
	cspTextPattern = regexp.MustCompile(`(?i)Content-Security-Policy[^;]*;?`)
)

// rewriter resolves and proxies URLs against one page origin.
type rewriter struct {
	base   *url.URL
	scheme string
}

// Process rewrites fetched markup for iframe embedding: frame-blocking
// metadata is removed, every subresource reference is routed through the
// path proxy, and a base tag pins relative resolution to the proxied
// origin.
func Process(html, pageURL string, opts Options) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	rw := &rewriter{base: base, scheme: base.Scheme}

	removeBlockingMeta(doc)
	rw.proxyResources(doc)
	rw.installBase(doc)

	if opts.StripScripts {
		doc.Find("script").Remove()
	}

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize html: %w", err)
	}
	if opts.StripScripts {
		// Script elements are gone, but inline event handlers survive a
		// DOM pass. The policy run drops those too.
		out = stripActiveContent(out)
	}
	return out, nil
}

// absolutize resolves a relative reference against the page URL.
// Already-absolute forms pass through untouched.
func (r *rewriter) absolutize(ref string) string {
	if ref == "" || hasAnyPrefix(ref, "http://", "https://", "data:", "blob:", "//", "#") {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return r.base.ResolveReference(parsed).String()
}

// proxied routes an absolute URL through the path proxy. Inline data,
// fragments, pseudo-schemes, and already-proxied URLs pass through.
func (r *rewriter) proxied(ref string) string {
	if ref == "" || hasAnyPrefix(ref,
		"data:", "blob:", "#", "javascript:", "mailto:", "tel:",
		resourcePathPrefix, pathProxyPrefix, PlaceholderBase) {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		ref = r.scheme + ":" + ref
	}
	return PlaceholderBase + pathProxyPrefix + ref
}

func (r *rewriter) proxyAttr(sel *goquery.Selection, attr string) {
	if val, ok := sel.Attr(attr); ok && val != "" {
		sel.SetAttr(attr, r.proxied(r.absolutize(val)))
	}
}

// proxySrcset rewrites each candidate of a srcset list, preserving the
// width or density descriptor after the URL.
func (r *rewriter) proxySrcset(sel *goquery.Selection, attr string) {
	val, ok := sel.Attr(attr)
	if !ok || val == "" {
		return
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.LastIndex(part, " "); idx >= 0 {
			ref := strings.TrimSpace(part[:idx])
			descriptor := strings.TrimSpace(part[idx+1:])
			out = append(out, r.proxied(r.absolutize(ref))+" "+descriptor)
		} else {
			out = append(out, r.proxied(r.absolutize(part)))
		}
	}
	sel.SetAttr(attr, strings.Join(out, ", "))
}

func (r *rewriter) proxyResources(doc *goquery.Document) {
	// Stylesheets and other link relations carry subresource URLs.
	// Integrity hashes no longer match after proxying and must go.
	doc.Find("link[rel]").Each(func(_ int, sel *goquery.Selection) {
		r.proxyAttr(sel, "href")
		sel.RemoveAttr("integrity")
		sel.RemoveAttr("crossorigin")
	})

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		r.proxyAttr(sel, "src")
		sel.RemoveAttr("integrity")
		sel.RemoveAttr("crossorigin")
	})

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		r.proxyAttr(sel, "src")
		r.proxySrcset(sel, "srcset")
	})

	doc.Find("source, video, audio, object, embed").Each(func(_ int, sel *goquery.Selection) {
		r.proxyAttr(sel, "src")
		r.proxyAttr(sel, "data")
		r.proxySrcset(sel, "srcset")
	})

	// Navigation targets are absolutized but left unproxied so clicks
	// escape the preview instead of recursing through it.
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || hasAnyPrefix(href, "#", "javascript:", "mailto:", "tel:") {
			return
		}
		sel.SetAttr("href", r.absolutize(href))
	})
	doc.Find("form[action]").Each(func(_ int, sel *goquery.Selection) {
		if action, _ := sel.Attr("action"); action != "" {
			sel.SetAttr("action", r.absolutize(action))
		}
	})

	// Background images referenced from inline styles.
	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		if strings.Contains(style, "url(") {
			sel.SetAttr("style", r.rewriteCSSURLs(style))
		}
	})
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		css := sel.Text()
		if strings.Contains(css, "url(") {
			sel.SetText(r.rewriteCSSURLs(css))
		}
	})
}

// rewriteCSSURLs proxies url(...) references inside CSS text.
func (r *rewriter) rewriteCSSURLs(css string) string {
	return cssURLPattern.ReplaceAllStringFunc(css, func(match string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(match, "url("), ")")
		ref := strings.Trim(strings.TrimSpace(inner), `'"`)
		if ref == "" || hasAnyPrefix(ref, "data:", "blob:", "//") {
			return match
		}
		return "url('" + r.proxied(r.absolutize(ref)) + "')"
	})
}

// installBase pins relative resolution to the proxied page origin and
// swaps any shipped CSP for a permissive one.
func (r *rewriter) installBase(doc *goquery.Document) {
	proxyHref := PlaceholderBase + pathProxyPrefix + r.base.String()

	head := doc.Find("head").First()
	if existing := doc.Find("base").First(); existing.Length() > 0 {
		existing.SetAttr("href", proxyHref)
	} else if head.Length() > 0 {
		head.PrependHtml(`<base href="` + proxyHref + `">`)
	}

	if head.Length() > 0 {
		head.PrependHtml(`<meta http-equiv="Content-Security-Policy" content="` + permissiveCSP + `">`)
	}
}

// removeBlockingMeta strips the metadata that prevents iframe embedding.
func removeBlockingMeta(doc *goquery.Document) {
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		httpEquiv, _ := sel.Attr("http-equiv")
		name, _ := sel.Attr("name")
		content, _ := sel.Attr("content")

		switch strings.ToLower(httpEquiv) {
		case "x-frame-options", "content-security-policy", "frame-options":
			sel.Remove()
			return
		}
		lowered := strings.ToLower(name)
		if strings.Contains(lowered, "content-security-policy") || strings.Contains(lowered, "csp") {
			sel.Remove()
			return
		}
		if strings.Contains(strings.ToLower(content), "content-security-policy") {
			sel.Remove()
		}
	})

	doc.Find("script, style").Each(func(_ int, sel *goquery.Selection) {
		text := sel.Text()
		if strings.Contains(text, "Content-Security-Policy") {
			sel.SetText(cspTextPattern.ReplaceAllString(text, ""))
		}
	})
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
