package surface

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// proxyPathPrefix is the route the out-of-scope proxy serves page
// subresources on; repaired URLs are rewritten through it.
const proxyPathPrefix = "/api/proxy-path/"

var inlineURLPattern = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// srcAttrSelectors lists the elements whose src-family attributes carry
// repairable references.
var srcAttrSelectors = []struct {
	selector string
	attr     string
}{
	{"img[src]", "src"},
	{"script[src]", "src"},
	{"source[src]", "src"},
	{"video[src]", "src"},
	{"audio[src]", "src"},
	{"embed[src]", "src"},
	{"link[href]", "href"},
	{"img[srcset]", "srcset"},
	{"source[srcset]", "srcset"},
}

// Repairer resolves relative asset references against the recovered
// original base URL and rewrites them to an absolute, proxy-routed form.
// Absolute, data:, blob: and already-proxied URLs are left untouched.
type Repairer struct {
	base      *url.URL
	proxyBase string
}

// NewRepairer builds a repairer for one content load.
func NewRepairer(sourceURL, proxyBase string) (*Repairer, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("source url %q has no origin", sourceURL)
	}
	return &Repairer{base: base, proxyBase: strings.TrimRight(proxyBase, "/")}, nil
}

// Repair runs one repair pass over the surface. It returns the number of
// rewritten references. A single malformed reference is skipped, never
// fatal; only a restricted surface aborts the pass.
func (r *Repairer) Repair(h Handle) (int, error) {
	fixed := 0

	for _, target := range srcAttrSelectors {
		nodes, err := h.QueryAll(target.selector)
		if err != nil {
			return fixed, err
		}
		for _, n := range nodes {
			raw, ok := n.Attr(target.attr)
			if !ok || raw == "" {
				continue
			}

			var rewritten string
			if target.attr == "srcset" {
				rewritten = r.repairSrcset(raw)
			} else {
				rewritten = r.resolve(raw)
			}
			if rewritten != raw {
				if err := n.SetAttr(target.attr, rewritten); err == nil {
					fixed++
				}
			}
		}
	}

	styled, err := h.QueryAll("[style]")
	if err != nil {
		return fixed, err
	}
	for _, n := range styled {
		style, ok := n.Attr("style")
		if !ok || !strings.Contains(style, "url(") {
			continue
		}
		rewritten := inlineURLPattern.ReplaceAllStringFunc(style, func(m string) string {
			sub := inlineURLPattern.FindStringSubmatch(m)
			ref := strings.TrimSpace(sub[1])
			resolved := r.resolve(ref)
			if resolved == ref {
				return m
			}
			return fmt.Sprintf("url('%s')", resolved)
		})
		if rewritten != style {
			if err := n.SetAttr("style", rewritten); err == nil {
				fixed++
			}
		}
	}

	return fixed, nil
}

// resolve maps one relative reference to its proxy-routed absolute form,
// or returns it unchanged when out of scope.
func (r *Repairer) resolve(ref string) string {
	if r.skip(ref) {
		return ref
	}
	abs, err := r.base.Parse(ref)
	if err != nil {
		// Malformed reference: leave it, continue repairing others.
		return ref
	}
	return r.proxyBase + proxyPathPrefix + abs.String()
}

func (r *Repairer) skip(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return true
	}
	for _, prefix := range []string{
		"http://", "https://", "//",
		"data:", "blob:", "#",
		"javascript:", "mailto:", "tel:",
		"{{PROXY_BASE}}",
		proxyPathPrefix,
		"/api/proxy-resource/",
	} {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return r.proxyBase != "" && strings.HasPrefix(ref, r.proxyBase)
}

// repairSrcset rewrites each candidate of a srcset list, preserving the
// width or density descriptor after the last space.
func (r *Repairer) repairSrcset(srcset string) string {
	parts := strings.Split(srcset, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.LastIndex(part, " "); idx > 0 {
			ref := strings.TrimSpace(part[:idx])
			descriptor := strings.TrimSpace(part[idx+1:])
			out = append(out, r.resolve(ref)+" "+descriptor)
		} else {
			out = append(out, r.resolve(part))
		}
	}
	return strings.Join(out, ", ")
}
