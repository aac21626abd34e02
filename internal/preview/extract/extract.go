// Package extract implements the read-only style probe: a one-shot
// statistical pass over a rendered surface producing frequency-ranked
// palettes, font usage, spacing values, and layout distribution.
package extract

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/logging"
	"github.com/previewlab/restyle/internal/preview/surface"
	"github.com/previewlab/restyle/internal/shared/color"
)

const (
	maxColors  = 20
	maxFonts   = 15
	maxSpacing = 15
	maxRadii   = 10
	maxShadows = 10
	maxSizes   = 12
	maxLayouts = 8
	maxImages  = 20
	maxLinks   = 20
)

var colorProperties = []string{
	"color",
	"background-color",
	"border-top-color",
	"border-right-color",
	"border-bottom-color",
	"border-left-color",
}

// ColorSample is one observed color with its usage.
type ColorSample struct {
	Hex        string   `json:"hex"`
	Count      int      `json:"count"`
	Properties []string `json:"properties"`
}

// FontSample is one primary font family with its observed weights and sizes.
type FontSample struct {
	Family  string   `json:"family"`
	Count   int      `json:"count"`
	Weights []string `json:"weights,omitempty"`
	Sizes   []string `json:"sizes,omitempty"`
}

// ValueSample is a plain value-frequency pair.
type ValueSample struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SizeSample is one font-size step with the tags observed using it.
type SizeSample struct {
	Size  string   `json:"size"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

// LayoutSample is one display value with flex/grid detail when present.
type LayoutSample struct {
	Display string `json:"display"`
	Count   int    `json:"count"`
	Detail  string `json:"detail,omitempty"`
}

// Report is the probe output. Every list is ranked by frequency with
// first-seen order breaking ties.
type Report struct {
	Colors  []ColorSample  `json:"colors"`
	Fonts   []FontSample   `json:"fonts"`
	Spacing []ValueSample  `json:"spacing"`
	Radii   []ValueSample  `json:"radii"`
	Shadows []ValueSample  `json:"shadows"`
	Scale   []SizeSample   `json:"scale"`
	Layouts []LayoutSample `json:"layouts"`
	Images  []string       `json:"images"`
	Links   []string       `json:"links"`
}

// Palette returns the ranked color hexes, the raw material for remapping.
func (r *Report) Palette() []string {
	out := make([]string, 0, len(r.Colors))
	for _, c := range r.Colors {
		out = append(out, c.Hex)
	}
	return out
}

// Prober runs the statistical pass.
type Prober struct {
	log *logging.Logger
}

// NewProber creates a prober.
func NewProber(log *logging.Logger) *Prober {
	if log == nil {
		log = logging.NewNop()
	}
	return &Prober{log: log.Component("extract")}
}

// Probe analyzes one surface. It never mutates the surface; a restricted
// surface surfaces its error to the caller.
func (p *Prober) Probe(h surface.Handle) (*Report, error) {
	nodes, err := h.QueryAll("*")
	if err != nil {
		return nil, err
	}

	colors := newCounter()
	colorProps := make(map[string]*orderedSet)
	fonts := newCounter()
	fontWeights := make(map[string]*orderedSet)
	fontSizes := make(map[string]*orderedSet)
	spacing := newCounter()
	radii := newCounter()
	shadows := newCounter()
	sizes := newCounter()
	sizeTags := make(map[string]*orderedSet)
	layouts := newCounter()
	layoutDetail := make(map[string]string)

	for _, n := range nodes {
		style, err := h.ComputedStyleOf(n)
		if err != nil {
			return nil, err
		}

		for _, prop := range colorProperties {
			raw, ok := style[prop]
			if !ok {
				continue
			}
			hex, ok := color.Normalize(raw)
			if !ok {
				continue
			}
			colors.add(hex)
			props, exists := colorProps[hex]
			if !exists {
				props = newOrderedSet()
				colorProps[hex] = props
			}
			props.add(prop)
		}

		if family := primaryFamily(style["font-family"]); family != "" {
			fonts.add(family)
			if w := style["font-weight"]; w != "" {
				set, ok := fontWeights[family]
				if !ok {
					set = newOrderedSet()
					fontWeights[family] = set
				}
				set.add(w)
			}
			if s := style["font-size"]; s != "" {
				set, ok := fontSizes[family]
				if !ok {
					set = newOrderedSet()
					fontSizes[family] = set
				}
				set.add(s)
			}
		}

		for _, prop := range []string{"margin", "padding"} {
			if v := style[prop]; v != "" && !zeroLength(v) {
				spacing.add(v)
			}
		}
		if v := style["border-radius"]; v != "" && !zeroLength(v) {
			radii.add(v)
		}
		for _, prop := range []string{"box-shadow", "text-shadow"} {
			if v := style[prop]; v != "" && v != "none" {
				shadows.add(v)
			}
		}

		if v := style["font-size"]; v != "" {
			sizes.add(v)
			set, ok := sizeTags[v]
			if !ok {
				set = newOrderedSet()
				sizeTags[v] = set
			}
			set.add(n.Tag())
		}

		if v := style["display"]; v != "" {
			layouts.add(v)
			if _, seen := layoutDetail[v]; !seen {
				if strings.Contains(v, "flex") {
					layoutDetail[v] = style["flex-direction"]
				} else if strings.Contains(v, "grid") {
					layoutDetail[v] = style["grid-template-columns"]
				}
			}
		}
	}

	report := &Report{}
	for _, e := range colors.top(maxColors) {
		report.Colors = append(report.Colors, ColorSample{
			Hex:        e.key,
			Count:      e.count,
			Properties: colorProps[e.key].values(),
		})
	}
	for _, e := range fonts.top(maxFonts) {
		sample := FontSample{Family: e.key, Count: e.count}
		if set, ok := fontWeights[e.key]; ok {
			sample.Weights = set.values()
		}
		if set, ok := fontSizes[e.key]; ok {
			sample.Sizes = set.values()
		}
		report.Fonts = append(report.Fonts, sample)
	}
	for _, e := range spacing.top(maxSpacing) {
		report.Spacing = append(report.Spacing, ValueSample{Value: e.key, Count: e.count})
	}
	for _, e := range radii.top(maxRadii) {
		report.Radii = append(report.Radii, ValueSample{Value: e.key, Count: e.count})
	}
	for _, e := range shadows.top(maxShadows) {
		report.Shadows = append(report.Shadows, ValueSample{Value: e.key, Count: e.count})
	}
	for _, e := range sizes.top(maxSizes) {
		report.Scale = append(report.Scale, SizeSample{
			Size:  e.key,
			Count: e.count,
			Tags:  sizeTags[e.key].values(),
		})
	}
	for _, e := range layouts.top(maxLayouts) {
		report.Layouts = append(report.Layouts, LayoutSample{
			Display: e.key,
			Count:   e.count,
			Detail:  layoutDetail[e.key],
		})
	}

	if report.Images, err = collectURLs(h, "img", "src", maxImages, imageSkipped); err != nil {
		return nil, err
	}
	if report.Links, err = collectURLs(h, "a", "href", maxLinks, linkSkipped); err != nil {
		return nil, err
	}

	p.log.Debug("probe complete",
		zap.Int("colors", len(report.Colors)),
		zap.Int("fonts", len(report.Fonts)),
		zap.Int("images", len(report.Images)))
	return report, nil
}

func collectURLs(h surface.Handle, selector, attr string, max int, skip func(string) bool) ([]string, error) {
	nodes, err := h.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	set := newOrderedSet()
	for _, n := range nodes {
		v, ok := n.Attr(attr)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" || skip(v) {
			continue
		}
		set.add(v)
		if set.len() >= max {
			break
		}
	}
	return set.values(), nil
}

func imageSkipped(u string) bool {
	return strings.HasPrefix(u, "data:")
}

func linkSkipped(u string) bool {
	return strings.HasPrefix(u, "#") || strings.HasPrefix(strings.ToLower(u), "javascript:")
}

// primaryFamily takes the first entry of a font-family list, quotes
// stripped.
func primaryFamily(v string) string {
	if v == "" {
		return ""
	}
	first := v
	if i := strings.IndexByte(v, ','); i >= 0 {
		first = v[:i]
	}
	return strings.Trim(strings.TrimSpace(first), `"'`)
}

func zeroLength(v string) bool {
	for _, part := range strings.Fields(v) {
		if part != "0" && part != "0px" && part != "0%" && part != "0em" && part != "0rem" {
			return false
		}
	}
	return true
}

type entry struct {
	key   string
	count int
}

// counter is a frequency map that remembers first-seen order for
// deterministic tie-breaks.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) top(n int) []entry {
	out := make([]entry, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, entry{key: key, count: c.counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].count > out[j].count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// orderedSet is a deduplicating list preserving insertion order.
type orderedSet struct {
	seen map[string]bool
	list []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(v string) {
	if v == "" || s.seen[v] {
		return
	}
	s.seen[v] = true
	s.list = append(s.list, v)
}

func (s *orderedSet) len() int { return len(s.list) }

func (s *orderedSet) values() []string {
	return append([]string(nil), s.list...)
}
