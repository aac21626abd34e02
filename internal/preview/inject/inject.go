// Package inject composes the ordered style layers (color remap,
// typography, user custom rules, effect presets) into one reserved-id
// style block per surface and keeps re-injection idempotent.
package inject

import (
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/logging"
	"github.com/previewlab/restyle/internal/preview/surface"
)

// StyleID is the reserved identifier of the injected style element. The
// pipeline owns exactly one element with this id per surface.
const StyleID = "restyle-injected"

// LayerKind names one contribution to the injected block.
type LayerKind string

const (
	KindColorRemap LayerKind = "colorRemap"
	KindTypography LayerKind = "typography"
	KindCustom     LayerKind = "custom"
	KindEffect     LayerKind = "effect"
)

// Layer is one named, ordered contribution to the final style block.
type Layer struct {
	Kind LayerKind `json:"kind"`
	Text string    `json:"text"`
}

// Typography holds the user's type overrides; the zero value contributes
// nothing.
type Typography struct {
	FontFamily   string  `json:"fontFamily,omitempty"`
	BaseSizePx   float64 `json:"baseSizePx,omitempty"`
	HeadingScale float64 `json:"headingScale,omitempty"`
	LineHeight   float64 `json:"lineHeight,omitempty"`
}

// CSS renders the typography layer.
func (t Typography) CSS() string {
	var body []string
	if t.FontFamily != "" {
		body = append(body, "font-family: "+t.FontFamily+" !important")
	}
	if t.BaseSizePx > 0 {
		body = append(body, fmtPx("font-size", t.BaseSizePx))
	}
	if t.LineHeight > 0 {
		body = append(body, fmtFloat("line-height", t.LineHeight))
	}

	var b strings.Builder
	if len(body) > 0 {
		b.WriteString("html, body { ")
		b.WriteString(strings.Join(body, "; "))
		b.WriteString("; }\n")
	}
	if t.HeadingScale > 0 && t.BaseSizePx > 0 {
		size := t.BaseSizePx
		for _, tag := range []string{"h6", "h5", "h4", "h3", "h2", "h1"} {
			size *= t.HeadingScale
			b.WriteString(tag + " { " + fmtPx("font-size", size) + "; }\n")
		}
	}
	return b.String()
}

// Pipeline tracks the current layer sources and writes the combined block
// into surfaces. Original-role surfaces are never touched.
type Pipeline struct {
	mu  sync.Mutex
	log *logging.Logger

	registry *Registry

	remapCSS   string
	typography Typography
	customCSS  string
	effectIDs  []string
}

// NewPipeline creates a pipeline against an effect registry.
func NewPipeline(registry *Registry, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.NewNop()
	}
	return &Pipeline{
		log:      log.Component("inject"),
		registry: registry,
	}
}

// Presets lists the available effect presets.
func (p *Pipeline) Presets() []Effect {
	return p.registry.List()
}

// SetRemapCSS replaces the color-remap layer text.
func (p *Pipeline) SetRemapCSS(css string) {
	p.mu.Lock()
	p.remapCSS = css
	p.mu.Unlock()
}

// SetTypography replaces the typography settings.
func (p *Pipeline) SetTypography(t Typography) {
	p.mu.Lock()
	p.typography = t
	p.mu.Unlock()
}

// SetCustomCSS replaces the user's custom rules.
func (p *Pipeline) SetCustomCSS(css string) {
	p.mu.Lock()
	p.customCSS = css
	p.mu.Unlock()
}

// SetEffects replaces the active effect preset IDs.
func (p *Pipeline) SetEffects(ids []string) {
	p.mu.Lock()
	p.effectIDs = append([]string(nil), ids...)
	p.mu.Unlock()
}

// Layers returns the non-empty layers in their fixed concatenation order:
// colorRemap, typography, custom, effects.
func (p *Pipeline) Layers() []Layer {
	p.mu.Lock()
	remap, typo, custom := p.remapCSS, p.typography.CSS(), p.customCSS
	ids := append([]string(nil), p.effectIDs...)
	p.mu.Unlock()

	var layers []Layer
	if remap != "" {
		layers = append(layers, Layer{Kind: KindColorRemap, Text: remap})
	}
	if typo != "" {
		layers = append(layers, Layer{Kind: KindTypography, Text: typo})
	}
	if custom != "" {
		layers = append(layers, Layer{Kind: KindCustom, Text: custom})
	}
	for _, id := range ids {
		effect, ok := p.registry.Get(id)
		if !ok {
			p.log.Warn("unknown effect preset", zap.String("id", id))
			continue
		}
		layers = append(layers, Layer{Kind: KindEffect, Text: effect.CSS})
	}
	return layers
}

// Compose concatenates the layers into the final block text.
func (p *Pipeline) Compose() string {
	layers := p.Layers()
	parts := make([]string, 0, len(layers))
	for _, l := range layers {
		parts = append(parts, strings.TrimSpace(l.Text))
	}
	return strings.Join(parts, "\n")
}

// Apply writes the combined block into one surface: remove the previous
// reserved-id element, then append a fresh one when there is anything to
// inject. Running it any number of times leaves exactly one element.
func (p *Pipeline) Apply(h surface.Handle, role surface.Role) error {
	if role == surface.RoleOriginal {
		return nil
	}

	css := p.Compose()
	if css == "" {
		return h.RemoveStyle(StyleID)
	}
	return h.UpsertStyle(StyleID, css)
}

func fmtPx(prop string, v float64) string {
	return prop + ": " + trimFloat(v) + "px !important"
}

func fmtFloat(prop string, v float64) string {
	return prop + ": " + trimFloat(v) + " !important"
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
