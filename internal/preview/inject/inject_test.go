package inject

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previewlab/restyle/internal/preview/surface"
)

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	reg, err := NewRegistry()
	require.NoError(t, err)
	return NewPipeline(reg, nil)
}

func TestRegistryBuiltins(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	assert.NotEmpty(t, reg.List())

	gray, ok := reg.Get("grayscale")
	require.True(t, ok)
	assert.Equal(t, "Grayscale", gray.Name)
	assert.Contains(t, gray.CSS, "grayscale")

	_, ok = reg.Get("nonexistent")
	assert.False(t, ok)
}

func TestLayerOrderFixed(t *testing.T) {
	p := newPipeline(t)

	// Set in reverse of the concatenation order.
	p.SetEffects([]string{"sepia"})
	p.SetCustomCSS("p { margin: 0; }")
	p.SetTypography(Typography{FontFamily: "Georgia"})
	p.SetRemapCSS("a { color: #ff0000 !important; }")

	layers := p.Layers()
	require.Len(t, layers, 4)
	assert.Equal(t, KindColorRemap, layers[0].Kind)
	assert.Equal(t, KindTypography, layers[1].Kind)
	assert.Equal(t, KindCustom, layers[2].Kind)
	assert.Equal(t, KindEffect, layers[3].Kind)

	css := p.Compose()
	remapAt := strings.Index(css, "#ff0000")
	typoAt := strings.Index(css, "Georgia")
	customAt := strings.Index(css, "margin: 0")
	effectAt := strings.Index(css, "sepia")
	assert.True(t, remapAt < typoAt && typoAt < customAt && customAt < effectAt)
}

func TestEmptyLayersSkipped(t *testing.T) {
	p := newPipeline(t)
	p.SetCustomCSS("body { color: red; }")

	layers := p.Layers()
	require.Len(t, layers, 1)
	assert.Equal(t, KindCustom, layers[0].Kind)
}

func TestUnknownEffectSkipped(t *testing.T) {
	p := newPipeline(t)
	p.SetEffects([]string{"no-such-preset", "dim"})

	layers := p.Layers()
	require.Len(t, layers, 1)
	assert.Contains(t, layers[0].Text, "brightness")
}

func TestApplyKeepsSingleElement(t *testing.T) {
	p := newPipeline(t)
	h := surface.NewDocSurface()
	require.NoError(t, h.Write("<html><head></head><body><p>hi</p></body></html>"))

	p.SetCustomCSS("p { color: blue; }")
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Apply(h, surface.RoleModified))
	}
	assert.Equal(t, 1, h.StyleCount(StyleID))

	p.SetEffects([]string{"grayscale"})
	require.NoError(t, p.Apply(h, surface.RoleModified))
	assert.Equal(t, 1, h.StyleCount(StyleID))

	html, err := h.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "grayscale")
}

func TestApplySkipsOriginal(t *testing.T) {
	p := newPipeline(t)
	h := surface.NewDocSurface()
	require.NoError(t, h.Write("<html><head></head><body></body></html>"))

	p.SetCustomCSS("body { color: red; }")
	require.NoError(t, p.Apply(h, surface.RoleOriginal))
	assert.Equal(t, 0, h.StyleCount(StyleID))
}

func TestApplyEmptyRemovesElement(t *testing.T) {
	p := newPipeline(t)
	h := surface.NewDocSurface()
	require.NoError(t, h.Write("<html><head></head><body></body></html>"))

	p.SetCustomCSS("body { color: red; }")
	require.NoError(t, p.Apply(h, surface.RoleModified))
	assert.Equal(t, 1, h.StyleCount(StyleID))

	p.SetCustomCSS("")
	require.NoError(t, p.Apply(h, surface.RoleModified))
	assert.Equal(t, 0, h.StyleCount(StyleID))
}

func TestTypographyCSS(t *testing.T) {
	css := Typography{
		FontFamily:   "Inter, sans-serif",
		BaseSizePx:   16,
		HeadingScale: 1.25,
		LineHeight:   1.5,
	}.CSS()

	assert.Contains(t, css, "font-family: Inter, sans-serif !important")
	assert.Contains(t, css, "font-size: 16px !important")
	assert.Contains(t, css, "line-height: 1.5 !important")

	// h6 gets one scale step, h1 six.
	assert.Contains(t, css, "h6 { font-size: 20px !important; }")
	assert.Contains(t, css, "h5 { font-size: 25px !important; }")
	h1At := strings.Index(css, "h1 {")
	h6At := strings.Index(css, "h6 {")
	assert.True(t, h6At < h1At)
}

func TestTypographyZeroValue(t *testing.T) {
	assert.Empty(t, Typography{}.CSS())
}
