package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previewlab/restyle/internal/preview/surface"
)

func probeHTML(t *testing.T, html string) *Report {
	t.Helper()
	h := surface.NewDocSurface()
	require.NoError(t, h.Write(html))
	report, err := NewProber(nil).Probe(h)
	require.NoError(t, err)
	return report
}

func TestColorAggregation(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<p style="color: #FF0000">a</p>
		<p style="color: red; background-color: #ff0000">b</p>
		<div style="color: rgb(0, 0, 255)">c</div>
	</body></html>`)

	require.NotEmpty(t, report.Colors)
	top := report.Colors[0]
	assert.Equal(t, "#ff0000", top.Hex)
	assert.Equal(t, 3, top.Count)
	assert.Equal(t, []string{"color", "background-color"}, top.Properties)

	require.Len(t, report.Colors, 2)
	assert.Equal(t, "#0000ff", report.Colors[1].Hex)
}

func TestTieBreakFirstSeen(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<p style="color: #111111">a</p>
		<p style="color: #222222">b</p>
	</body></html>`)

	require.Len(t, report.Colors, 2)
	assert.Equal(t, "#111111", report.Colors[0].Hex)
	assert.Equal(t, "#222222", report.Colors[1].Hex)
}

func TestTopNCutoff(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, `<p style="color: #%02x%02x00">x</p>`, i, i)
	}
	b.WriteString("</body></html>")

	report := probeHTML(t, b.String())
	assert.Len(t, report.Colors, maxColors)
}

func TestFontAggregation(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<p style="font-family: 'Inter', sans-serif; font-weight: 700; font-size: 18px">a</p>
		<p style="font-family: Inter, serif; font-weight: 400; font-size: 14px">b</p>
		<p style="font-family: Georgia">c</p>
	</body></html>`)

	require.Len(t, report.Fonts, 2)
	inter := report.Fonts[0]
	assert.Equal(t, "Inter", inter.Family)
	assert.Equal(t, 2, inter.Count)
	assert.ElementsMatch(t, []string{"700", "400"}, inter.Weights)
	assert.ElementsMatch(t, []string{"18px", "14px"}, inter.Sizes)
	assert.Equal(t, "Georgia", report.Fonts[1].Family)
}

func TestSpacingSkipsZero(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<div style="margin: 0">a</div>
		<div style="margin: 0 0 0 0">b</div>
		<div style="padding: 8px 16px">c</div>
	</body></html>`)

	require.Len(t, report.Spacing, 1)
	assert.Equal(t, "8px 16px", report.Spacing[0].Value)
}

func TestRadiiAndShadows(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<div style="border-radius: 4px; box-shadow: none">a</div>
		<div style="border-radius: 4px; box-shadow: 0 1px 2px rgba(0,0,0,0.2)">b</div>
	</body></html>`)

	require.Len(t, report.Radii, 1)
	assert.Equal(t, "4px", report.Radii[0].Value)
	assert.Equal(t, 2, report.Radii[0].Count)
	require.Len(t, report.Shadows, 1)
	assert.Equal(t, 1, report.Shadows[0].Count)
}

func TestShadowsIncludeTextShadow(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<h1 style="text-shadow: 1px 1px 2px rgba(0,0,0,0.5)">a</h1>
		<h2 style="text-shadow: 1px 1px 2px rgba(0,0,0,0.5); box-shadow: 0 1px 2px #333333">b</h2>
		<p style="text-shadow: none">c</p>
	</body></html>`)

	require.Len(t, report.Shadows, 2)
	assert.Equal(t, "1px 1px 2px rgba(0,0,0,0.5)", report.Shadows[0].Value)
	assert.Equal(t, 2, report.Shadows[0].Count)
	assert.Equal(t, 1, report.Shadows[1].Count)
}

func TestTypographyScaleTags(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<h1 style="font-size: 32px">a</h1>
		<h2 style="font-size: 24px">b</h2>
		<p style="font-size: 16px">c</p>
		<span style="font-size: 16px">d</span>
	</body></html>`)

	require.Len(t, report.Scale, 3)
	assert.Equal(t, "16px", report.Scale[0].Size)
	assert.Equal(t, []string{"p", "span"}, report.Scale[0].Tags)
}

func TestLayoutDetail(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<div style="display: flex; flex-direction: column">a</div>
		<div style="display: flex; flex-direction: row">b</div>
		<div style="display: grid; grid-template-columns: 1fr 1fr">c</div>
	</body></html>`)

	require.Len(t, report.Layouts, 2)
	assert.Equal(t, "flex", report.Layouts[0].Display)
	assert.Equal(t, 2, report.Layouts[0].Count)
	assert.Equal(t, "column", report.Layouts[0].Detail)
	assert.Equal(t, "1fr 1fr", report.Layouts[1].Detail)
}

func TestURLCollection(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<img src="/a.png"><img src="/a.png"><img src="data:image/png;base64,xx">
		<img src="https://cdn.example.com/b.jpg">
		<a href="#top">skip</a>
		<a href="javascript:void(0)">skip</a>
		<a href="/about">keep</a>
	</body></html>`)

	assert.Equal(t, []string{"/a.png", "https://cdn.example.com/b.jpg"}, report.Images)
	assert.Equal(t, []string{"/about"}, report.Links)
}

func TestRestrictedSurface(t *testing.T) {
	h := surface.NewRestrictedSurface()
	_, err := NewProber(nil).Probe(h)
	assert.ErrorIs(t, err, surface.ErrRestricted)
}

func TestProbeIsReadOnly(t *testing.T) {
	h := surface.NewDocSurface()
	require.NoError(t, h.Write(`<html><body><p style="color: #123456">a</p></body></html>`))
	before, err := h.HTML()
	require.NoError(t, err)

	_, err = NewProber(nil).Probe(h)
	require.NoError(t, err)

	after, err := h.HTML()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPalette(t *testing.T) {
	report := probeHTML(t, `<html><body>
		<p style="color: #ffffff">a</p>
		<p style="color: #000000; background-color: #ffffff">b</p>
	</body></html>`)
	assert.Equal(t, []string{"#ffffff", "#000000"}, report.Palette())
}
