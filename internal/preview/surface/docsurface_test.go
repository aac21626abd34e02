package surface

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docHTML = `<!DOCTYPE html>
<html>
<head><title>Sample</title>
<style>
body { color: #222222; background-color: #ffffff; }
.hero { background-color: rgb(10, 20, 30); }
@media (max-width: 600px) { body { color: red; } }
</style>
</head>
<body>
<div class="hero" style="color: #ff0000; padding: 4px">hi</div>
<img src="/logo.png">
</body>
</html>`

func TestDocSurfaceQueryAndComputedStyle(t *testing.T) {
	s := NewDocSurface()
	require.NoError(t, s.Write(docHTML))

	nodes, err := s.QueryAll(".hero")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "div", nodes[0].Tag())

	style, err := s.ComputedStyleOf(nodes[0])
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", style["color"])
	assert.Equal(t, "4px", style["padding"])
}

func TestDocSurfaceUpsertStyleIsSingular(t *testing.T) {
	s := NewDocSurface()
	require.NoError(t, s.Write(docHTML))

	require.NoError(t, s.UpsertStyle("restyle-injected", "body { margin: 0 }"))
	require.NoError(t, s.UpsertStyle("restyle-injected", "body { margin: 8px }"))
	require.NoError(t, s.UpsertStyle("restyle-injected", "body { margin: 16px }"))

	assert.Equal(t, 1, s.StyleCount("restyle-injected"))

	html, err := s.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "margin: 16px")
	assert.NotContains(t, html, "margin: 8px")

	require.NoError(t, s.RemoveStyle("restyle-injected"))
	assert.Zero(t, s.StyleCount("restyle-injected"))
}

func TestDocSurfaceStyleRules(t *testing.T) {
	s := NewDocSurface()
	require.NoError(t, s.Write(docHTML))

	rules, err := s.StyleRules()
	require.NoError(t, err)

	// The @media block is skipped; two top-level rules remain.
	require.Len(t, rules, 2)
	assert.Equal(t, "body", rules[0].Selector())

	v, ok := rules[0].Property("color")
	require.True(t, ok)
	assert.Equal(t, "#222222", v)

	require.NoError(t, rules[0].SetProperty("color", "#00ff00", true))
	html, err := s.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "color: #00ff00 !important")
	// Sibling declarations survive the rewrite.
	assert.Contains(t, html, "background-color: #ffffff")
}

func TestDocSurfaceInjectedStylesExcludedFromRules(t *testing.T) {
	s := NewDocSurface()
	require.NoError(t, s.Write(docHTML))
	require.NoError(t, s.UpsertStyle("restyle-injected", "p { color: blue }"))

	rules, err := s.StyleRules()
	require.NoError(t, err)
	for _, r := range rules {
		assert.NotEqual(t, "p", r.Selector())
	}
}

func TestDocSurfaceSetStyleProperty(t *testing.T) {
	s := NewDocSurface()
	require.NoError(t, s.Write(docHTML))

	nodes, err := s.QueryAll(".hero")
	require.NoError(t, err)
	require.NoError(t, nodes[0].SetStyleProperty("color", "#0000ff", true))

	style, err := s.ComputedStyleOf(nodes[0])
	require.NoError(t, err)
	assert.Equal(t, "#0000ff", style["color"])
	// Unrelated declarations preserved.
	assert.Equal(t, "4px", style["padding"])

	html, err := s.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "color: #0000ff !important")
}

func TestDocSurfaceScrollListeners(t *testing.T) {
	s := NewDocSurface()
	var seen []Offset
	off := s.OnScroll(func(o Offset) { seen = append(seen, o) })

	require.NoError(t, s.SetScrollOffset(Offset{Y: 120}))
	require.Len(t, seen, 1)
	assert.Equal(t, 120.0, seen[0].Y)

	// Negative offsets clamp to zero.
	require.NoError(t, s.SetScrollOffset(Offset{X: -5, Y: -5}))
	assert.Equal(t, Offset{}, seen[1])

	off()
	require.NoError(t, s.SetScrollOffset(Offset{Y: 10}))
	assert.Len(t, seen, 2)
}

func TestDocSurfaceWatchFiresOnTrackedAttrs(t *testing.T) {
	s := NewDocSurface()
	require.NoError(t, s.Write(docHTML))

	fires := 0
	off := s.Watch(func() { fires++ })
	defer off()

	nodes, err := s.QueryAll("img")
	require.NoError(t, err)
	require.NoError(t, nodes[0].SetAttr("src", "/other.png"))
	assert.Equal(t, 1, fires)

	// Writing an identical value is not a mutation.
	require.NoError(t, nodes[0].SetAttr("src", "/other.png"))
	assert.Equal(t, 1, fires)

	// Untracked attributes do not fire.
	require.NoError(t, nodes[0].SetAttr("alt", "logo"))
	assert.Equal(t, 1, fires)
}

func TestRestrictedSurfaceRefusesIntrospection(t *testing.T) {
	s := NewRestrictedSurface()
	require.NoError(t, s.Write(docHTML))

	_, err := s.QueryAll("body")
	assert.ErrorIs(t, err, ErrRestricted)

	err = s.UpsertStyle("restyle-injected", "body{}")
	assert.ErrorIs(t, err, ErrRestricted)

	_, err = s.StyleRules()
	assert.ErrorIs(t, err, ErrRestricted)
}

func TestDocSurfaceReadyAfterWrite(t *testing.T) {
	s := NewDocSurface()
	select {
	case <-s.Ready():
		t.Fatal("ready before write")
	default:
	}

	require.NoError(t, s.Write("<html><body></body></html>"))
	select {
	case <-s.Ready():
	default:
		t.Fatal("not ready after write")
	}
}

func TestParseDeclsEdgeCases(t *testing.T) {
	decls := parseDecls("color: rgb(1, 2, 3); margin: 0;; : bad; empty:")
	require.Len(t, decls, 2)
	// Only the first colon separates name from value.
	assert.Equal(t, "color", decls[0].name)
	assert.Equal(t, "rgb(1, 2, 3)", decls[0].value)
	assert.Equal(t, "margin", decls[1].name)

	rendered := renderDecls(decls)
	assert.True(t, strings.Contains(rendered, "color: rgb(1, 2, 3)"))
}

func TestDocSurfaceRuleRewritePreservesAtRules(t *testing.T) {
	s := NewDocSurface()
	require.NoError(t, s.Write(docHTML))

	rules, err := s.StyleRules()
	require.NoError(t, err)
	require.NoError(t, rules[0].SetProperty("color", "#00ff00", true))

	html, err := s.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "@media (max-width: 600px) { body { color: red; } }")
	// Untouched sibling rules keep their original text.
	assert.Contains(t, html, ".hero { background-color: rgb(10, 20, 30); }")
}

func TestDocSurfaceRuleRewritePreservesCommentsAndImports(t *testing.T) {
	const page = `<html><head><style>@import url("base.css");
/* palette notes */
.a { color: #ffffff }
@font-face { font-family: Custom; src: url(custom.woff2); }
</style></head><body><p class="a">x</p></body></html>`

	s := NewDocSurface()
	require.NoError(t, s.Write(page))

	rules, err := s.StyleRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.NoError(t, rules[0].SetProperty("color", "#000000", true))

	html, err := s.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "color: #000000 !important")
	assert.Contains(t, html, `@import url("base.css");`)
	assert.Contains(t, html, "/* palette notes */")
	assert.Contains(t, html, "@font-face { font-family: Custom; src: url(custom.woff2); }")
}
