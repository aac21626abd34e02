package proxy

import (
	"github.com/microcosm-cc/bluemonday"
)

// inertPolicy keeps document structure, styling, and media while
// dropping active content. Event handler attributes are excluded by
// never being allowed.
var inertPolicy = buildInertPolicy()

func buildInertPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	// Previews must keep the page's look: styling stays in.
	p.AllowElements("html", "head", "body", "title", "style", "base",
		"link", "meta", "span", "div", "section", "header", "footer",
		"nav", "main", "aside", "figure", "figcaption", "picture",
		"source", "video", "audio", "svg", "path", "circle", "rect",
		"g", "defs", "use", "button", "form", "input", "label",
		"select", "option", "textarea")
	p.AllowAttrs("style", "class", "id").Globally()
	p.AllowAttrs("rel", "href", "type", "media", "sizes").OnElements("link")
	p.AllowAttrs("href").OnElements("base")
	p.AllowAttrs("charset", "name", "content", "http-equiv", "property").OnElements("meta")
	p.AllowAttrs("src", "srcset", "type", "media", "poster", "controls", "loop", "muted").
		OnElements("source", "video", "audio")
	p.AllowAttrs("srcset", "sizes", "loading", "width", "height", "alt").OnElements("img")
	p.AllowAttrs("viewBox", "viewbox", "xmlns", "width", "height", "fill", "stroke",
		"stroke-width", "d", "cx", "cy", "r", "x", "y", "rx", "ry", "points").
		OnElements("svg", "path", "circle", "rect", "g", "defs", "use", "polygon", "polyline", "line", "ellipse")
	p.AllowAttrs("type", "name", "value", "placeholder", "checked", "disabled", "selected").
		OnElements("input", "button", "select", "option", "textarea")
	p.AllowAttrs("action", "method").OnElements("form")

	p.AllowURLSchemes("http", "https", "data", "blob", "mailto", "tel")
	p.AllowDataURIImages()
	p.AllowRelativeURLs(true)

	return p
}

// stripActiveContent removes scripts and event handlers from processed
// markup, keeping the document visually intact.
func stripActiveContent(html string) string {
	return inertPolicy.Sanitize(html)
}
