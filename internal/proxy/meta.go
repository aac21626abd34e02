package proxy

import (
	"strings"

	"github.com/antchfx/htmlquery"
)

// Meta is descriptive page metadata shown alongside the preview.
type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// extractMeta pulls title and description from the decoded upstream
// document, before any rewriting touches it.
func extractMeta(html string) Meta {
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return Meta{}
	}

	var m Meta
	if n := htmlquery.FindOne(doc, "//title"); n != nil {
		m.Title = strings.TrimSpace(htmlquery.InnerText(n))
	}
	if n := htmlquery.FindOne(doc, "//meta[@name='description']"); n != nil {
		m.Description = strings.TrimSpace(htmlquery.SelectAttr(n, "content"))
	}
	if m.Description == "" {
		if n := htmlquery.FindOne(doc, "//meta[@property='og:description']"); n != nil {
			m.Description = strings.TrimSpace(htmlquery.SelectAttr(n, "content"))
		}
	}
	return m
}
