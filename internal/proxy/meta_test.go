package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMeta(t *testing.T) {
	html := `<html><head>
		<title> Acme Widgets </title>
		<meta name="description" content="  Widgets for every occasion.  ">
	</head><body></body></html>`

	m := extractMeta(html)
	assert.Equal(t, "Acme Widgets", m.Title)
	assert.Equal(t, "Widgets for every occasion.", m.Description)
}

func TestExtractMetaOpenGraphFallback(t *testing.T) {
	html := `<html><head>
		<title>Acme</title>
		<meta property="og:description" content="Social summary">
	</head><body></body></html>`

	m := extractMeta(html)
	assert.Equal(t, "Social summary", m.Description)
}

func TestExtractMetaMissing(t *testing.T) {
	m := extractMeta(`<html><body><p>bare page</p></body></html>`)
	assert.Empty(t, m.Title)
	assert.Empty(t, m.Description)
}
