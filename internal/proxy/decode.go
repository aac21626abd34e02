package proxy

import (
	"bytes"
	"io"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// decodeHTML converts a response body to UTF-8. A declared charset in
// the Content-Type header or a meta tag wins; undeclared bodies go
// through statistical detection, and undecodable ones pass through raw.
func decodeHTML(raw []byte, contentType string) string {
	if strings.Contains(strings.ToLower(contentType), "charset=") || hasMetaCharset(raw) {
		if decoded, ok := decodeWith(raw, func(r io.Reader) (io.Reader, error) {
			return charset.NewReader(r, contentType)
		}); ok {
			return decoded
		}
	}

	if res, err := chardet.NewTextDetector().DetectBest(raw); err == nil && res != nil {
		if decoded, ok := decodeWith(raw, func(r io.Reader) (io.Reader, error) {
			return charset.NewReaderLabel(res.Charset, r)
		}); ok {
			return decoded
		}
	}

	return string(raw)
}

// hasMetaCharset checks the sniffable prefix for an in-document
// encoding declaration.
func hasMetaCharset(raw []byte) bool {
	head := raw
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("charset"))
}

func decodeWith(raw []byte, wrap func(io.Reader) (io.Reader, error)) (string, bool) {
	reader, err := wrap(bytes.NewReader(raw))
	if err != nil {
		return "", false
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
