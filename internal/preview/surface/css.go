package surface

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// decl is one CSS declaration. The value keeps any trailing !important
// marker so round-tripping an inline style preserves priority.
type decl struct {
	name  string
	value string
}

// parseDecls splits a declaration block on semicolons. Values containing
// parentheses (url(...), rgb(...)) pass through untouched because only the
// first colon separates name from value.
func parseDecls(block string) []decl {
	var decls []decl
	for _, part := range strings.Split(block, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, ":")
		if idx <= 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(part[:idx]))
		value := strings.TrimSpace(part[idx+1:])
		if name == "" || value == "" {
			continue
		}
		decls = append(decls, decl{name: name, value: value})
	}
	return decls
}

func renderDecls(decls []decl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.name+": "+d.value)
	}
	return strings.Join(parts, "; ")
}

// docSheet is the parsed form of one <style> element. Rules share the
// sheet so a single SetProperty re-serializes the whole element once.
type docSheet struct {
	sel      *goquery.Selection
	segments []sheetSegment
	rules    []*docRule
}

// sheetSegment is one top-level statement span of the stylesheet text.
// Non-rule spans (at-rule blocks, comments, @import lines) round-trip
// verbatim; rule spans keep their raw text until first rewritten.
type sheetSegment struct {
	raw  string
	rule *docRule
}

type docRule struct {
	sheet    *docSheet
	selector string
	decls    []decl
	raw      string
	lead     string
	dirty    bool
}

// parseSheet splits a stylesheet into top-level segments. Plain style
// rules become rewritable docRules; at-rules (@media, @keyframes, ...)
// and comments are carried as opaque spans so rewriting one rule never
// disturbs the rest of the sheet.
func parseSheet(sel *goquery.Selection) *docSheet {
	sheet := &docSheet{sel: sel}
	css := sel.Text()

	depth := 0
	start := 0
	selEnd := -1
	for i := 0; i < len(css); i++ {
		switch css[i] {
		case '/':
			if i+1 < len(css) && css[i+1] == '*' {
				end := strings.Index(css[i+2:], "*/")
				if end < 0 {
					// Unterminated comment swallows the tail
					i = len(css)
					break
				}
				i += 2 + end + 1
			}
		case '{':
			if depth == 0 {
				selEnd = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && selEnd >= 0 {
					sheet.addSegment(css, start, selEnd, i+1)
					start = i + 1
					selEnd = -1
				}
			}
		case ';':
			// Blockless statement (@import, @charset)
			if depth == 0 && selEnd < 0 {
				sheet.segments = append(sheet.segments, sheetSegment{raw: css[start : i+1]})
				start = i + 1
			}
		}
	}
	if start < len(css) {
		sheet.segments = append(sheet.segments, sheetSegment{raw: css[start:]})
	}
	return sheet
}

func (s *docSheet) addSegment(css string, start, selEnd, end int) {
	raw := css[start:end]
	selector := strings.TrimSpace(stripComments(css[start:selEnd]))
	if selector == "" || strings.HasPrefix(selector, "@") {
		s.segments = append(s.segments, sheetSegment{raw: raw})
		return
	}

	rule := &docRule{
		sheet:    s,
		selector: selector,
		decls:    parseDecls(stripComments(css[selEnd+1 : end-1])),
		raw:      raw,
		lead:     raw[:len(raw)-len(strings.TrimLeft(raw, " \t\r\n"))],
	}
	s.segments = append(s.segments, sheetSegment{raw: raw, rule: rule})
	s.rules = append(s.rules, rule)
}

func stripComments(s string) string {
	for {
		open := strings.Index(s, "/*")
		if open < 0 {
			return s
		}
		length := strings.Index(s[open+2:], "*/")
		if length < 0 {
			return s[:open]
		}
		s = s[:open] + s[open+2+length+2:]
	}
}

// sync re-serializes the element. Untouched segments keep their original
// text byte for byte; only rewritten rules render from parsed form.
func (s *docSheet) sync() {
	var b strings.Builder
	for _, seg := range s.segments {
		if seg.rule == nil || !seg.rule.dirty {
			b.WriteString(seg.raw)
			continue
		}
		r := seg.rule
		b.WriteString(r.lead)
		b.WriteString(r.selector)
		b.WriteString(" { ")
		b.WriteString(renderDecls(r.decls))
		b.WriteString(" }")
	}
	s.sel.SetText(b.String())
}

func (r *docRule) Selector() string {
	return r.selector
}

func (r *docRule) Property(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, d := range r.decls {
		if d.name == name {
			v := strings.TrimSpace(strings.TrimSuffix(d.value, "!important"))
			return v, true
		}
	}
	return "", false
}

func (r *docRule) SetProperty(name, value string, important bool) error {
	name = strings.ToLower(name)
	rendered := value
	if important {
		rendered += " !important"
	}

	found := false
	for i, d := range r.decls {
		if d.name == name {
			r.decls[i].value = rendered
			found = true
			break
		}
	}
	if !found {
		r.decls = append(r.decls, decl{name: name, value: rendered})
	}
	r.dirty = true
	r.sheet.sync()
	return nil
}
