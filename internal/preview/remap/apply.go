package remap

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/logging"
	"github.com/previewlab/restyle/internal/preview/surface"
	"github.com/previewlab/restyle/internal/shared/color"
)

// plainColorProps hold a single color value and are matched whole.
var plainColorProps = []string{
	"color",
	"background-color",
	"border-top-color",
	"border-right-color",
	"border-bottom-color",
	"border-left-color",
	"border-color",
	"outline-color",
	"text-decoration-color",
	"column-rule-color",
}

// compositeColorProps embed color tokens inside a larger value and are
// rewritten token-wise.
var compositeColorProps = []string{
	"background",
	"box-shadow",
	"text-shadow",
}

var svgColorAttrs = []string{"fill", "stroke", "stop-color"}

var colorTokenPattern = regexp.MustCompile(`#[0-9a-fA-F]{3,8}\b|rgba?\([^)]*\)`)

// Applier rewrites a live surface's colors according to a mapping.
// Matching is always against the current computed value, so re-applying
// the same mapping is a no-op.
type Applier struct {
	log *logging.Logger
}

// NewApplier creates an applier.
func NewApplier(log *logging.Logger) *Applier {
	if log == nil {
		log = logging.NewNop()
	}
	return &Applier{log: log.Component("remap")}
}

// Apply rewrites stylesheet rules, element computed styles, and embedded
// vector-graphic color attributes in that order. Original-role surfaces
// are never touched; a restricted surface surfaces its error.
func (a *Applier) Apply(h surface.Handle, role surface.Role, m *Mapping) error {
	if role == surface.RoleOriginal || m.Len() == 0 {
		return nil
	}

	if err := a.applyToRules(h, m); err != nil {
		return err
	}
	if err := a.applyToElements(h, m); err != nil {
		return err
	}
	return a.applyToVector(h, m)
}

func (a *Applier) applyToRules(h surface.Handle, m *Mapping) error {
	rules, err := h.StyleRules()
	if err != nil {
		return err
	}
	for _, rule := range rules {
		for _, prop := range plainColorProps {
			v, ok := rule.Property(prop)
			if !ok {
				continue
			}
			hex, ok := color.Normalize(v)
			if !ok {
				continue
			}
			if tgt, ok := m.Get(hex); ok && tgt != hex {
				if err := rule.SetProperty(prop, tgt, true); err != nil {
					return err
				}
			}
		}
		for _, prop := range compositeColorProps {
			v, ok := rule.Property(prop)
			if !ok {
				continue
			}
			if nv, changed := rewriteTokens(v, m); changed {
				if err := rule.SetProperty(prop, nv, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (a *Applier) applyToElements(h surface.Handle, m *Mapping) error {
	nodes, err := h.QueryAll("*")
	if err != nil {
		return err
	}
	touched := 0
	for _, n := range nodes {
		style, err := h.ComputedStyleOf(n)
		if err != nil {
			return err
		}
		for _, prop := range plainColorProps {
			v, ok := style[prop]
			if !ok {
				continue
			}
			hex, ok := color.Normalize(v)
			if !ok {
				continue
			}
			if tgt, ok := m.Get(hex); ok && tgt != hex {
				if err := n.SetStyleProperty(prop, tgt, true); err != nil {
					return err
				}
				touched++
			}
		}
		for _, prop := range compositeColorProps {
			v, ok := style[prop]
			if !ok {
				continue
			}
			if nv, changed := rewriteTokens(v, m); changed {
				if err := n.SetStyleProperty(prop, nv, true); err != nil {
					return err
				}
				touched++
			}
		}
	}
	a.log.Debug("remap applied", zap.Int("declarations", touched))
	return nil
}

func (a *Applier) applyToVector(h surface.Handle, m *Mapping) error {
	nodes, err := h.QueryAll("svg, svg *")
	if err != nil {
		return err
	}
	for _, n := range nodes {
		for _, attr := range svgColorAttrs {
			v, ok := n.Attr(attr)
			if !ok {
				continue
			}
			hex, ok := color.Normalize(v)
			if !ok {
				continue
			}
			if tgt, ok := m.Get(hex); ok && tgt != hex {
				if err := n.SetAttr(attr, tgt); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// RuleOverrides builds the injectable override rules for every stylesheet
// declaration whose current value matches a mapping key. The result feeds
// the colorRemap layer of the injection pipeline, so a surface that
// reloads its content converges back to the remapped state on the next
// re-injection.
func (a *Applier) RuleOverrides(h surface.Handle, m *Mapping) (string, error) {
	if m.Len() == 0 {
		return "", nil
	}
	rules, err := h.StyleRules()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, rule := range rules {
		var decls []string
		for _, prop := range plainColorProps {
			v, ok := rule.Property(prop)
			if !ok {
				continue
			}
			hex, ok := color.Normalize(v)
			if !ok {
				continue
			}
			if tgt, ok := m.Get(hex); ok && tgt != hex {
				decls = append(decls, prop+": "+tgt+" !important")
			}
		}
		for _, prop := range compositeColorProps {
			v, ok := rule.Property(prop)
			if !ok {
				continue
			}
			if nv, changed := rewriteTokens(v, m); changed {
				decls = append(decls, prop+": "+nv+" !important")
			}
		}
		if len(decls) > 0 {
			b.WriteString(rule.Selector() + " { " + strings.Join(decls, "; ") + "; }\n")
		}
	}
	return b.String(), nil
}

// rewriteTokens replaces every mapped color token inside a composite value.
func rewriteTokens(v string, m *Mapping) (string, bool) {
	changed := false
	out := colorTokenPattern.ReplaceAllStringFunc(v, func(tok string) string {
		hex, ok := color.Normalize(strings.TrimSpace(tok))
		if !ok {
			return tok
		}
		tgt, ok := m.Get(hex)
		if !ok || tgt == hex {
			return tok
		}
		changed = true
		return tgt
	})
	return out, changed
}
