package surface

import "errors"

// Role distinguishes the styled preview from its untouched counterpart in
// comparison mode.
type Role string

const (
	// RoleModified surfaces receive style injection and remapping.
	RoleModified Role = "modified"

	// RoleOriginal surfaces are reference copies and must never be
	// written to by the style pipeline.
	RoleOriginal Role = "original"
)

// Offset is a scroll position in CSS pixels.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ErrRestricted marks a surface whose document cannot be introspected
// (cross-origin). Callers degrade: the surface keeps rendering, but style
// injection, extraction and remapping are disabled for it.
var ErrRestricted = errors.New("surface is cross-origin restricted")

// Node is one element of a surface's rendered tree, exposed through the
// capability interface so repair and remap logic never touch a live DOM
// directly.
type Node interface {
	// Tag returns the lowercase element name.
	Tag() string

	// Attr returns an attribute value and whether it is present.
	Attr(name string) (string, bool)

	// SetAttr writes an attribute.
	SetAttr(name, value string) error

	// SetStyleProperty sets one inline style declaration, optionally
	// with !important priority, preserving unrelated declarations.
	SetStyleProperty(name, value string, important bool) error
}

// StyleRule is one rule of an accessible stylesheet. The host computes the
// cascade; this interface only allows matching and in-place rewriting of
// declaration values.
type StyleRule interface {
	Selector() string
	Property(name string) (string, bool)
	SetProperty(name, value string, important bool) error
}

// Handle abstracts one live rendering surface. Production handles wrap a
// browser-hosted document reached over the UI relay; DocSurface implements
// the same contract in-process for previews and tests.
type Handle interface {
	// Write replaces the surface's content. Called at most once per
	// content load per surface; the manager's ledger enforces that.
	Write(html string) error

	// QueryAll returns every element matching a CSS selector.
	QueryAll(selector string) ([]Node, error)

	// ComputedStyleOf returns the host-computed style of a node as a
	// property name to value map.
	ComputedStyleOf(n Node) (map[string]string, error)

	// UpsertStyle installs the reserved-id style element, replacing any
	// previous element with the same id. RemoveStyle deletes it. These
	// are the only head mutations the injection pipeline may perform.
	UpsertStyle(id, css string) error
	RemoveStyle(id string) error

	// StyleRules exposes the rules of every accessible stylesheet.
	StyleRules() ([]StyleRule, error)

	// ScrollOffset and SetScrollOffset read and write the scroll
	// position. A programmatic write still fires OnScroll listeners,
	// exactly like a host document.
	ScrollOffset() (Offset, error)
	SetScrollOffset(Offset) error

	// OnScroll registers a scroll listener; the returned func removes it.
	OnScroll(fn func(Offset)) (remove func())

	// Watch registers a structural-change listener fired when nodes are
	// added or src/href/srcset/style attributes change.
	Watch(fn func()) (remove func())

	// Ready is closed once the surface has content and its subresources
	// have settled enough to introspect.
	Ready() <-chan struct{}
}
