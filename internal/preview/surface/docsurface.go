package surface

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// DocSurface is an in-process Handle backed by a goquery document. It
// implements the full surface contract without a rendering host: computed
// style is the element's inline declarations (the browser host computes
// the real cascade), scroll state is a tracked offset, and structural
// changes fire registered watchers synchronously.
type DocSurface struct {
	mu         sync.Mutex
	doc        *goquery.Document
	restricted bool
	scroll     Offset

	scrollSubs map[int]func(Offset)
	watchSubs  map[int]func()
	nextSub    int

	ready     chan struct{}
	readyOnce sync.Once
}

// NewDocSurface creates an empty, writable surface.
func NewDocSurface() *DocSurface {
	return &DocSurface{
		scrollSubs: make(map[int]func(Offset)),
		watchSubs:  make(map[int]func()),
		ready:      make(chan struct{}),
	}
}

// NewRestrictedSurface creates a surface whose document refuses
// introspection, mimicking a cross-origin frame.
func NewRestrictedSurface() *DocSurface {
	s := NewDocSurface()
	s.restricted = true
	return s
}

// Write parses html as the surface's new content.
func (s *DocSurface) Write(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse surface content: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	s.notifyWatch()
	return nil
}

// Ready is closed after the first successful Write.
func (s *DocSurface) Ready() <-chan struct{} {
	return s.ready
}

// QueryAll returns every element matching the selector.
func (s *DocSurface) QueryAll(selector string) ([]Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restricted {
		return nil, ErrRestricted
	}
	if s.doc == nil {
		return nil, nil
	}

	sel := s.doc.Find(selector)
	nodes := make([]Node, 0, sel.Length())
	for i := 0; i < sel.Length(); i++ {
		nodes = append(nodes, &docNode{surf: s, sel: sel.Eq(i)})
	}
	return nodes, nil
}

// ComputedStyleOf returns the node's inline declarations. A browser host
// would return the cascaded result; inline style is the slice of it this
// in-process surface can know.
func (s *DocSurface) ComputedStyleOf(n Node) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restricted {
		return nil, ErrRestricted
	}

	dn, ok := n.(*docNode)
	if !ok {
		return nil, fmt.Errorf("node does not belong to this surface")
	}
	style, _ := dn.sel.Attr("style")
	// Computed values never carry priority markers.
	props := map[string]string{}
	for _, d := range parseDecls(style) {
		props[d.name] = strings.TrimSpace(strings.TrimSuffix(d.value, "!important"))
	}
	return props, nil
}

// UpsertStyle replaces the style element with the given reserved id,
// appending a fresh one to head.
func (s *DocSurface) UpsertStyle(id, css string) error {
	s.mu.Lock()
	if s.restricted {
		s.mu.Unlock()
		return ErrRestricted
	}
	if s.doc == nil {
		s.mu.Unlock()
		return fmt.Errorf("surface has no content")
	}

	s.doc.Find(styleSelector(id)).Remove()

	head := s.doc.Find("head")
	if head.Length() == 0 {
		s.doc.Find("html").PrependHtml("<head></head>")
		head = s.doc.Find("head")
	}
	head.AppendHtml(fmt.Sprintf("<style id=%q data-restyle=\"1\">%s</style>", id, css))
	s.mu.Unlock()

	s.notifyWatch()
	return nil
}

// RemoveStyle deletes the reserved style element if present.
func (s *DocSurface) RemoveStyle(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restricted {
		return ErrRestricted
	}
	if s.doc == nil {
		return nil
	}
	s.doc.Find(styleSelector(id)).Remove()
	return nil
}

// StyleCount reports how many style elements carry the reserved id.
func (s *DocSurface) StyleCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0
	}
	return s.doc.Find(styleSelector(id)).Length()
}

// StyleRules parses every page stylesheet into rewritable rules. Injected
// restyle blocks are excluded so the remapper never chases its own output.
func (s *DocSurface) StyleRules() ([]StyleRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restricted {
		return nil, ErrRestricted
	}
	if s.doc == nil {
		return nil, nil
	}

	var rules []StyleRule
	s.doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		if _, injected := sel.Attr("data-restyle"); injected {
			return
		}
		sheet := parseSheet(sel)
		for _, r := range sheet.rules {
			rules = append(rules, r)
		}
	})
	return rules, nil
}

// ScrollOffset returns the tracked scroll position.
func (s *DocSurface) ScrollOffset() (Offset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll, nil
}

// SetScrollOffset moves the scroll position and fires scroll listeners,
// matching host behavior where programmatic scrolls also emit events.
func (s *DocSurface) SetScrollOffset(off Offset) error {
	if off.X < 0 {
		off.X = 0
	}
	if off.Y < 0 {
		off.Y = 0
	}

	s.mu.Lock()
	s.scroll = off
	subs := make([]func(Offset), 0, len(s.scrollSubs))
	for _, fn := range s.scrollSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(off)
	}
	return nil
}

// OnScroll registers a scroll listener.
func (s *DocSurface) OnScroll(fn func(Offset)) (remove func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.scrollSubs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.scrollSubs, id)
		s.mu.Unlock()
	}
}

// Watch registers a structural-change listener.
func (s *DocSurface) Watch(fn func()) (remove func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.watchSubs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchSubs, id)
		s.mu.Unlock()
	}
}

// HTML renders the current document, for assertions and debugging.
func (s *DocSurface) HTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", nil
	}
	return s.doc.Html()
}

func (s *DocSurface) notifyWatch() {
	s.mu.Lock()
	subs := make([]func(), 0, len(s.watchSubs))
	for _, fn := range s.watchSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func styleSelector(id string) string {
	return fmt.Sprintf("style[id=%q]", id)
}

// watchedAttrs mirror the attribute filter of the structural-change
// observer: mutations to these re-run asset repair.
var watchedAttrs = map[string]bool{
	"src":    true,
	"href":   true,
	"srcset": true,
	"style":  true,
}

type docNode struct {
	surf *DocSurface
	sel  *goquery.Selection
}

func (n *docNode) Tag() string {
	return goquery.NodeName(n.sel)
}

func (n *docNode) Attr(name string) (string, bool) {
	n.surf.mu.Lock()
	defer n.surf.mu.Unlock()
	return n.sel.Attr(name)
}

func (n *docNode) SetAttr(name, value string) error {
	n.surf.mu.Lock()
	if current, ok := n.sel.Attr(name); ok && current == value {
		n.surf.mu.Unlock()
		return nil
	}
	n.sel.SetAttr(name, value)
	n.surf.mu.Unlock()

	if watchedAttrs[name] {
		n.surf.notifyWatch()
	}
	return nil
}

func (n *docNode) SetStyleProperty(name, value string, important bool) error {
	n.surf.mu.Lock()
	style, _ := n.sel.Attr("style")
	decls := parseDecls(style)

	rendered := value
	if important {
		rendered += " !important"
	}

	replaced := false
	for i, d := range decls {
		if d.name == name {
			decls[i].value = rendered
			replaced = true
			break
		}
	}
	if !replaced {
		decls = append(decls, decl{name: name, value: rendered})
	}
	n.sel.SetAttr("style", renderDecls(decls))
	n.surf.mu.Unlock()

	n.surf.notifyWatch()
	return nil
}
