package clresolve

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/geo"
)

// Layout attributes read from document elements.
const (
	AttrX      = "data-x"
	AttrY      = "data-y"
	AttrWidth  = "data-width"
	AttrHeight = "data-height"
)

// positioned matches every element carrying a full rectangle.
var positioned = fmt.Sprintf("[%s][%s][%s][%s]", AttrX, AttrY, AttrWidth, AttrHeight)

// Document is an HTML layout document. Elements are positioned with data-x,
// data-y, data-width and data-height attributes and looked up with CSS
// selectors. Only elements with an id resolve, so every element has exactly one
// key, "#" + id, however it was selected. Listeners are keyed by it and survive
// Replace.
//
// Document is not safe for concurrent use.
type Document struct {
	doc       *goquery.Document
	listeners map[string]*Listeners
}

func ParseDocument(r io.Reader) (_ *Document, err error) {
	defer xdefer.Errorf(&err, "failed to parse layout document")

	doc, err := parseHTML(r)
	if err != nil {
		return nil, err
	}
	return &Document{
		doc:       doc,
		listeners: make(map[string]*Listeners),
	}, nil
}

func parseHTML(r io.Reader) (*goquery.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Replace swaps in a new version of the document and returns the keys of
// elements whose rectangle changed, appeared or disappeared.
func (d *Document) Replace(r io.Reader) (changed []string, err error) {
	defer xdefer.Errorf(&err, "failed to reload layout document")

	doc, err := parseHTML(r)
	if err != nil {
		return nil, err
	}
	before := d.rects()
	d.doc = doc
	after := d.rects()

	for k, b := range before {
		if !b.Equals(after[k]) {
			changed = append(changed, k)
		}
	}
	for k := range after {
		if _, ok := before[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

func (d *Document) rects() map[string]*geo.Box {
	m := make(map[string]*geo.Box)
	d.doc.Find(positioned).Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && id != "" {
			m["#"+id] = selectionRect(s)
		}
	})
	return m
}

// Resolve implements Resolver. Live handles are not supported.
func (d *Document) Resolve(ref cltarget.ElementRef) Element {
	var selector string
	switch {
	case ref.Handle != nil:
		return nil
	case ref.ID != "":
		selector = idSelector(ref.ID)
	default:
		selector = ref.Selector
	}
	if selector == "" {
		return nil
	}

	s, ok := d.find(selector)
	if !ok {
		return nil
	}
	id, ok := s.Attr("id")
	if !ok || id == "" {
		return nil
	}
	return &docElement{d: d, key: "#" + id, selector: idSelector(id)}
}

// find returns the first match. Invalid selectors match nothing.
func (d *Document) find(selector string) (*goquery.Selection, bool) {
	s := d.doc.Find(selector).First()
	return s, s.Length() > 0
}

// SetRect moves the element with key, as a browser drag does. It reports whether
// the element exists.
func (d *Document) SetRect(key string, b *geo.Box) bool {
	if !strings.HasPrefix(key, "#") {
		return false
	}
	s, ok := d.find(idSelector(strings.TrimPrefix(key, "#")))
	if !ok || b == nil || b.TopLeft == nil {
		return false
	}
	s.SetAttr(AttrX, formatFloat(b.TopLeft.X))
	s.SetAttr(AttrY, formatFloat(b.TopLeft.Y))
	s.SetAttr(AttrWidth, formatFloat(b.Width))
	s.SetAttr(AttrHeight, formatFloat(b.Height))
	return true
}

// Dispatch delivers an event to the listeners of the element with key.
func (d *Document) Dispatch(key string, kind EventKind) {
	if l, ok := d.listeners[key]; ok {
		l.Dispatch(kind)
	}
}

// ListenerCount returns how many listeners are registered on key.
func (d *Document) ListenerCount(key string) int {
	if l, ok := d.listeners[key]; ok {
		return l.Len()
	}
	return 0
}

// Viewport returns the size declared on <body> with data-width and
// data-height, falling back to the bounding box of every positioned element.
func (d *Document) Viewport() (width, height float64) {
	body := d.doc.Find("body").First()
	w, werr := attrFloat(body, AttrWidth)
	h, herr := attrFloat(body, AttrHeight)
	if werr == nil && herr == nil && w > 0 && h > 0 {
		return w, h
	}
	d.doc.Find(positioned).Each(func(_ int, s *goquery.Selection) {
		if b := selectionRect(s); b != nil {
			width = math.Max(width, b.Right())
			height = math.Max(height, b.Bottom())
		}
	})
	return width, height
}

// HTML renders the current document, including positions set with SetRect.
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}

type docElement struct {
	d        *Document
	key      string
	selector string
}

func (e *docElement) Key() string {
	return e.key
}

// Rect re-queries the document so a Replace or SetRect is visible immediately.
func (e *docElement) Rect() *geo.Box {
	s, ok := e.d.find(e.selector)
	if !ok {
		return nil
	}
	return selectionRect(s)
}

func (e *docElement) AddListener(kind EventKind, fn func()) func() {
	l, ok := e.d.listeners[e.key]
	if !ok {
		l = &Listeners{}
		e.d.listeners[e.key] = l
	}
	return l.Add(kind, fn)
}

// selectionRect returns nil for elements missing a coordinate or hidden from
// layout.
func selectionRect(s *goquery.Selection) *geo.Box {
	if _, hidden := s.Attr("hidden"); hidden {
		return nil
	}
	if style, ok := s.Attr("style"); ok && strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
		return nil
	}
	x, err := attrFloat(s, AttrX)
	if err != nil {
		return nil
	}
	y, err := attrFloat(s, AttrY)
	if err != nil {
		return nil
	}
	w, err := attrFloat(s, AttrWidth)
	if err != nil {
		return nil
	}
	h, err := attrFloat(s, AttrHeight)
	if err != nil {
		return nil
	}
	return geo.NewBox(geo.NewPoint(x, y), w, h)
}

func attrFloat(s *goquery.Selection, name string) (float64, error) {
	v, ok := s.Attr(name)
	if !ok {
		return 0, fmt.Errorf("missing %s", name)
	}
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func idSelector(id string) string {
	return fmt.Sprintf(`[id="%s"]`, strings.ReplaceAll(id, `"`, `\"`))
}
