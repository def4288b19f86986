package clresolve

import (
	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/geo"
)

// BoxElement is an Element backed by a box the owner updates directly.
type BoxElement struct {
	ID  string
	Box *geo.Box

	Listeners Listeners
}

func NewBoxElement(id string, b *geo.Box) *BoxElement {
	return &BoxElement{ID: id, Box: b}
}

func (e *BoxElement) Key() string {
	return "#" + e.ID
}

func (e *BoxElement) Rect() *geo.Box {
	return e.Box.Copy()
}

func (e *BoxElement) AddListener(kind EventKind, fn func()) func() {
	return e.Listeners.Add(kind, fn)
}

// Handles resolves references carrying an Element as their handle, and id
// references against registered elements. Selectors are not supported.
type Handles struct {
	byID map[string]Element
}

func NewHandles(els ...*BoxElement) *Handles {
	h := &Handles{byID: make(map[string]Element)}
	for _, el := range els {
		h.Register(el.ID, el)
	}
	return h
}

func (h *Handles) Register(id string, el Element) {
	h.byID[id] = el
}

func (h *Handles) Unregister(id string) {
	delete(h.byID, id)
}

func (h *Handles) Resolve(ref cltarget.ElementRef) Element {
	if el, ok := ref.Handle.(Element); ok {
		return el
	}
	if ref.Handle != nil {
		return nil
	}
	id := ref.ID
	if id == "" && len(ref.Selector) > 1 && ref.Selector[0] == '#' {
		id = ref.Selector[1:]
	}
	if el, ok := h.byID[id]; ok {
		return el
	}
	return nil
}
