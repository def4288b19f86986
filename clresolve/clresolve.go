// Package clresolve maps element references to live elements whose rectangles
// are read fresh on every call.
package clresolve

import (
	"sort"

	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/geo"
)

// EventKind names a pointer or touch event an element can dispatch.
type EventKind string

const (
	PointerDown EventKind = "mousedown"
	PointerUp   EventKind = "mouseup"
	PointerMove EventKind = "mousemove"
	TouchStart  EventKind = "touchstart"
	TouchEnd    EventKind = "touchend"
	TouchMove   EventKind = "touchmove"
)

// InteractionEvents are the events the scheduler listens to on every
// participating element.
var InteractionEvents = []EventKind{PointerDown, PointerUp, PointerMove, TouchStart, TouchEnd, TouchMove}

func (k EventKind) IsDown() bool { return k == PointerDown || k == TouchStart }
func (k EventKind) IsUp() bool   { return k == PointerUp || k == TouchEnd }
func (k EventKind) IsMove() bool { return k == PointerMove || k == TouchMove }

// Element is a live view of a laid out element.
type Element interface {
	// Key identifies the underlying element. Two Elements with the same key
	// refer to the same element.
	Key() string
	// Rect returns the element's current bounding box in viewport coordinates
	// or nil when the element is no longer part of the layout.
	Rect() *geo.Box
	// AddListener registers fn for kind and returns a function removing it.
	AddListener(kind EventKind, fn func()) (remove func())
}

// Resolver resolves references. A nil Element means the element cannot be
// found right now, which is not an error: it may not be mounted yet.
type Resolver interface {
	Resolve(ref cltarget.ElementRef) Element
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ref cltarget.ElementRef) Element

func (f ResolverFunc) Resolve(ref cltarget.ElementRef) Element {
	return f(ref)
}

// Rect resolves ref and reads its rectangle. It returns nil when either step
// comes up empty.
func Rect(r Resolver, ref cltarget.ElementRef) *geo.Box {
	el := r.Resolve(ref)
	if el == nil {
		return nil
	}
	return el.Rect()
}

// Referenced resolves every element referenced by elements, sources and
// targets alike, deduplicated by key and sorted by key.
func Referenced(r Resolver, elements []cltarget.ConnectElement) []Element {
	byKey := make(map[string]Element)
	add := func(ref cltarget.ElementRef) {
		el := r.Resolve(ref)
		if el == nil {
			return
		}
		if _, ok := byKey[el.Key()]; !ok {
			byKey[el.Key()] = el
		}
	}
	for _, el := range elements {
		add(el.Element)
		for _, cw := range el.ConnectWith {
			add(cw.Target)
		}
	}

	out := make([]Element, 0, len(byKey))
	for _, el := range byKey {
		out = append(out, el)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}

// Listeners is a registry of event callbacks. It is not safe for concurrent use.
type Listeners struct {
	nextID int
	byKind map[EventKind]map[int]func()
}

func (l *Listeners) Add(kind EventKind, fn func()) (remove func()) {
	if l.byKind == nil {
		l.byKind = make(map[EventKind]map[int]func())
	}
	if l.byKind[kind] == nil {
		l.byKind[kind] = make(map[int]func())
	}
	id := l.nextID
	l.nextID++
	l.byKind[kind][id] = fn
	return func() {
		delete(l.byKind[kind], id)
	}
}

// Dispatch calls every listener for kind in registration order.
func (l *Listeners) Dispatch(kind EventKind) {
	fns := l.byKind[kind]
	ids := make([]int, 0, len(fns))
	for id := range fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := fns[id]; ok {
			fn()
		}
	}
}

// Len returns the number of registered listeners across all kinds.
func (l *Listeners) Len() int {
	n := 0
	for _, fns := range l.byKind {
		n += len(fns)
	}
	return n
}
