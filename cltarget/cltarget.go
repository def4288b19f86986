// Package cltarget holds the data model shared by every stage of a recompute
// pass: connection descriptors going in and renderable paths coming out.
package cltarget

import (
	"encoding/json"
	"fmt"
	"strings"

	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/connectlines/lib/color"
	"oss.terrastruct.com/connectlines/lib/geo"
	"oss.terrastruct.com/connectlines/lib/go2"
)

// Edge selects the side of the source box a route leaves from.
type Edge string

const (
	EdgeAuto   Edge = "auto"
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
	EdgeLeft   Edge = "left"
	EdgeRight  Edge = "right"
)

var Edges = []Edge{EdgeAuto, EdgeTop, EdgeBottom, EdgeLeft, EdgeRight}

// Side returns the geo side for an explicit edge and NONE for auto.
func (e Edge) Side() geo.Orientation {
	switch e {
	case EdgeTop:
		return geo.Top
	case EdgeBottom:
		return geo.Bottom
	case EdgeLeft:
		return geo.Left
	case EdgeRight:
		return geo.Right
	}
	return geo.NONE
}

func (e Edge) IsAuto() bool {
	return e == EdgeAuto || e == ""
}

// Stroke is the visual line style of a connection.
type Stroke string

const (
	StrokeSolid  Stroke = "solid"
	StrokeDashed Stroke = "dashed"
)

func (s Stroke) IsDashed() bool {
	return s == StrokeDashed
}

// ElementRef points at an element by id, by CSS selector, or by a live handle
// that a resolver recognizes. The first non-empty field wins in that order:
// Handle, ID, Selector.
type ElementRef struct {
	ID       string      `json:"id,omitempty"`
	Selector string      `json:"selector,omitempty"`
	Handle   interface{} `json:"-"`
}

func (r ElementRef) IsZero() bool {
	return r.Handle == nil && r.ID == "" && r.Selector == ""
}

func (r ElementRef) String() string {
	switch {
	case r.Handle != nil:
		return fmt.Sprintf("handle(%v)", r.Handle)
	case r.ID != "":
		return "#" + r.ID
	}
	return r.Selector
}

// UnmarshalJSON also accepts a bare string: "#id" style strings and anything
// else are treated as selectors.
func (r *ElementRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = ElementRef{Selector: s}
		return nil
	}
	type plain ElementRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = ElementRef(p)
	return nil
}

// ConnectWith is one outgoing connection of a ConnectElement.
type ConnectWith struct {
	Target ElementRef `json:"target"`
	Color  string     `json:"color,omitempty"`
	Edge   Edge       `json:"edge,omitempty"`
	Stroke Stroke     `json:"stroke,omitempty"`
}

// ConnectElement is a caller owned descriptor. Recompute passes only read it.
type ConnectElement struct {
	Element     ElementRef    `json:"element"`
	ConnectWith []ConnectWith `json:"connectWith"`
}

// ToEntry is a resolved connection target.
type ToEntry struct {
	Rect   *geo.Box `json:"rect"`
	Color  string   `json:"color,omitempty"`
	Edge   Edge     `json:"edge"`
	Stroke Stroke   `json:"stroke"`
}

// GroupedConnection is a resolved source with its resolvable targets.
type GroupedConnection struct {
	From *geo.Box  `json:"from"`
	To   []ToEntry `json:"to"`
}

// PathPoint is a single renderable connection.
type PathPoint struct {
	D      string   `json:"d"`
	Rect   *geo.Box `json:"rect"`
	Color  string   `json:"color,omitempty"`
	Edge   Edge     `json:"edge"`
	Stroke Stroke   `json:"stroke"`
}

// Snapshot is the result of one recompute pass. It is never mutated after it is
// published.
type Snapshot struct {
	Pass   uint64      `json:"pass"`
	Paths  []PathPoint `json:"paths"`
	Colors []string    `json:"colors"`
}

// Colors returns every color configured across elements plus the default
// color, deduplicated by the color they render as. Order follows first use.
func Colors(elements []ConnectElement) []string {
	var colors []string
	for _, el := range elements {
		for _, cw := range el.ConnectWith {
			if cw.Color != "" {
				colors = append(colors, cw.Color)
			}
		}
	}
	colors = append(colors, color.Default)
	return go2.UniqueBy(colors, color.Key)
}

// Normalize fills defaulted fields in place: empty edges become auto and
// empty strokes become solid.
func (cw *ConnectWith) Normalize() {
	if cw.Edge == "" {
		cw.Edge = EdgeAuto
	}
	if cw.Stroke == "" {
		cw.Stroke = StrokeSolid
	}
}

func (cw ConnectWith) validate() error {
	if cw.Target.IsZero() {
		return fmt.Errorf("target must set id or selector")
	}
	if !go2.Contains(Edges, cw.Edge) {
		return fmt.Errorf("unknown edge %q (expected one of %s)", cw.Edge, edgeList())
	}
	if cw.Stroke != StrokeSolid && cw.Stroke != StrokeDashed {
		return fmt.Errorf("unknown stroke %q (expected solid or dashed)", cw.Stroke)
	}
	return nil
}

func edgeList() string {
	strs := make([]string, 0, len(Edges))
	for _, e := range Edges {
		strs = append(strs, string(e))
	}
	return strings.Join(strs, ", ")
}

// ParseElements decodes a JSON descriptor list, either a bare array or an
// object with an "elements" array, and validates it.
func ParseElements(b []byte) (_ []ConnectElement, err error) {
	defer xdefer.Errorf(&err, "failed to parse connect elements")

	var elements []ConnectElement
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "{") {
		var doc struct {
			Elements []ConnectElement `json:"elements"`
		}
		err = json.Unmarshal(b, &doc)
		elements = doc.Elements
	} else {
		err = json.Unmarshal(b, &elements)
	}
	if err != nil {
		return nil, err
	}

	for i := range elements {
		el := &elements[i]
		if el.Element.IsZero() {
			return nil, fmt.Errorf("elements[%d]: element must set id or selector", i)
		}
		for j := range el.ConnectWith {
			cw := &el.ConnectWith[j]
			cw.Normalize()
			if err := cw.validate(); err != nil {
				return nil, fmt.Errorf("elements[%d].connectWith[%d]: %w", i, j, err)
			}
		}
	}
	return elements, nil
}
