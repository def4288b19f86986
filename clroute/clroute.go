// Package clroute plans orthogonal elbow routes between two boxes.
//
// Every route is planned in a canonical frame where the route leaves the source
// through its right side. The frame is a transpose and/or a mirror of viewport
// coordinates, so the planned points map back exactly.
package clroute

import (
	"math"

	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/geo"
)

const (
	// OverlapTolerance is how far two boxes may overlap and still be connected.
	OverlapTolerance = 1.
	// Margin is the clearance a route keeps when it turns back around a box.
	Margin = 20.

	tieEpsilon = 1e-6
)

// Route returns the waypoints from a side of from to a side of to.Rect, or nil
// when either box is degenerate, the boxes overlap, or to.Rect sits flush
// against the exit side.
func Route(from *geo.Box, to cltarget.ToEntry) geo.Route {
	if from.IsDegenerate() || to.Rect.IsDegenerate() {
		return nil
	}
	if from.Equals(to.Rect) || from.Overlaps(to.Rect, OverlapTolerance) {
		return nil
	}

	exit := ExitSide(from, to.Rect, to.Edge)
	f := frameFor(exit)
	route := planCanonical(f.box(from), f.box(to.Rect))
	if route == nil {
		return nil
	}

	out := make(geo.Route, 0, len(route))
	for _, p := range route {
		out = append(out, f.inverse(p))
	}
	return out.Simplify()
}

// ExitSide returns the side of from a route to to leaves through.
func ExitSide(from, to *geo.Box, edge cltarget.Edge) geo.Orientation {
	if !edge.IsAuto() {
		return edge.Side()
	}
	return NearestSide(from, to.Center())
}

// NearestSide returns the side of b whose midpoint is closest to p. Ties go to
// the top and bottom sides.
func NearestSide(b *geo.Box, p *geo.Point) geo.Orientation {
	best := geo.NONE
	bestDist := math.Inf(1)
	for _, side := range []geo.Orientation{geo.Top, geo.Bottom, geo.Right, geo.Left} {
		d := b.SideMidpoint(side).DistanceTo(p)
		if geo.PrecisionCompare(d, bestDist, tieEpsilon) < 0 {
			best, bestDist = side, d
		}
	}
	return best
}

// EntrySide returns the side of to a route leaving from through exit arrives
// at.
func EntrySide(from, to *geo.Box, exit geo.Orientation) geo.Orientation {
	f := frameFor(exit)
	return f.inverseSide(entryCanonical(f.box(from), f.box(to)))
}

// entryCanonical picks the side of t facing f, preferring to continue along
// the exit axis. NONE means t is flush against the exit side.
func entryCanonical(f, t *geo.Box) geo.Orientation {
	switch {
	case t.Left() > f.Right():
		return geo.Left
	case t.Top() >= f.Bottom()-OverlapTolerance:
		return geo.Top
	case t.Bottom() <= f.Top()+OverlapTolerance:
		return geo.Bottom
	case t.Left() >= f.Right()-OverlapTolerance:
		return geo.NONE
	default:
		return geo.Right
	}
}

// planCanonical routes from the right side of f to t.
func planCanonical(f, t *geo.Box) geo.Route {
	start := f.SideMidpoint(geo.Right)
	entry := entryCanonical(f, t)
	end := t.SideMidpoint(entry)

	switch entry {
	case geo.NONE:
		return nil
	case geo.Left:
		// Straight ahead, or a Z bending at the middle of the gap.
		if start.Y == end.Y {
			return geo.Route{start, end}
		}
		midX := (start.X + end.X) / 2
		return geo.Route{start, geo.NewPoint(midX, start.Y), geo.NewPoint(midX, end.Y), end}
	case geo.Top, geo.Bottom:
		if end.X > start.X {
			// L into the facing side.
			return geo.Route{start, geo.NewPoint(end.X, start.Y), end}
		}
		// Step out, then cross in the gap between the boxes.
		turnX := start.X + Margin
		midY := (f.Bottom() + t.Top()) / 2
		if entry == geo.Bottom {
			midY = (f.Top() + t.Bottom()) / 2
		}
		return geo.Route{
			start,
			geo.NewPoint(turnX, start.Y),
			geo.NewPoint(turnX, midY),
			geo.NewPoint(end.X, midY),
			end,
		}
	default:
		// t is behind f: go over both boxes and come down in the gap.
		turnX := start.X + Margin
		clearY := math.Min(f.Top(), t.Top()) - Margin
		gapX := (t.Right() + f.Left()) / 2
		return geo.Route{
			start,
			geo.NewPoint(turnX, start.Y),
			geo.NewPoint(turnX, clearY),
			geo.NewPoint(gapX, clearY),
			geo.NewPoint(gapX, end.Y),
			end,
		}
	}
}

// frame maps viewport coordinates into the canonical frame: transpose swaps the
// axes, then mirror negates x.
type frame struct {
	transpose bool
	mirror    bool
}

func frameFor(exit geo.Orientation) frame {
	switch exit {
	case geo.Left:
		return frame{mirror: true}
	case geo.Bottom:
		return frame{transpose: true}
	case geo.Top:
		return frame{transpose: true, mirror: true}
	}
	return frame{}
}

func (fr frame) xy(x, y float64) (float64, float64) {
	if fr.transpose {
		x, y = y, x
	}
	if fr.mirror {
		x = -x
	}
	return x, y
}

func (fr frame) point(p *geo.Point) *geo.Point {
	return geo.NewPoint(fr.xy(p.X, p.Y))
}

func (fr frame) inverse(p *geo.Point) *geo.Point {
	x, y := p.X, p.Y
	if fr.mirror {
		x = -x
	}
	if fr.transpose {
		x, y = y, x
	}
	return geo.NewPoint(x, y)
}

func (fr frame) box(b *geo.Box) *geo.Box {
	x1, y1 := fr.xy(b.Left(), b.Top())
	x2, y2 := fr.xy(b.Right(), b.Bottom())
	return geo.NewBox(
		geo.NewPoint(math.Min(x1, x2), math.Min(y1, y2)),
		math.Abs(x2-x1),
		math.Abs(y2-y1),
	)
}

func (fr frame) inverseSide(side geo.Orientation) geo.Orientation {
	if side == geo.NONE {
		return geo.NONE
	}
	origin := geo.NewPoint(0, 0)
	return fr.inverse(origin).DirectionTo(fr.inverse(sideVector(side)))
}

func sideVector(side geo.Orientation) *geo.Point {
	switch side {
	case geo.Top:
		return geo.NewPoint(0, -1)
	case geo.Bottom:
		return geo.NewPoint(0, 1)
	case geo.Left:
		return geo.NewPoint(-1, 0)
	}
	return geo.NewPoint(1, 0)
}
