// Package clpath serializes routes into SVG path data.
package clpath

import (
	"strings"
	"unicode"

	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/geo"
	"oss.terrastruct.com/connectlines/lib/go2"
	"oss.terrastruct.com/connectlines/lib/svg"
)

// Serialize returns path data for route: a moveto at the first waypoint and a
// lineto per following waypoint. With a positive radius, elbows are rounded
// with smooth curves that never take more than half of either adjoining
// segment.
//
// It returns "" for routes with fewer than two waypoints, non finite
// waypoints, or an explicit edge the first segment does not leave through.
func Serialize(route geo.Route, edge cltarget.Edge, radius float64) string {
	if len(route) < 2 {
		return ""
	}
	for _, p := range route {
		if p == nil || !p.IsFinite() {
			return ""
		}
	}
	if !edge.IsAuto() && route[0].DirectionTo(route[1]) != edge.Side() {
		return ""
	}

	pc := svg.NewPathContext()
	pc.StartAt(route[0].X, route[0].Y)
	for i := 1; i < len(route)-1; i++ {
		prev, corner, next := route[i-1], route[i], route[i+1]
		units := go2.Min(radius, go2.Min(prev.DistanceTo(corner)/2, corner.DistanceTo(next)/2))
		if !(units > 0) {
			pc.L(corner.X, corner.Y)
			continue
		}
		in := prev.VectorTo(corner).Unit().Multiply(units).ToPoint()
		out := corner.VectorTo(next).Unit().Multiply(units).ToPoint()
		pc.L(corner.X-in.X, corner.Y-in.Y)
		pc.S(corner.X, corner.Y, corner.X+out.X, corner.Y+out.Y)
	}
	last := route[len(route)-1]
	pc.L(last.X, last.Y)
	return pc.PathData()
}

// IsRenderable reports whether d carries any coordinates. Anything else comes
// from unresolved geometry and is not drawn.
func IsRenderable(d string) bool {
	return strings.IndexFunc(d, unicode.IsDigit) >= 0
}
