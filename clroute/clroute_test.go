package clroute

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/geo"
)

func box(x, y, w, h float64) *geo.Box {
	return geo.NewBox(geo.NewPoint(x, y), w, h)
}

func to(b *geo.Box, edge cltarget.Edge) cltarget.ToEntry {
	return cltarget.ToEntry{Rect: b, Edge: edge, Stroke: cltarget.StrokeSolid}
}

func TestRoute(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		from *geo.Box
		to   cltarget.ToEntry
		exp  geo.Route
	}{
		{
			name: "right_to_left_straight",
			from: box(0, 0, 100, 50),
			to:   to(box(300, 0, 100, 50), cltarget.EdgeRight),
			exp:  geo.Route{geo.NewPoint(100, 25), geo.NewPoint(300, 25)},
		},
		{
			name: "right_z",
			from: box(0, 0, 100, 50),
			to:   to(box(300, 100, 100, 50), cltarget.EdgeRight),
			exp: geo.Route{
				geo.NewPoint(100, 25),
				geo.NewPoint(200, 25),
				geo.NewPoint(200, 125),
				geo.NewPoint(300, 125),
			},
		},
		{
			name: "left_straight",
			from: box(300, 0, 100, 50),
			to:   to(box(0, 0, 100, 50), cltarget.EdgeLeft),
			exp:  geo.Route{geo.NewPoint(300, 25), geo.NewPoint(100, 25)},
		},
		{
			name: "bottom_z",
			from: box(0, 0, 100, 50),
			to:   to(box(200, 150, 100, 50), cltarget.EdgeBottom),
			exp: geo.Route{
				geo.NewPoint(50, 50),
				geo.NewPoint(50, 100),
				geo.NewPoint(250, 100),
				geo.NewPoint(250, 150),
			},
		},
		{
			name: "top_straight",
			from: box(0, 200, 100, 50),
			to:   to(box(0, 0, 100, 50), cltarget.EdgeTop),
			exp:  geo.Route{geo.NewPoint(50, 200), geo.NewPoint(50, 50)},
		},
		{
			name: "right_l_into_top",
			from: box(0, 0, 100, 50),
			to:   to(box(100, 200, 100, 50), cltarget.EdgeRight),
			exp: geo.Route{
				geo.NewPoint(100, 25),
				geo.NewPoint(150, 25),
				geo.NewPoint(150, 200),
			},
		},
		{
			name: "right_steps_out_then_crosses_gap",
			from: box(100, 0, 100, 50),
			to:   to(box(0, 200, 100, 50), cltarget.EdgeRight),
			exp: geo.Route{
				geo.NewPoint(200, 25),
				geo.NewPoint(220, 25),
				geo.NewPoint(220, 125),
				geo.NewPoint(50, 125),
				geo.NewPoint(50, 200),
			},
		},
		{
			name: "right_target_behind",
			from: box(300, 0, 100, 50),
			to:   to(box(0, 10, 100, 50), cltarget.EdgeRight),
			exp: geo.Route{
				geo.NewPoint(400, 25),
				geo.NewPoint(420, 25),
				geo.NewPoint(420, -20),
				geo.NewPoint(200, -20),
				geo.NewPoint(200, 35),
				geo.NewPoint(100, 35),
			},
		},
		{
			name: "auto_picks_facing_side",
			from: box(0, 0, 100, 50),
			to:   to(box(0, 300, 100, 50), cltarget.EdgeAuto),
			exp:  geo.Route{geo.NewPoint(50, 50), geo.NewPoint(50, 300)},
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Route(tc.from, tc.to)
			assert.Equal(t, tc.exp, got, got.ToString())
		})
	}
}

func TestRouteDegenerate(t *testing.T) {
	t.Parallel()

	rects := []*geo.Box{
		box(0, 0, 100, 50),
		box(-20, 35, 1, 1),
		box(10, 10, 0, 10),
		box(10, 10, 10, 0),
		nil,
	}
	for i, r := range rects {
		for _, e := range cltarget.Edges {
			assert.Nil(t, Route(r, to(r, e)), "rect %d edge %s", i, e)
		}
	}

	// Overlapping beyond the tolerance.
	assert.Nil(t, Route(box(0, 0, 100, 50), to(box(50, 25, 100, 50), cltarget.EdgeAuto)))
	// Boxes nested inside the other, one axis no wider than the tolerance.
	for _, e := range cltarget.Edges {
		assert.Nil(t, Route(box(0, 0, 100, 50), to(box(10, 20, 80, 1), e)), "thin target inside, edge %s", e)
		assert.Nil(t, Route(box(40, 40, 1, 1), to(box(0, 0, 100, 100), e)), "tiny source inside, edge %s", e)
		assert.Nil(t, Route(box(0, 0, 100, 100), to(box(40, 40, 1, 1), e)), "tiny target inside, edge %s", e)
		assert.Nil(t, Route(box(10, 10, 0.5, 30), to(box(0, 0, 100, 50), e)), "sliver source inside, edge %s", e)
	}
	// Zero sized target next to a real source.
	assert.Nil(t, Route(box(0, 0, 100, 50), to(box(300, 0, 0, 0), cltarget.EdgeRight)))
	// Flush against the exit side leaves no room to turn.
	assert.Nil(t, Route(box(0, 0, 100, 50), to(box(100, 0, 100, 50), cltarget.EdgeRight)))
	assert.Equal(t,
		geo.Route{geo.NewPoint(100, 25), geo.NewPoint(101, 25)},
		Route(box(0, 0, 100, 50), to(box(101, 0, 100, 50), cltarget.EdgeRight)),
	)
}

func TestNearestSideTieBreak(t *testing.T) {
	t.Parallel()

	from := box(0, 0, 100, 100)
	testCases := []struct {
		name   string
		target *geo.Box
		exp    geo.Orientation
	}{
		{"bottom_right", box(200, 200, 100, 100), geo.Bottom},
		{"top_right", box(200, -200, 100, 100), geo.Top},
		{"bottom_left", box(-200, 200, 100, 100), geo.Bottom},
		{"top_left", box(-200, -200, 100, 100), geo.Top},
		{"right", box(200, 0, 100, 100), geo.Right},
		{"left", box(-200, 0, 100, 100), geo.Left},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.exp, NearestSide(from, tc.target.Center()))
		})
	}

	r := Route(from, to(box(200, 200, 100, 100), cltarget.EdgeAuto))
	require.NotEmpty(t, r)
	assert.Equal(t, geo.NewPoint(50, 100), r[0])
	assert.Equal(t, geo.NewPoint(250, 200), r[len(r)-1])
}

func TestEntrySide(t *testing.T) {
	t.Parallel()

	from := box(0, 0, 100, 50)
	assert.Equal(t, geo.Left, EntrySide(from, box(300, 0, 100, 50), geo.Right))
	assert.Equal(t, geo.Top, EntrySide(from, box(0, 300, 100, 50), geo.Bottom))
	assert.Equal(t, geo.Top, EntrySide(from, box(0, 300, 100, 50), geo.Right))
	assert.Equal(t, geo.Right, EntrySide(box(300, 0, 100, 50), from, geo.Right))
	assert.Equal(t, geo.Bottom, EntrySide(box(0, 300, 100, 50), from, geo.Top))
}

func TestFrameRoundTrip(t *testing.T) {
	t.Parallel()

	p := geo.NewPoint(3, -7)
	for _, side := range []geo.Orientation{geo.Top, geo.Bottom, geo.Left, geo.Right} {
		fr := frameFor(side)
		assert.Equal(t, p, fr.inverse(fr.point(p)), side.ToString())
		assert.Equal(t, side, fr.inverseSide(geo.Right), side.ToString())
	}
}

// TestRouteProperties checks random disjoint box pairs: routes are orthogonal,
// start and end on the boxes' boundaries, stay out of both interiors, and are
// deterministic.
func TestRouteProperties(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(1))
	// Sizes are multiples of a quarter pixel so frame mapping stays exact.
	size := func() float64 {
		if r.Intn(4) == 0 {
			return 0.5 + 0.25*float64(r.Intn(7))
		}
		return float64(10 + r.Intn(150))
	}
	checked := 0
	nested := 0
	for i := 0; i < 4000; i++ {
		from := box(float64(r.Intn(600)), float64(r.Intn(600)), size(), size())
		target := box(float64(r.Intn(600)), float64(r.Intn(600)), size(), size())
		if i%8 == 0 {
			// Drop the target somewhere inside the source.
			target.TopLeft = geo.NewPoint(
				from.Left()+0.25*float64(r.Intn(int(from.Width*4)+1)),
				from.Top()+0.25*float64(r.Intn(int(from.Height*4)+1)),
			)
		}
		edge := cltarget.Edges[r.Intn(len(cltarget.Edges))]
		name := fmt.Sprintf("%d: %s -> %s (%s)", i, from.ToString(), target.ToString(), edge)

		if within(target, from) || within(from, target) {
			nested++
			assert.Nil(t, Route(from, to(target, edge)), name)
			continue
		}
		if from.Overlaps(target, OverlapTolerance) {
			assert.Nil(t, Route(from, to(target, edge)), name)
			continue
		}
		checked++

		route := Route(from, to(target, edge))
		if route == nil {
			assert.False(t, separated(from, target), name)
			continue
		}
		require.GreaterOrEqual(t, len(route), 2, name)
		assert.True(t, route.IsOrthogonal(), "%s: %s", name, route.ToString())
		assert.True(t, onBoundary(from, route[0]), "%s: start %s", name, route[0].ToString())
		assert.True(t, onBoundary(target, route[len(route)-1]), "%s: end %s", name, route[len(route)-1].ToString())
		if !edge.IsAuto() {
			assert.Equal(t, edge.Side(), route[0].DirectionTo(route[1]), name)
		}
		for j := 0; j < len(route)-1; j++ {
			assert.False(t, crossesInterior(from, route[j], route[j+1]), "%s: segment %d crosses source", name, j)
			assert.False(t, crossesInterior(target, route[j], route[j+1]), "%s: segment %d crosses target", name, j)
		}
		assert.Equal(t, route, Route(from, to(target, edge)), name)
	}
	assert.Greater(t, checked, 500)
	assert.Greater(t, nested, 100)
}

// within reports whether a lies inside b with a positive area in common.
func within(a, b *geo.Box) bool {
	return a.Left() >= b.Left() && a.Right() <= b.Right() && a.Top() >= b.Top() && a.Bottom() <= b.Bottom() &&
		a.Left() < b.Right() && a.Top() < b.Bottom()
}

// separated reports whether there is a positive gap between a and b along
// either axis.
func separated(a, b *geo.Box) bool {
	return b.Left() > a.Right() || a.Left() > b.Right() || b.Top() > a.Bottom() || a.Top() > b.Bottom()
}

func onBoundary(b *geo.Box, p *geo.Point) bool {
	inX := p.X >= b.Left() && p.X <= b.Right()
	inY := p.Y >= b.Top() && p.Y <= b.Bottom()
	return (inY && (p.X == b.Left() || p.X == b.Right())) || (inX && (p.Y == b.Top() || p.Y == b.Bottom()))
}

// crossesInterior reports whether the axis aligned segment a-b enters b's
// interior shrunk by the overlap tolerance.
func crossesInterior(bx *geo.Box, a, b *geo.Point) bool {
	l, r := bx.Left()+OverlapTolerance, bx.Right()-OverlapTolerance
	top, bottom := bx.Top()+OverlapTolerance, bx.Bottom()-OverlapTolerance
	minX, maxX := minMax(a.X, b.X)
	minY, maxY := minMax(a.Y, b.Y)
	return maxX > l && minX < r && maxY > top && minY < bottom
}

func minMax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}
