package geo

import (
	"fmt"
	"math"
	"strings"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) *Point {
	return &Point{X: x, Y: y}
}

func (p1 *Point) Equals(p2 *Point) bool {
	if p1 == nil {
		return p2 == nil
	} else if p2 == nil {
		return false
	}
	return (p1.X == p2.X) && (p1.Y == p2.Y)
}

func (p *Point) Copy() *Point {
	return &Point{X: p.X, Y: p.Y}
}

// IsFinite reports whether neither coordinate is NaN or infinite.
func (p *Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

type Points []*Point

func (ps Points) Equals(other Points) bool {
	if len(ps) != len(other) {
		return false
	}
	for i := range ps {
		if !ps[i].Equals(other[i]) {
			return false
		}
	}
	return true
}

// DirectionTo returns the side of p that p2 lies on when the two points share an
// axis: Right when p2 is directly to the right of p, Top when directly above, etc.
// Points that do not share an axis, or are equal, return NONE.
func (p *Point) DirectionTo(p2 *Point) Orientation {
	switch {
	case p.Y == p2.Y && p2.X > p.X:
		return Right
	case p.Y == p2.Y && p2.X < p.X:
		return Left
	case p.X == p2.X && p2.Y > p.Y:
		return Bottom
	case p.X == p2.X && p2.Y < p.Y:
		return Top
	}
	return NONE
}

func (p *Point) ToString() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("(%v, %v)", p.X, p.Y)
}

func (points Points) ToString() string {
	strs := make([]string, 0, len(points))
	for _, p := range points {
		strs = append(strs, p.ToString())
	}
	return strings.Join(strs, ", ")
}

// Creates a Vector of the size between start and endpoint, pointing to endpoint
func (start *Point) VectorTo(endpoint *Point) Vector {
	return endpoint.ToVector().Minus(start.ToVector())
}

// Creates a Vector pointing to point
func (endpoint *Point) ToVector() Vector {
	return []float64{endpoint.X, endpoint.Y}
}

func (p *Point) DistanceTo(p2 *Point) float64 {
	return EuclideanDistance(p.X, p.Y, p2.X, p2.Y)
}
