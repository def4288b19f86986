package geo

import (
	"fmt"
	"math"
)

// Box is an axis aligned rectangle in viewport coordinates.
type Box struct {
	TopLeft *Point  `json:"topLeft"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

func NewBox(tl *Point, width, height float64) *Box {
	return &Box{
		TopLeft: tl,
		Width:   width,
		Height:  height,
	}
}

func (b *Box) Copy() *Box {
	if b == nil {
		return nil
	}
	return NewBox(b.TopLeft.Copy(), b.Width, b.Height)
}

func (b *Box) Left() float64   { return b.TopLeft.X }
func (b *Box) Top() float64    { return b.TopLeft.Y }
func (b *Box) Right() float64  { return b.TopLeft.X + b.Width }
func (b *Box) Bottom() float64 { return b.TopLeft.Y + b.Height }

func (b *Box) Center() *Point {
	return NewPoint(b.TopLeft.X+b.Width/2, b.TopLeft.Y+b.Height/2)
}

func (b *Box) Equals(b2 *Box) bool {
	if b == nil || b2 == nil {
		return b == b2
	}
	return b.TopLeft.Equals(b2.TopLeft) && b.Width == b2.Width && b.Height == b2.Height
}

// IsDegenerate reports whether b has no area, which is how elements that are
// not laid out yet report themselves.
func (b *Box) IsDegenerate() bool {
	return b == nil || b.TopLeft == nil || !(b.Width > 0) || !(b.Height > 0) || !b.TopLeft.IsFinite() ||
		math.IsInf(b.Width, 0) || math.IsInf(b.Height, 0)
}

// Overlaps reports whether b and b2 intersect along both axes. An axis
// intersects when the shared extent is larger than tolerance, or when it is
// positive and covers the whole extent of the thinner box, so a box at most
// tolerance wide still overlaps a box it sits inside.
func (b *Box) Overlaps(b2 *Box, tolerance float64) bool {
	return spanOverlaps(b.Left(), b.Right(), b2.Left(), b2.Right(), tolerance) &&
		spanOverlaps(b.Top(), b.Bottom(), b2.Top(), b2.Bottom(), tolerance)
}

func spanOverlaps(lo1, hi1, lo2, hi2, tolerance float64) bool {
	shared := math.Min(hi1, hi2) - math.Max(lo1, lo2)
	if !(shared > 0) {
		return false
	}
	return shared > tolerance || shared >= math.Min(hi1-lo1, hi2-lo2)
}

// SideMidpoint returns the midpoint of the given side. Non side orientations
// return the center.
func (b *Box) SideMidpoint(side Orientation) *Point {
	c := b.Center()
	switch side {
	case Top:
		return NewPoint(c.X, b.Top())
	case Bottom:
		return NewPoint(c.X, b.Bottom())
	case Left:
		return NewPoint(b.Left(), c.Y)
	case Right:
		return NewPoint(b.Right(), c.Y)
	}
	return c
}

func (b *Box) ToString() string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("{TopLeft: %s, Width: %.0f, Height: %.0f}", b.TopLeft.ToString(), b.Width, b.Height)
}
