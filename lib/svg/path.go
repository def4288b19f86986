package svg

import (
	"fmt"
	"math"
	"strings"

	"oss.terrastruct.com/connectlines/lib/geo"
)

// PathContext accumulates path data commands in absolute coordinates.
type PathContext struct {
	Commands []string
	Start    *geo.Point
	Current  *geo.Point
}

// TODO probably use math.Big
func chopPrecision(f float64) float64 {
	// -0 prints as "-0"
	v := math.Round(f*10000) / 10000
	if v == 0 {
		return 0
	}
	return v
}

func NewPathContext() *PathContext {
	return &PathContext{}
}

func (c *PathContext) point(x, y float64) *geo.Point {
	return geo.NewPoint(chopPrecision(x), chopPrecision(y))
}

func (c *PathContext) StartAt(x, y float64) {
	c.Start = c.point(x, y)
	c.Commands = append(c.Commands, fmt.Sprintf("M %v %v", c.Start.X, c.Start.Y))
	c.Current = c.Start.Copy()
}

func (c *PathContext) Z() {
	c.Commands = append(c.Commands, "Z")
	c.Current = c.Start.Copy()
}

func (c *PathContext) L(x, y float64) {
	endPoint := c.point(x, y)
	c.Commands = append(c.Commands, fmt.Sprintf("L %v %v", endPoint.X, endPoint.Y))
	c.Current = endPoint
}

func (c *PathContext) C(x1, y1, x2, y2, x3, y3 float64) {
	c1, c2, end := c.point(x1, y1), c.point(x2, y2), c.point(x3, y3)
	c.Commands = append(c.Commands, fmt.Sprintf(
		"C %v %v %v %v %v %v",
		c1.X, c1.Y,
		c2.X, c2.Y,
		end.X, end.Y,
	))
	c.Current = end
}

// S is a smooth cubic bezier whose first control point reflects the previous one.
func (c *PathContext) S(x2, y2, x3, y3 float64) {
	c2, end := c.point(x2, y2), c.point(x3, y3)
	c.Commands = append(c.Commands, fmt.Sprintf("S %v %v %v %v", c2.X, c2.Y, end.X, end.Y))
	c.Current = end
}

func (c *PathContext) PathData() string {
	return strings.Join(c.Commands, " ")
}
