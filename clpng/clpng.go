// Package clpng rasterizes a snapshot's overlay to PNG.
package clpng

import (
	"bytes"
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/connectlines/clsvg"
	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/color"
	"oss.terrastruct.com/connectlines/lib/geo"
	"oss.terrastruct.com/connectlines/lib/svg"
)

type RenderOpts struct {
	StrokeWidth *float64
	Width       int
	Height      int
}

// Render draws every path of snapshot on a transparent canvas with the same
// stroke, dash and arrowhead styling as the SVG overlay.
func Render(snapshot *cltarget.Snapshot, opts *RenderOpts) (_ []byte, err error) {
	defer xdefer.Errorf(&err, "failed to render png")

	if opts == nil || opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("png output needs a positive width and height")
	}
	strokeWidth := clsvg.DEFAULT_STROKE_WIDTH
	if opts.StrokeWidth != nil {
		strokeWidth = *opts.StrokeWidth
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.SetLineWidth(strokeWidth)
	for _, p := range snapshot.Paths {
		cmds, err := svg.ParsePathData(p.D)
		if err != nil {
			return nil, err
		}
		setColor(dc, p.Color)
		if p.Stroke.IsDashed() {
			dc.SetDash(clsvg.DASH_LENGTH)
		} else {
			dc.SetDash()
		}
		end, from := trace(dc, cmds)
		dc.Stroke()
		if end != nil && from != nil {
			arrowhead(dc, end, from, strokeWidth)
		}
	}

	buf := &bytes.Buffer{}
	if err := dc.EncodePNG(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setColor(dc *gg.Context, colorString string) {
	r, g, b, a, err := color.RGBA(colorString)
	if err != nil {
		r, g, b, a, _ = color.RGBA(color.Default)
	}
	dc.SetRGBA(r, g, b, a)
}

// trace adds cmds to the current path. It returns the final point and the
// point the path approaches it from, which orient the arrowhead.
func trace(dc *gg.Context, cmds []svg.PathCommand) (end, from *geo.Point) {
	var start, cur, ctrl *geo.Point
	for _, cmd := range cmds {
		a := cmd.Args
		switch cmd.Op {
		case 'M':
			cur = geo.NewPoint(a[0], a[1])
			start, ctrl = cur, nil
			dc.MoveTo(cur.X, cur.Y)
			continue
		case 'L':
			from, cur, ctrl = cur, geo.NewPoint(a[0], a[1]), nil
			dc.LineTo(cur.X, cur.Y)
		case 'C':
			dc.CubicTo(a[0], a[1], a[2], a[3], a[4], a[5])
			ctrl = geo.NewPoint(a[2], a[3])
			from, cur = ctrl, geo.NewPoint(a[4], a[5])
		case 'S':
			c1 := cur
			if ctrl != nil {
				c1 = geo.NewPoint(2*cur.X-ctrl.X, 2*cur.Y-ctrl.Y)
			}
			dc.CubicTo(c1.X, c1.Y, a[0], a[1], a[2], a[3])
			ctrl = geo.NewPoint(a[0], a[1])
			from, cur = ctrl, geo.NewPoint(a[2], a[3])
		case 'Z':
			dc.ClosePath()
			from, cur, ctrl = cur, start, nil
		}
		if from != nil && from.Equals(cur) {
			from = nil
		}
	}
	return cur, from
}

// arrowhead fills the marker triangle at end pointing away from from. The
// marker is a 10 unit box scaled to half the stroke width per unit with its
// reference point at (1, 5).
func arrowhead(dc *gg.Context, end, from *geo.Point, strokeWidth float64) {
	scale := strokeWidth / 2
	dc.Push()
	dc.Translate(end.X, end.Y)
	dc.Rotate(math.Atan2(end.Y-from.Y, end.X-from.X))
	dc.Scale(scale, scale)
	dc.Translate(-1, -5)
	dc.MoveTo(0, 0)
	dc.LineTo(10, 5)
	dc.LineTo(0, 10)
	dc.ClosePath()
	dc.FillPreserve()
	dc.SetDash()
	dc.SetLineWidth(1)
	dc.Stroke()
	dc.Pop()
}
