// Package clsvg renders a snapshot as a full viewport SVG overlay.
package clsvg

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/color"
	"oss.terrastruct.com/connectlines/lib/go2"
	"oss.terrastruct.com/connectlines/lib/svg"
)

const (
	DEFAULT_STROKE_WIDTH = 2.
	DASH_LENGTH          = 4

	// SurfaceStyle pins the overlay over the viewport without taking pointer
	// events away from the page below.
	SurfaceStyle = "position:fixed;top:0;left:0;right:0;bottom:0;pointer-events:none;width:100%;height:100%"
)

type RenderOpts struct {
	StrokeWidth *float64
	// Width and Height set the viewBox. Zero leaves the overlay unsized.
	Width  float64
	Height float64
}

// MarkerID is the id of the arrowhead marker for colorString.
func MarkerID(colorString string) string {
	return "triangle-" + color.Key(colorString)
}

// MarkerColors returns the colors that need a marker: the snapshot's color
// list plus any path color missing from it, one per distinct color.
func MarkerColors(snapshot *cltarget.Snapshot) []string {
	colors := append([]string(nil), snapshot.Colors...)
	for _, p := range snapshot.Paths {
		colors = append(colors, color.OrDefault(p.Color))
	}
	if len(colors) == 0 {
		colors = append(colors, color.Default)
	}
	return go2.UniqueBy(colors, color.Key)
}

func Render(snapshot *cltarget.Snapshot, opts *RenderOpts) []byte {
	if opts == nil {
		opts = &RenderOpts{}
	}
	strokeWidth := DEFAULT_STROKE_WIDTH
	if opts.StrokeWidth != nil {
		strokeWidth = *opts.StrokeWidth
	}

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" class="connect-lines" style="%s"`, SurfaceStyle)
	if opts.Width > 0 && opts.Height > 0 {
		fmt.Fprintf(buf, ` width="%s" height="%s" viewBox="0 0 %s %s"`,
			num(opts.Width), num(opts.Height), num(opts.Width), num(opts.Height))
	}
	buf.WriteString(">\n")

	buf.WriteString("<defs>\n")
	for _, c := range MarkerColors(snapshot) {
		arrowheadMarker(buf, c)
	}
	buf.WriteString("</defs>\n")

	for _, p := range snapshot.Paths {
		connectionPath(buf, p, strokeWidth)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func arrowheadMarker(w io.Writer, colorString string) {
	c := svg.EscapeText(color.OrDefault(colorString))
	fmt.Fprintf(w,
		`<marker id="%s" markerHeight="5" markerUnits="strokeWidth" markerWidth="5" orient="auto" refX="1" refY="5" viewBox="0 0 10 10">`+
			`<path d="M 0 0 L 10 5 L 0 10 z" fill="%s" stroke="%s"></path></marker>`+"\n",
		MarkerID(colorString), c, c,
	)
}

func connectionPath(w io.Writer, p cltarget.PathPoint, strokeWidth float64) {
	dash := 0
	if p.Stroke.IsDashed() {
		dash = DASH_LENGTH
	}
	fmt.Fprintf(w,
		`<path d="%s" fill="none" marker-end="url(#%s)" stroke="%s" stroke-dasharray="%d" stroke-linejoin="round" stroke-width="%s"></path>`+"\n",
		svg.EscapeText(p.D),
		MarkerID(p.Color),
		svg.EscapeText(color.OrDefault(p.Color)),
		dash,
		num(strokeWidth),
	)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
