package main

import (
	"context"
	"fmt"
	"html"
	mathrand "math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/lucasb-eyer/go-colorful"
	"oss.terrastruct.com/xjson"
	"oss.terrastruct.com/xrand"

	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/xmain"
)

const (
	demoDefaultCount = 8
	demoCellWidth    = 220
	demoCellHeight   = 160
)

type networkElement struct {
	typ   string
	label string
}

var networkElements = []networkElement{
	{"db", "Database Server"},
	{"router", "Router"},
	{"modem", "Modem"},
	{"laptop", "Laptop"},
	{"firewall", "Firewall"},
	{"switch", "Network Switch"},
	{"fs", "File Server"},
	{"ap", "Access Point"},
	{"pc", "Desktop PC"},
	{"printer", "Network Printer"},
	{"server", "Application Server"},
	{"cloud", "Cloud Service"},
	{"gateway", "Gateway"},
	{"hub", "Network Hub"},
	{"nas", "Network Storage"},
}

func demo(ctx context.Context, ms *xmain.State, args []string) error {
	n := demoDefaultCount
	dir := "."
	if len(args) > 0 {
		var err error
		n, err = strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return xmain.UsageErrorf("demo count must be a positive integer. You provided: %q", args[0])
		}
	}
	if len(args) > 1 {
		dir = args[1]
	}
	if len(args) > 2 {
		return xmain.UsageErrorf("too many arguments passed to demo")
	}

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	rand := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	layout, elements := genDemo(rand, n)

	layoutPath := filepath.Join(dir, "layout.html")
	connectionsPath := filepath.Join(dir, "connections.json")
	err = ms.WritePath(layoutPath, layout)
	if err != nil {
		return err
	}
	err = ms.WritePath(connectionsPath, append(xjson.Marshal(elements), '\n'))
	if err != nil {
		return err
	}
	ms.Log.Success.Printf("wrote %d element%s to %s and %s", n, plural(n), ms.HumanPath(layoutPath), ms.HumanPath(connectionsPath))
	ms.Log.Info.Printf("run `%s --watch %s %s` to edit them live", ms.Name, ms.HumanPath(layoutPath), ms.HumanPath(connectionsPath))
	return nil
}

// genDemo lays out n elements, one per grid cell so no two overlap, and
// connects each to one or two random others.
func genDemo(rand *mathrand.Rand, n int) ([]byte, []cltarget.ConnectElement) {
	cols := 1
	for cols*cols < n {
		cols++
	}
	rows := (n + cols - 1) / cols

	ids := make([]string, n)
	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<body data-width=\"%d\" data-height=\"%d\">\n", cols*demoCellWidth, rows*demoCellHeight)
	for i := 0; i < n; i++ {
		ne := networkElements[rand.Intn(len(networkElements))]
		ids[i] = fmt.Sprintf("%s_%s", ne.typ, demoSuffix())

		w := 80 + rand.Intn(61)
		h := 40 + rand.Intn(41)
		x := (i%cols)*demoCellWidth + rand.Intn(demoCellWidth-w)
		y := (i/cols)*demoCellHeight + rand.Intn(demoCellHeight-h)
		fmt.Fprintf(&b, "  <div id=\"%s\" data-x=\"%d\" data-y=\"%d\" data-width=\"%d\" data-height=\"%d\">%s</div>\n", ids[i], x, y, w, h, html.EscapeString(ne.label))
	}
	b.WriteString("</body>\n</html>\n")

	elements := make([]cltarget.ConnectElement, 0, n)
	for i, id := range ids {
		el := cltarget.ConnectElement{Element: cltarget.ElementRef{ID: id}}
		if n > 1 {
			for k := rand.Intn(2) + 1; k > 0; k-- {
				j := rand.Intn(n - 1)
				if j >= i {
					j++
				}
				el.ConnectWith = append(el.ConnectWith, demoConnection(rand, ids[j]))
			}
		}
		elements = append(elements, el)
	}
	return []byte(b.String()), elements
}

func demoConnection(rand *mathrand.Rand, target string) cltarget.ConnectWith {
	cw := cltarget.ConnectWith{
		Target: cltarget.ElementRef{ID: target},
		Color:  colorful.Hsv(float64(rand.Intn(360)), 0.6+rand.Float64()*0.3, 0.6+rand.Float64()*0.3).Hex(),
		Edge:   cltarget.Edges[rand.Intn(len(cltarget.Edges))],
		Stroke: cltarget.StrokeSolid,
	}
	if rand.Intn(3) == 0 {
		cw.Stroke = cltarget.StrokeDashed
	}
	return cw
}

// demoSuffix is six characters usable in a bare CSS id selector.
func demoSuffix() string {
	s := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return 'x'
	}, xrand.Base64(6))
	for len(s) < 6 {
		s += "x"
	}
	return s[:6]
}
