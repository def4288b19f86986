package main

import (
	"fmt"

	"oss.terrastruct.com/connectlines/lib/xmain"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `Usage:
  %[1]s [--watch=false] [--corner-radius=0] layout.html connections.json [out.svg | out.png | -]
  %[1]s demo [count] [dir]

%[1]s draws arrowed elbow lines between the elements of layout.html as described
by connections.json and writes the overlay to out.svg or out.png. It defaults to
layout.svg next to layout.html.

Elements in layout.html are positioned with data-x, data-y, data-width and
data-height attributes. connections.json is a list of
  {"element": {"id": "a"}, "connectWith": [{"target": {"id": "b"}, "color": "red", "edge": "right", "stroke": "dashed"}]}
where edge is one of auto, top, bottom, left, right and stroke is solid or dashed.

Use - to read one of the inputs from stdin or to write to stdout.

Flags:
%[2]s

Subcommands:
  %[1]s demo - Writes a sample layout.html and connections.json with count random network elements
`, ms.Name, ms.Opts.Help())
}
