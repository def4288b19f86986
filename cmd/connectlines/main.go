package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"time"

	"cdr.dev/slog"
	"github.com/spf13/pflag"
	"oss.terrastruct.com/xjson"

	"oss.terrastruct.com/connectlines"
	"oss.terrastruct.com/connectlines/clpng"
	"oss.terrastruct.com/connectlines/clresolve"
	"oss.terrastruct.com/connectlines/clsvg"
	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/env"
	"oss.terrastruct.com/connectlines/lib/log"
	"oss.terrastruct.com/connectlines/lib/xmain"
)

func main() {
	xmain.Main(run)
}

func run(ctx context.Context, ms *xmain.State) (err error) {
	watchFlag, err := ms.Opts.Bool("CONNECTLINES_WATCH", "watch", "w", false, "watch the layout and connections for changes and serve a live overlay. Use --host and --port to specify the listening address.\n(default localhost:0, which will open on a randomly available local port).")
	if err != nil {
		return err
	}
	hostFlag := ms.Opts.String("CONNECTLINES_HOST", "host", "h", "localhost", "host listening address when used with watch")
	portFlag := ms.Opts.String("CONNECTLINES_PORT", "port", "p", "0", "port listening address when used with watch")
	browserFlag := ms.Opts.String("BROWSER", "browser", "", "", "browser executable that watch opens. Setting to 0 opens no browser.")
	strokeWidthFlag, err := ms.Opts.Float64("CONNECTLINES_STROKE_WIDTH", "stroke-width", "", clsvg.DEFAULT_STROKE_WIDTH, "width of connection lines in pixels")
	if err != nil {
		return err
	}
	cornerRadiusFlag, err := ms.Opts.Float64("CONNECTLINES_CORNER_RADIUS", "corner-radius", "r", 0, "round the elbows of connection lines with this radius in pixels. 0 draws sharp corners.")
	if err != nil {
		return err
	}
	frameIntervalFlag, err := ms.Opts.Int64("CONNECTLINES_FRAME_INTERVAL", "frame-interval", "", int64(env.FrameInterval()/time.Millisecond), "milliseconds between frames in watch mode. Changes within one frame are recomputed once.")
	if err != nil {
		return err
	}
	debugFlag, err := ms.Opts.Bool("DEBUG", "debug", "d", false, "print debug logs.")
	if err != nil {
		return err
	}
	helpFlag, err := ms.Opts.Bool("", "help", "", false, "print usage information and exit.")
	if err != nil {
		return err
	}

	err = ms.Opts.Flags.Parse(ms.Opts.Args)
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		return xmain.UsageErrorf("failed to parse flags: %v", err)
	}
	if errors.Is(err, pflag.ErrHelp) || *helpFlag {
		help(ms)
		return nil
	}

	if *debugFlag {
		ms.Env.Setenv("DEBUG", "1")
		ctx = log.Leveled(ctx, slog.LevelDebug)
	}
	if *browserFlag != "" {
		ms.Env.Setenv("BROWSER", *browserFlag)
	}
	if *strokeWidthFlag <= 0 {
		return xmain.UsageErrorf("--stroke-width must be positive. You provided: %v", *strokeWidthFlag)
	}
	if *cornerRadiusFlag < 0 {
		return xmain.UsageErrorf("--corner-radius must not be negative. You provided: %v", *cornerRadiusFlag)
	}
	if *frameIntervalFlag <= 0 {
		return xmain.UsageErrorf("--frame-interval must be positive. You provided: %d", *frameIntervalFlag)
	}

	args := ms.Opts.Flags.Args()
	if len(args) > 0 {
		switch args[0] {
		case "help":
			help(ms)
			return nil
		case "demo":
			return demo(ctx, ms, args[1:])
		}
	}
	if len(args) < 2 {
		help(ms)
		return xmain.UsageErrorf("a layout file and a connections file are required")
	}
	if len(args) > 3 {
		return xmain.UsageErrorf("too many arguments passed")
	}

	in := inputs{
		layoutPath:      args[0],
		connectionsPath: args[1],
		options:         &connectlines.Options{CornerRadius: *cornerRadiusFlag},
		strokeWidth:     *strokeWidthFlag,
	}
	if in.layoutPath == "-" && in.connectionsPath == "-" {
		return xmain.UsageErrorf("only one of the layout and connections files can be read from stdin")
	}
	outputPath := defaultOutputPath(in.layoutPath)
	if len(args) == 3 {
		outputPath = args[2]
	}
	if ext := filepath.Ext(outputPath); outputPath != "-" && ext != ".svg" && ext != ".png" {
		return xmain.UsageErrorf("unsupported output format %q: use .svg or .png", ext)
	}

	if *watchFlag {
		if in.layoutPath == "-" || in.connectionsPath == "-" {
			return xmain.UsageErrorf("-w[atch] cannot be combined with reading input from stdin")
		}
		w, err := newWatcher(ctx, ms, watcherOpts{
			inputs:        in,
			host:          *hostFlag,
			port:          *portFlag,
			frameInterval: time.Duration(*frameIntervalFlag) * time.Millisecond,
		})
		if err != nil {
			return err
		}
		return w.run()
	}

	return renderOnce(ctx, ms, in, outputPath)
}

type inputs struct {
	layoutPath      string
	connectionsPath string
	options         *connectlines.Options
	strokeWidth     float64
}

func defaultOutputPath(layoutPath string) string {
	if layoutPath == "-" {
		return "-"
	}
	return strings.TrimSuffix(layoutPath, filepath.Ext(layoutPath)) + ".svg"
}

func load(ms *xmain.State, in inputs) (*clresolve.Document, []cltarget.ConnectElement, error) {
	layout, err := ms.ReadPath(in.layoutPath)
	if err != nil {
		return nil, nil, err
	}
	doc, err := clresolve.ParseDocument(bytes.NewReader(layout))
	if err != nil {
		return nil, nil, err
	}
	connections, err := ms.ReadPath(in.connectionsPath)
	if err != nil {
		return nil, nil, err
	}
	elements, err := cltarget.ParseElements(connections)
	if err != nil {
		return nil, nil, err
	}
	return doc, elements, nil
}

func renderOnce(ctx context.Context, ms *xmain.State, in inputs, outputPath string) error {
	doc, elements, err := load(ms, in)
	if err != nil {
		return err
	}

	paths := connectlines.Compute(ctx, doc, elements, in.options)
	snapshot := &cltarget.Snapshot{
		Pass:   1,
		Paths:  paths,
		Colors: cltarget.Colors(elements),
	}
	log.Debug(ctx, "computed snapshot", slog.F("snapshot", string(xjson.Marshal(snapshot))))

	out, err := render(snapshot, doc, outputPath, in.strokeWidth)
	if err != nil {
		return err
	}
	err = ms.WritePath(outputPath, out)
	if err != nil {
		return err
	}

	total := 0
	for _, el := range elements {
		total += len(el.ConnectWith)
	}
	if outputPath != "-" {
		ms.Log.Success.Printf("successfully rendered %d of %d connection%s to %s", len(paths), total, plural(total), ms.HumanPath(outputPath))
	}
	return nil
}

func render(snapshot *cltarget.Snapshot, doc *clresolve.Document, outputPath string, strokeWidth float64) ([]byte, error) {
	width, height := doc.Viewport()
	if filepath.Ext(outputPath) == ".png" {
		return clpng.Render(snapshot, &clpng.RenderOpts{
			StrokeWidth: &strokeWidth,
			Width:       int(math.Ceil(width)),
			Height:      int(math.Ceil(height)),
		})
	}
	return clsvg.Render(snapshot, &clsvg.RenderOpts{
		StrokeWidth: &strokeWidth,
		Width:       width,
		Height:      height,
	}), nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

