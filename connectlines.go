// Package connectlines computes orthogonal connector lines between laid out
// elements and keeps the latest result current as layout changes.
package connectlines

import (
	"context"
	"sync/atomic"

	"cdr.dev/slog"

	"oss.terrastruct.com/connectlines/clgroup"
	"oss.terrastruct.com/connectlines/clpath"
	"oss.terrastruct.com/connectlines/clresolve"
	"oss.terrastruct.com/connectlines/clroute"
	"oss.terrastruct.com/connectlines/clschedule"
	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/log"
)

type Options struct {
	// CornerRadius rounds route elbows. Zero draws sharp corners.
	CornerRadius float64
}

// Compute runs one recompute pass: it groups elements, routes and serializes
// every connection, and keeps the ones that produced drawable paths. Anything
// that cannot be drawn this pass is left out.
func Compute(ctx context.Context, r clresolve.Resolver, elements []cltarget.ConnectElement, opts *Options) []cltarget.PathPoint {
	if opts == nil {
		opts = &Options{}
	}

	var paths []cltarget.PathPoint
	for _, g := range clgroup.Group(ctx, r, elements) {
		if g.From == nil {
			continue
		}
		for _, to := range g.To {
			route := clroute.Route(g.From, to)
			if route == nil {
				log.Debug(ctx, "no route", slog.F("from", g.From.ToString()), slog.F("to", to.Rect.ToString()))
				continue
			}
			d := clpath.Serialize(route, to.Edge, opts.CornerRadius)
			if !clpath.IsRenderable(d) {
				log.Debug(ctx, "dropping malformed path", slog.F("route", route.ToString()), slog.F("d", d))
				continue
			}
			paths = append(paths, cltarget.PathPoint{
				D:      d,
				Rect:   to.Rect,
				Color:  to.Color,
				Edge:   to.Edge,
				Stroke: to.Stroke,
			})
		}
	}
	return paths
}

// Pipeline keeps the latest snapshot of a descriptor list current.
//
// All methods except Latest must be called from the goroutine driving the
// frame source and environment.
type Pipeline struct {
	ctx      context.Context
	resolver clresolve.Resolver
	opts     *Options
	sched    *clschedule.Scheduler

	elements []cltarget.ConnectElement
	colors   []string
	dirty    bool
	pass     uint64
	latest   atomic.Value

	// OnUpdate is called with every new snapshot.
	OnUpdate func(*cltarget.Snapshot)
}

func NewPipeline(ctx context.Context, r clresolve.Resolver, frames clschedule.FrameSource, env clschedule.Environment, opts *Options) *Pipeline {
	if opts == nil {
		opts = &Options{}
	}
	p := &Pipeline{
		ctx:      log.Named(ctx, "pipeline"),
		resolver: r,
		opts:     opts,
		colors:   cltarget.Colors(nil),
	}
	p.sched = clschedule.New(frames, env, p.recompute)
	p.latest.Store(&cltarget.Snapshot{Colors: p.colors})
	return p
}

// Start schedules the first pass and starts listening for viewport changes.
func (p *Pipeline) Start() {
	p.sched.Start()
}

// SetElements replaces the descriptor list and schedules a pass.
func (p *Pipeline) SetElements(elements []cltarget.ConnectElement) {
	p.elements = append([]cltarget.ConnectElement(nil), elements...)
	p.colors = cltarget.Colors(p.elements)
	p.dirty = true
	p.sched.Request()
}

// Request schedules a pass, for callers that know layout changed in a way
// the environment does not signal.
func (p *Pipeline) Request() {
	p.sched.Request()
}

// Dirty reports whether the descriptors changed since the last pass.
func (p *Pipeline) Dirty() bool {
	return p.dirty
}

// Latest returns the most recent snapshot. It is safe to call from any
// goroutine and the result is never modified.
func (p *Pipeline) Latest() *cltarget.Snapshot {
	return p.latest.Load().(*cltarget.Snapshot)
}

func (p *Pipeline) Scheduler() *clschedule.Scheduler {
	return p.sched
}

func (p *Pipeline) recompute() {
	paths := Compute(p.ctx, p.resolver, p.elements, p.opts)
	p.pass++
	snap := &cltarget.Snapshot{
		Pass:   p.pass,
		Paths:  paths,
		Colors: p.colors,
	}
	p.latest.Store(snap)
	p.dirty = false

	p.sched.Watch(clresolve.Referenced(p.resolver, p.elements))
	log.Debug(p.ctx, "recomputed", slog.F("pass", snap.Pass), slog.F("paths", len(snap.Paths)))

	if p.OnUpdate != nil {
		p.OnUpdate(snap)
	}
}

// Close stops scheduling and releases every listener.
func (p *Pipeline) Close() {
	p.sched.Close()
}
