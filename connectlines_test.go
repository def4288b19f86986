package connectlines

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/connectlines/clresolve"
	"oss.terrastruct.com/connectlines/clschedule"
	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/color"
	"oss.terrastruct.com/connectlines/lib/geo"
	"oss.terrastruct.com/connectlines/lib/log"
)

func box(x, y, w, h float64) *geo.Box {
	return geo.NewBox(geo.NewPoint(x, y), w, h)
}

func connect(from string, to ...cltarget.ConnectWith) cltarget.ConnectElement {
	return cltarget.ConnectElement{Element: cltarget.ElementRef{ID: from}, ConnectWith: to}
}

func with(id string, edge cltarget.Edge) cltarget.ConnectWith {
	return cltarget.ConnectWith{Target: cltarget.ElementRef{ID: id}, Edge: edge, Stroke: cltarget.StrokeSolid}
}

func TestCompute(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		elements []*clresolve.BoxElement
		connect  []cltarget.ConnectElement
		radius   float64
		exp      []string
	}{
		{
			name: "right_to_left",
			elements: []*clresolve.BoxElement{
				clresolve.NewBoxElement("a", box(0, 0, 100, 50)),
				clresolve.NewBoxElement("b", box(300, 0, 100, 50)),
			},
			connect: []cltarget.ConnectElement{connect("a", with("b", cltarget.EdgeRight))},
			exp:     []string{"M 100 25 L 300 25"},
		},
		{
			name: "rounded_z",
			elements: []*clresolve.BoxElement{
				clresolve.NewBoxElement("a", box(0, 0, 100, 50)),
				clresolve.NewBoxElement("b", box(300, 100, 100, 50)),
			},
			connect: []cltarget.ConnectElement{connect("a", with("b", cltarget.EdgeRight))},
			radius:  10,
			exp:     []string{"M 100 25 L 190 25 S 200 25 200 35 L 200 115 S 200 125 210 125 L 300 125"},
		},
		{
			name: "drops_unresolved_and_degenerate",
			elements: []*clresolve.BoxElement{
				clresolve.NewBoxElement("a", box(0, 0, 100, 50)),
				clresolve.NewBoxElement("b", box(0, 200, 100, 50)),
				clresolve.NewBoxElement("flat", box(300, 0, 100, 0)),
			},
			connect: []cltarget.ConnectElement{
				connect("a",
					with("missing", cltarget.EdgeAuto),
					with("flat", cltarget.EdgeAuto),
					with("a", cltarget.EdgeAuto),
					with("b", cltarget.EdgeAuto),
				),
				connect("missing", with("b", cltarget.EdgeAuto)),
			},
			exp: []string{"M 50 50 L 50 200"},
		},
		{
			name: "order_follows_input",
			elements: []*clresolve.BoxElement{
				clresolve.NewBoxElement("a", box(0, 0, 100, 50)),
				clresolve.NewBoxElement("b", box(300, 0, 100, 50)),
				clresolve.NewBoxElement("c", box(0, 300, 100, 50)),
			},
			connect: []cltarget.ConnectElement{
				connect("b", with("a", cltarget.EdgeLeft)),
				connect("a", with("c", cltarget.EdgeBottom), with("b", cltarget.EdgeRight)),
			},
			exp: []string{"M 300 25 L 100 25", "M 50 50 L 50 300", "M 100 25 L 300 25"},
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := log.WithTB(context.Background(), t, nil)

			h := clresolve.NewHandles(tc.elements...)
			paths := Compute(ctx, h, tc.connect, &Options{CornerRadius: tc.radius})

			var ds []string
			for _, p := range paths {
				ds = append(ds, p.D)
			}
			assert.Equal(t, tc.exp, ds)
			assert.Equal(t, paths, Compute(ctx, h, tc.connect, &Options{CornerRadius: tc.radius}))
		})
	}
}

func TestComputePathPoint(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	h := clresolve.NewHandles(
		clresolve.NewBoxElement("a", box(0, 0, 100, 50)),
		clresolve.NewBoxElement("b", box(300, 0, 100, 50)),
	)
	paths := Compute(ctx, h, []cltarget.ConnectElement{connect("a", cltarget.ConnectWith{
		Target: cltarget.ElementRef{ID: "b"},
		Color:  "red",
		Edge:   cltarget.EdgeRight,
		Stroke: cltarget.StrokeDashed,
	})}, nil)

	require.Len(t, paths, 1)
	assert.Equal(t, cltarget.PathPoint{
		D:      "M 100 25 L 300 25",
		Rect:   box(300, 0, 100, 50),
		Color:  "red",
		Edge:   cltarget.EdgeRight,
		Stroke: cltarget.StrokeDashed,
	}, paths[0])
}

type manualFrames struct {
	pending []func()
}

func (f *manualFrames) RequestFrame(fn func()) func() {
	i := len(f.pending)
	f.pending = append(f.pending, fn)
	return func() {
		if i < len(f.pending) {
			f.pending[i] = nil
		}
	}
}

func (f *manualFrames) tick() {
	pending := f.pending
	f.pending = nil
	for _, fn := range pending {
		if fn != nil {
			fn()
		}
	}
}

func TestPipeline(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	a := clresolve.NewBoxElement("a", box(0, 0, 100, 50))
	b := clresolve.NewBoxElement("b", box(300, 0, 100, 50))
	c := clresolve.NewBoxElement("c", box(0, 300, 100, 50))
	h := clresolve.NewHandles(a, b, c)

	frames := &manualFrames{}
	signals := clschedule.NewSignals()
	p := NewPipeline(ctx, h, frames, signals, nil)

	var updates []*cltarget.Snapshot
	p.OnUpdate = func(s *cltarget.Snapshot) {
		updates = append(updates, s)
	}

	assert.Equal(t, uint64(0), p.Latest().Pass)
	assert.Equal(t, []string{color.Default}, p.Latest().Colors)

	p.Start()
	p.SetElements([]cltarget.ConnectElement{connect("a", cltarget.ConnectWith{
		Target: cltarget.ElementRef{ID: "b"},
		Color:  "#FF0000",
		Edge:   cltarget.EdgeRight,
		Stroke: cltarget.StrokeSolid,
	})})
	assert.True(t, p.Dirty())
	require.Len(t, frames.pending, 1)

	frames.tick()
	first := p.Latest()
	assert.False(t, p.Dirty())
	assert.Equal(t, uint64(1), first.Pass)
	require.Len(t, first.Paths, 1)
	assert.Equal(t, "M 100 25 L 300 25", first.Paths[0].D)
	assert.Equal(t, []string{"#FF0000", color.Default}, first.Colors)
	assert.ElementsMatch(t, []string{"#a", "#b"}, p.Scheduler().Watched())
	assert.Equal(t, []*cltarget.Snapshot{first}, updates)

	// Layout moves, an observed element reports a resize.
	b.Box = box(300, 100, 100, 50)
	signals.FireElementResize("#b")
	frames.tick()
	second := p.Latest()
	assert.Equal(t, uint64(2), second.Pass)
	assert.Equal(t, "M 100 25 L 200 25 L 200 125 L 300 125", second.Paths[0].D)
	assert.Equal(t, "M 100 25 L 300 25", first.Paths[0].D)

	// Dragging b recomputes, hovering does not.
	b.Listeners.Dispatch(clresolve.PointerMove)
	assert.Empty(t, frames.pending)
	b.Listeners.Dispatch(clresolve.PointerDown)
	b.Box = box(300, 0, 100, 50)
	b.Listeners.Dispatch(clresolve.PointerMove)
	frames.tick()
	assert.Equal(t, "M 100 25 L 300 25", p.Latest().Paths[0].D)
	signals.FirePointerUp()

	// Retargeting releases elements no descriptor references anymore.
	p.SetElements([]cltarget.ConnectElement{connect("a", with("c", cltarget.EdgeAuto))})
	frames.tick()
	assert.ElementsMatch(t, []string{"#a", "#c"}, p.Scheduler().Watched())
	assert.Equal(t, 0, b.Listeners.Len())
	assert.Equal(t, []string{"#a", "#c"}, signals.Observed())
	assert.Len(t, updates, 4)

	p.Close()
	assert.Equal(t, 0, a.Listeners.Len())
	assert.Equal(t, 0, c.Listeners.Len())
	assert.Equal(t, 0, signals.Observers())
	assert.Equal(t, 0, signals.Listeners())

	signals.FireViewportResize()
	assert.Empty(t, frames.pending)
}
