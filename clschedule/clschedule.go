// Package clschedule decides when a recompute pass runs.
//
// Triggers are coalesced into at most one pending frame. Pointer and touch
// movement only counts while an interaction started on a watched element is
// active. Nothing in this package is safe for concurrent use: every call is
// expected to come from one goroutine, usually a Loop.
package clschedule

import (
	"oss.terrastruct.com/connectlines/clresolve"
)

// FrameSource runs callbacks at the next display frame.
type FrameSource interface {
	// RequestFrame schedules fn for the next frame. Calling cancel before the
	// frame fires guarantees fn does not run.
	RequestFrame(fn func()) (cancel func())
}

// Environment is the source of viewport level signals.
type Environment interface {
	OnViewportResize(fn func()) (remove func())
	OnViewportScroll(fn func()) (remove func())
	// OnPointerUp fires for pointer and touch releases anywhere in the
	// viewport.
	OnPointerUp(fn func()) (remove func())
	NewResizeObserver(fn func()) ResizeObserver
}

// ResizeObserver calls back when an observed element changes size.
type ResizeObserver interface {
	Observe(el clresolve.Element)
	Unobserve(el clresolve.Element)
	Disconnect()
}

type watch struct {
	el      clresolve.Element
	release []func()
}

// Scheduler owns the pending frame token, the interaction flag and every
// listener registered on behalf of the pipeline.
type Scheduler struct {
	frames    FrameSource
	env       Environment
	recompute func()

	pending     func()
	interacting bool
	started     bool
	closed      bool

	envRelease []func()
	observer   ResizeObserver
	watched    map[string]*watch

	// Frames counts recompute passes run so far.
	Frames int
}

func New(frames FrameSource, env Environment, recompute func()) *Scheduler {
	return &Scheduler{
		frames:    frames,
		env:       env,
		recompute: recompute,
		watched:   make(map[string]*watch),
	}
}

// Start registers the viewport listeners and schedules the initial pass.
func (s *Scheduler) Start() {
	if s.started || s.closed {
		return
	}
	s.started = true
	s.envRelease = append(s.envRelease,
		s.env.OnViewportResize(s.Request),
		s.env.OnViewportScroll(s.Request),
		s.env.OnPointerUp(s.pointerUp),
	)
	s.Request()
}

// Request schedules a recompute for the next frame unless one is pending.
func (s *Scheduler) Request() {
	if s.closed || s.pending != nil {
		return
	}
	s.pending = s.frames.RequestFrame(s.frame)
}

func (s *Scheduler) frame() {
	if s.closed {
		return
	}
	s.pending = nil
	s.Frames++
	s.recompute()
}

// Pending reports whether a frame is scheduled.
func (s *Scheduler) Pending() bool {
	return s.pending != nil
}

// Interacting reports whether a pointer or touch is down on a watched element.
func (s *Scheduler) Interacting() bool {
	return s.interacting
}

func (s *Scheduler) pointerDown() {
	s.interacting = true
}

func (s *Scheduler) pointerUp() {
	s.interacting = false
}

func (s *Scheduler) pointerMove() {
	if s.interacting {
		s.Request()
	}
}

func (s *Scheduler) listener(kind clresolve.EventKind) func() {
	switch {
	case kind.IsDown():
		return s.pointerDown
	case kind.IsUp():
		return s.pointerUp
	default:
		return s.pointerMove
	}
}

// Watch makes elements the set of participating elements. Elements new to the
// set get interaction listeners and a resize observation. Elements that left
// the set have theirs released.
func (s *Scheduler) Watch(elements []clresolve.Element) {
	if s.closed {
		return
	}

	keep := make(map[string]struct{}, len(elements))
	for _, el := range elements {
		keep[el.Key()] = struct{}{}
	}
	for key, w := range s.watched {
		if _, ok := keep[key]; !ok {
			s.unwatch(key, w)
		}
	}

	for _, el := range elements {
		if _, ok := s.watched[el.Key()]; ok {
			continue
		}
		w := &watch{el: el}
		for _, kind := range clresolve.InteractionEvents {
			w.release = append(w.release, el.AddListener(kind, s.listener(kind)))
		}
		if s.observer == nil {
			s.observer = s.env.NewResizeObserver(s.Request)
		}
		s.observer.Observe(el)
		s.watched[el.Key()] = w
	}
}

func (s *Scheduler) unwatch(key string, w *watch) {
	for _, release := range w.release {
		release()
	}
	delete(s.watched, key)
	if s.observer == nil {
		return
	}
	s.observer.Unobserve(w.el)
	if len(s.watched) == 0 {
		s.observer.Disconnect()
		s.observer = nil
	}
}

// Watched returns the keys of the participating elements.
func (s *Scheduler) Watched() []string {
	keys := make([]string, 0, len(s.watched))
	for key := range s.watched {
		keys = append(keys, key)
	}
	return keys
}

// Close cancels the pending frame and releases every listener and
// observation. The scheduler is unusable afterwards.
func (s *Scheduler) Close() {
	if s.closed {
		return
	}
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
	for key, w := range s.watched {
		s.unwatch(key, w)
	}
	for _, release := range s.envRelease {
		release()
	}
	s.envRelease = nil
	s.interacting = false
	s.closed = true
}
