package clschedule

import (
	"sort"

	"oss.terrastruct.com/connectlines/clresolve"
)

const (
	viewportResize clresolve.EventKind = "resize"
	viewportScroll clresolve.EventKind = "scroll"
)

// Signals is an Environment fed by its owner: the Fire methods deliver
// viewport and element resize signals to whoever registered for them.
type Signals struct {
	listeners clresolve.Listeners
	observers map[*signalObserver]struct{}
}

func NewSignals() *Signals {
	return &Signals{
		observers: make(map[*signalObserver]struct{}),
	}
}

func (s *Signals) OnViewportResize(fn func()) func() {
	return s.listeners.Add(viewportResize, fn)
}

func (s *Signals) OnViewportScroll(fn func()) func() {
	return s.listeners.Add(viewportScroll, fn)
}

func (s *Signals) OnPointerUp(fn func()) func() {
	return s.listeners.Add(clresolve.PointerUp, fn)
}

func (s *Signals) FireViewportResize() { s.listeners.Dispatch(viewportResize) }
func (s *Signals) FireViewportScroll() { s.listeners.Dispatch(viewportScroll) }
func (s *Signals) FirePointerUp()      { s.listeners.Dispatch(clresolve.PointerUp) }

// Listeners returns the number of registered viewport listeners.
func (s *Signals) Listeners() int {
	return s.listeners.Len()
}

func (s *Signals) NewResizeObserver(fn func()) ResizeObserver {
	o := &signalObserver{
		signals:  s,
		fn:       fn,
		observed: make(map[string]struct{}),
	}
	s.observers[o] = struct{}{}
	return o
}

// FireElementResize notifies every observer watching at least one of keys,
// once per observer.
func (s *Signals) FireElementResize(keys ...string) {
	var notify []*signalObserver
	for o := range s.observers {
		for _, key := range keys {
			if _, ok := o.observed[key]; ok {
				notify = append(notify, o)
				break
			}
		}
	}
	for _, o := range notify {
		o.fn()
	}
}

// Observed returns the sorted keys observed by any live observer.
func (s *Signals) Observed() []string {
	set := make(map[string]struct{})
	for o := range s.observers {
		for key := range o.observed {
			set[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Observers returns the number of observers that have not been disconnected.
func (s *Signals) Observers() int {
	return len(s.observers)
}

type signalObserver struct {
	signals  *Signals
	fn       func()
	observed map[string]struct{}
}

func (o *signalObserver) Observe(el clresolve.Element) {
	o.observed[el.Key()] = struct{}{}
}

func (o *signalObserver) Unobserve(el clresolve.Element) {
	delete(o.observed, el.Key())
}

func (o *signalObserver) Disconnect() {
	o.observed = make(map[string]struct{})
	delete(o.signals.observers, o)
}
