package clschedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop runs posted callbacks one at a time on the goroutine calling Run.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		queue: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Post queues fn. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case l.queue <- fn:
		return true
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if !l.Post(func() {
		fn()
		close(ran)
	}) {
		return context.Canceled
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		}
	}
}

// TickerFrames is a FrameSource firing on frame boundaries of a fixed
// interval. Callbacks run on the loop.
type TickerFrames struct {
	loop     *Loop
	interval time.Duration
	epoch    time.Time
}

func NewTickerFrames(loop *Loop, interval time.Duration) *TickerFrames {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &TickerFrames{
		loop:     loop,
		interval: interval,
		epoch:    time.Now(),
	}
}

func (f *TickerFrames) RequestFrame(fn func()) func() {
	var cancelled int32
	delay := f.interval - time.Since(f.epoch)%f.interval
	t := time.AfterFunc(delay, func() {
		f.loop.Post(func() {
			if atomic.LoadInt32(&cancelled) == 0 {
				fn()
			}
		})
	})
	return func() {
		atomic.StoreInt32(&cancelled, 1)
		t.Stop()
	}
}
