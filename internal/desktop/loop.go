// Package desktop provides a host environment for running nativekit code
// off-device: a single-goroutine UI loop and a loopback native bridge.
package desktop

import (
	"context"
	"sync"
	"time"
)

// Loop serializes callbacks onto the goroutine that calls Run. Post never
// blocks, so callbacks may post further callbacks.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	pending int
	wake    chan struct{}
}

// NewLoop returns an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. It is suitable as a platform.Host dispatch function.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// AfterFunc posts fn once d has elapsed. The loop counts it as pending
// work until it runs or the returned stop function is called.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	var once sync.Once
	done := func() {
		once.Do(func() {
			l.mu.Lock()
			l.pending--
			l.mu.Unlock()
			l.signal()
		})
	}
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			done()
			fn()
		})
	})
	return func() bool {
		stopped := t.Stop()
		if stopped {
			done()
		}
		return stopped
	}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

func (l *Loop) idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) == 0 && l.pending == 0
}

// Run processes callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for _, fn := range l.take() {
			fn()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunUntilIdle processes callbacks until nothing is queued, no timer is
// pending, and nothing new arrives for quiet. It returns early with
// ctx.Err() if ctx is done.
func (l *Loop) RunUntilIdle(ctx context.Context, quiet time.Duration) error {
	timer := time.NewTimer(quiet)
	defer timer.Stop()
	for {
		ran := false
		for _, fn := range l.take() {
			fn()
			ran = true
		}
		if ran || !l.idle() {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(quiet)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-timer.C:
			if l.idle() {
				return nil
			}
			timer.Reset(quiet)
		}
	}
}
