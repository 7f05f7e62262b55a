package events

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/go-drift/nativekit/pkg/errors"
)

// Listener receives the arguments passed to Emit.
type Listener func(args ...any)

// Unsubscribe removes the registration it was returned for. Calling it more
// than once is a no-op.
type Unsubscribe func()

// Observer is notified of emitter activity. Implementations must not call
// back into the emitter.
type Observer interface {
	Registered(class, event string)
	Emitted(class, event string, listeners int)
	ListenerPanicked(class, event string)
	Unsupported(class, event string)
}

type registration struct {
	id     uint64
	key    uintptr
	fn     Listener
	once   bool
	active atomic.Bool
}

// Emitter is an in-process publish/subscribe registry keyed by event name.
//
// Listeners run synchronously on the goroutine calling Emit, outside the
// emitter's lock, so a listener may register or remove listeners (including
// itself) while being dispatched. The zero value is not usable; use NewEmitter.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]*registration
	nextID    uint64

	class    string
	observer Observer
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithClass names the owner of the emitter in reports and metrics.
func WithClass(class string) EmitterOption {
	return func(e *Emitter) { e.class = class }
}

// WithEmitterObserver attaches an Observer.
func WithEmitterObserver(o Observer) EmitterOption {
	return func(e *Emitter) { e.observer = o }
}

// NewEmitter creates an empty emitter.
func NewEmitter(opts ...EmitterOption) *Emitter {
	e := &Emitter{listeners: make(map[string][]*registration)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Class returns the owner name the emitter was created with.
func (e *Emitter) Class() string {
	return e.class
}

// On registers l for event. The same function may be registered more than
// once; every registration is invoked.
func (e *Emitter) On(event string, l Listener) (Unsubscribe, error) {
	return e.add("events.On", event, l, false)
}

// Once registers l for a single delivery of event.
func (e *Emitter) Once(event string, l Listener) (Unsubscribe, error) {
	return e.add("events.Once", event, l, true)
}

func (e *Emitter) add(op, event string, l Listener, once bool) (Unsubscribe, error) {
	if l == nil {
		return noop, errors.InvalidArgument(op, event, "listener must be a function")
	}

	e.mu.Lock()
	e.nextID++
	reg := &registration{id: e.nextID, key: listenerKey(l), fn: l, once: once}
	reg.active.Store(true)
	e.listeners[event] = append(e.listeners[event], reg)
	e.mu.Unlock()

	if e.observer != nil {
		e.observer.Registered(e.class, event)
	}
	return func() { e.remove(event, reg) }, nil
}

// Off removes the earliest registration of l for event. It is a no-op when
// l is not registered. Functions are matched by identity: two distinct
// closures created from the same literal are different listeners.
func (e *Emitter) Off(event string, l Listener) {
	if l == nil {
		return
	}
	key := listenerKey(l)

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, reg := range e.listeners[event] {
		if reg.key == key {
			e.removeLocked(event, reg)
			return
		}
	}
}

// RemoveAll drops every listener for event.
func (e *Emitter) RemoveAll(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, reg := range e.listeners[event] {
		reg.active.Store(false)
	}
	delete(e.listeners, event)
}

// Emit invokes the listeners registered for event, in registration order,
// passing args. A listener that panics is recovered and reported through
// errors.ReportPanic; the remaining listeners still run.
func (e *Emitter) Emit(event string, args ...any) {
	e.mu.Lock()
	regs := e.listeners[event]
	snapshot := make([]*registration, len(regs))
	copy(snapshot, regs)
	e.mu.Unlock()

	if e.observer != nil {
		e.observer.Emitted(e.class, event, len(snapshot))
	}

	for _, reg := range snapshot {
		if !reg.active.Load() {
			continue
		}
		if reg.once {
			e.remove(event, reg)
		}
		e.invoke(event, reg.fn, args)
	}
}

func (e *Emitter) invoke(event string, fn Listener, args []any) {
	defer func() {
		if r := recover(); r != nil {
			errors.ReportPanic(&errors.PanicError{
				Op:         e.opName("Emit"),
				Event:      event,
				Value:      r,
				StackTrace: errors.CaptureStack(),
			})
			if e.observer != nil {
				e.observer.ListenerPanicked(e.class, event)
			}
		}
	}()
	fn(args...)
}

// ListenerCount returns the number of registrations for event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// EventNames returns the events that currently have listeners.
func (e *Emitter) EventNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.listeners))
	for name := range e.listeners {
		names = append(names, name)
	}
	return names
}

func (e *Emitter) remove(event string, reg *registration) {
	e.mu.Lock()
	e.removeLocked(event, reg)
	e.mu.Unlock()
}

func (e *Emitter) removeLocked(event string, reg *registration) {
	if !reg.active.CompareAndSwap(true, false) {
		return
	}
	regs := e.listeners[event]
	for i, r := range regs {
		if r.id == reg.id {
			regs = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(regs) == 0 {
		delete(e.listeners, event)
	} else {
		e.listeners[event] = regs
	}
}

func (e *Emitter) opName(method string) string {
	if e.class == "" {
		return "events." + method
	}
	return e.class + "." + method
}

// listenerKey returns the address of the closure behind l. Distinct closure
// values get distinct keys; a top-level function always has the same key.
func listenerKey(l Listener) uintptr {
	return *(*uintptr)(unsafe.Pointer(&l))
}

func noop() {}
