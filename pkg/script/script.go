// Package script exposes event-emitting objects to JavaScript.
//
// A bound object gets on, once, off, emit and events methods:
//
//	const off = sound.on("ready", (ms) => console.log("ready", ms))
//	off()
//
// goja runtimes are not safe for concurrent use. Emit on bound objects only
// from the goroutine that runs the script, which for a platform.Host is the
// UI thread its dispatch function targets.
package script

import (
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/events"
)

// Emitter is the surface Bind exposes. *events.Object implements it, as
// does every wrapper embedding one.
type Emitter interface {
	On(event string, l events.Listener) (events.Unsubscribe, error)
	Once(event string, l events.Listener) (events.Unsubscribe, error)
	Off(event string, l events.Listener)
	Emit(event string, args ...any)
	Events() []string
}

// jsListener ties a JS function to the Go listener registered for it.
type jsListener struct {
	event       string
	fn          goja.Value
	unsubscribe events.Unsubscribe
}

type binding struct {
	vm  *goja.Runtime
	obj Emitter

	mu        sync.Mutex
	listeners []*jsListener
}

// Bind returns a new JS object forwarding to obj.
func Bind(vm *goja.Runtime, obj Emitter) *goja.Object {
	target := vm.NewObject()
	install(vm, target, obj)
	return target
}

func install(vm *goja.Runtime, target *goja.Object, obj Emitter) {
	b := &binding{vm: vm, obj: obj}
	must(target.Set("on", b.on(obj.On, false)))
	must(target.Set("once", b.on(obj.Once, true)))
	must(target.Set("off", b.off))
	must(target.Set("emit", b.emit))
	must(target.Set("events", func() []string { return obj.Events() }))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// on builds the JS on/once method. A once entry forgets itself when it is
// delivered, so a later off cannot match a registration the emitter already
// dropped.
func (b *binding) on(register func(string, events.Listener) (events.Unsubscribe, error), once bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		event := call.Argument(0).String()
		fnValue := call.Argument(1)
		fn, ok := goja.AssertFunction(fnValue)
		if !ok {
			panic(b.vm.NewTypeError("listener for %q must be a function", event))
		}

		entry := &jsListener{event: event, fn: fnValue}
		l := b.listener(event, fn)
		if once {
			deliver := l
			l = func(args ...any) {
				b.forget(entry)
				deliver(args...)
			}
		}
		unsubscribe, err := register(event, l)
		if err != nil {
			panic(b.vm.NewGoError(err))
		}
		entry.unsubscribe = unsubscribe

		b.mu.Lock()
		b.listeners = append(b.listeners, entry)
		b.mu.Unlock()

		return b.vm.ToValue(func() { b.drop(entry) })
	}
}

// listener adapts fn. Exceptions thrown by fn are reported like Go panics
// and do not reach the emitter.
func (b *binding) listener(event string, fn goja.Callable) events.Listener {
	return func(args ...any) {
		jsArgs := make([]goja.Value, len(args))
		for i, arg := range args {
			jsArgs[i] = b.vm.ToValue(toJS(arg))
		}
		if _, err := fn(goja.Undefined(), jsArgs...); err != nil {
			errors.ReportPanic(&errors.PanicError{
				Op:         "script.listener",
				Event:      event,
				Value:      err,
				StackTrace: exceptionStack(err),
				Timestamp:  time.Now(),
			})
		}
	}
}

// off removes the earliest registration of fn for event.
func (b *binding) off(event string, fn goja.Value) {
	b.mu.Lock()
	var found *jsListener
	for _, l := range b.listeners {
		if l.event == event && l.fn.SameAs(fn) {
			found = l
			break
		}
	}
	b.mu.Unlock()
	if found != nil {
		b.drop(found)
	}
}

func (b *binding) drop(entry *jsListener) {
	b.forget(entry)
	entry.unsubscribe()
}

func (b *binding) forget(entry *jsListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l == entry {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

func (b *binding) emit(call goja.FunctionCall) goja.Value {
	event := call.Argument(0).String()
	var args []any
	if len(call.Arguments) > 1 {
		args = make([]any, len(call.Arguments)-1)
		for i, v := range call.Arguments[1:] {
			args[i] = v.Export()
		}
	}
	b.obj.Emit(event, args...)
	return goja.Undefined()
}

// toJS converts values emitted by Go wrappers into script-friendly ones.
func toJS(v any) any {
	switch v := v.(type) {
	case time.Duration:
		return v.Milliseconds()
	case error:
		return v.Error()
	case goja.Value:
		return v
	case interface{ String() string }:
		return v.String()
	default:
		return v
	}
}

func exceptionStack(err error) string {
	if ex, ok := err.(*goja.Exception); ok {
		return ex.String()
	}
	return ""
}
