package events

import "sort"

// Table maps event names to setup functions. A setup function runs once per
// event name per object, the first time a listener is registered for that
// event. A nil setup marks the event as recognized with nothing to attach.
type Table[T any] map[string]func(T) error

// Layer describes one wrapper class's contribution to an object's events.
type Layer[T any] struct {
	// Class names the wrapper, e.g. "Sound" or "Page".
	Class string
	// Table holds the events this layer recognizes.
	Table Table[T]
	// OnRegister, if set, runs after the setup function on every successful
	// registration for an event this layer recognizes.
	OnRegister func(T) error
	// Events lists the recognized events for introspection. Defaults to the
	// sorted keys of Table.
	Events []string
}

// Binding is an event's setup and register hook, bound to its target.
type Binding struct {
	Class    string
	Setup    func() error
	Register func() error
}

// Resolver answers whether one layer recognizes an event.
type Resolver interface {
	// Class names the layer.
	Class() string
	// Resolve returns the bound setup for event, if recognized.
	Resolve(event string) (Binding, bool)
	// Events lists the events the layer recognizes.
	Events() []string
}

type boundLayer[T any] struct {
	target T
	layer  Layer[T]
	names  []string
}

// Bind attaches a layer to its target, producing a Resolver.
func Bind[T any](target T, layer Layer[T]) Resolver {
	names := layer.Events
	if len(names) == 0 {
		names = make([]string, 0, len(layer.Table))
		for name := range layer.Table {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	return &boundLayer[T]{target: target, layer: layer, names: names}
}

func (b *boundLayer[T]) Class() string {
	return b.layer.Class
}

func (b *boundLayer[T]) Events() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

func (b *boundLayer[T]) Resolve(event string) (Binding, bool) {
	setup, ok := b.layer.Table[event]
	if !ok {
		return Binding{}, false
	}
	binding := Binding{Class: b.layer.Class}
	if setup != nil {
		binding.Setup = func() error { return setup(b.target) }
	}
	if hook := b.layer.OnRegister; hook != nil {
		binding.Register = func() error { return hook(b.target) }
	}
	return binding, true
}
