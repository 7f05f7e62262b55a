package events

import (
	"sync"

	"github.com/go-drift/nativekit/pkg/errors"
)

// Object is an emitter with a resolver chain in front of it. Registration
// goes through the chain; Off and Emit go straight to the emitter.
//
// Objects created with Extend share the emitter and the per-instance setup
// record of the object they extend.
type Object struct {
	shared *objectState
	chain  []Resolver
}

type objectState struct {
	emitterOnce sync.Once
	emitter     *Emitter
	class       string

	mu       sync.Mutex
	prepared map[setupKey]bool

	strict   bool
	observer Observer
}

// setupKey identifies one layer's setup for one event. Layers sharing an
// event name keep separate records, so the parent's setup still runs when
// the parent object is used directly.
type setupKey struct {
	class, event string
}

// Option configures an Object.
type Option func(*objectState)

// WithStrictEvents makes On return ErrUnsupportedEvent for events no layer
// recognizes instead of silently ignoring them.
func WithStrictEvents() Option {
	return func(s *objectState) { s.strict = true }
}

// WithObserver attaches an Observer to the object's emitter.
func WithObserver(o Observer) Option {
	return func(s *objectState) { s.observer = o }
}

// Compose creates an object whose chain holds the single layer r.
func Compose(r Resolver, opts ...Option) *Object {
	s := &objectState{
		class:    r.Class(),
		prepared: make(map[setupKey]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return &Object{shared: s, chain: []Resolver{r}}
}

// Extend layers r on top of parent. The returned object consults r first
// and falls back to parent's chain for events r does not recognize.
func Extend(parent *Object, r Resolver) *Object {
	chain := make([]Resolver, 0, len(parent.chain)+1)
	chain = append(chain, r)
	chain = append(chain, parent.chain...)
	return &Object{shared: parent.shared, chain: chain}
}

// Emitter returns the underlying emitter, creating it on first use.
func (o *Object) Emitter() *Emitter {
	s := o.shared
	s.emitterOnce.Do(func() {
		opts := []EmitterOption{WithClass(s.class)}
		if s.observer != nil {
			opts = append(opts, WithEmitterObserver(s.observer))
		}
		s.emitter = NewEmitter(opts...)
	})
	return s.emitter
}

// Class names the outermost layer.
func (o *Object) Class() string {
	return o.chain[0].Class()
}

// Events lists every recognized event, outermost layer first, without duplicates.
func (o *Object) Events() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range o.chain {
		for _, name := range r.Events() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Recognizes reports whether any layer in the chain recognizes event.
func (o *Object) Recognizes(event string) bool {
	_, ok := o.resolve(event)
	return ok
}

// On registers l for event. The first layer recognizing the event runs its
// setup (once per event for this object) and register hook, then the
// listener is added to the emitter. Events no layer recognizes are ignored
// and a no-op Unsubscribe is returned, unless the object is strict.
func (o *Object) On(event string, l Listener) (Unsubscribe, error) {
	return o.register("On", event, l, false)
}

// Once is like On but the listener is removed after its first delivery.
func (o *Object) Once(event string, l Listener) (Unsubscribe, error) {
	return o.register("Once", event, l, true)
}

// Off removes the earliest registration of l for event.
func (o *Object) Off(event string, l Listener) {
	o.Emitter().Off(event, l)
}

// Emit dispatches event to its listeners.
func (o *Object) Emit(event string, args ...any) {
	o.Emitter().Emit(event, args...)
}

func (o *Object) register(method, event string, l Listener, once bool) (Unsubscribe, error) {
	op := o.Class() + "." + method
	if l == nil {
		return noop, errors.InvalidArgument(op, event, "listener must be a function")
	}

	binding, ok := o.resolve(event)
	if !ok {
		if obs := o.shared.observer; obs != nil {
			obs.Unsupported(o.Class(), event)
		}
		if o.shared.strict {
			return noop, errors.UnsupportedEvent(op, o.Class(), event)
		}
		return noop, nil
	}

	if err := o.shared.prepare(event, binding); err != nil {
		return noop, errors.Native(binding.Class+".setup", event, err)
	}
	if binding.Register != nil {
		if err := binding.Register(); err != nil {
			return noop, errors.Native(binding.Class+".register", event, err)
		}
	}

	if once {
		return o.Emitter().Once(event, l)
	}
	return o.Emitter().On(event, l)
}

func (o *Object) resolve(event string) (Binding, bool) {
	for _, r := range o.chain {
		if b, ok := r.Resolve(event); ok {
			return b, true
		}
	}
	return Binding{}, false
}

// prepare runs the layer's setup for event unless it already succeeded. The lock is
// held across setup, so setup functions must not register listeners on the
// same object.
func (s *objectState) prepare(event string, b Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := setupKey{class: b.Class, event: event}
	if s.prepared[key] {
		return nil
	}
	if b.Setup != nil {
		if err := b.Setup(); err != nil {
			return err
		}
	}
	s.prepared[key] = true
	return nil
}
