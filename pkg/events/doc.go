// Package events provides the event emitter every nativekit wrapper is built on.
//
// An [Emitter] maps event names to ordered listener lists. An [Object] pairs
// one Emitter with a chain of [Resolver] layers. Each layer is a [Table] of
// setup functions bound to a wrapper value. The first time anyone listens
// for an event, the setup function of the first layer recognizing it runs,
// typically to attach a native delegate, and only then is the listener
// registered.
//
// Wrappers that embed another wrapper call [Extend] to push their own layer
// in front of the parent's. Events the child does not recognize fall through
// to the parent's layers, so the parent's events and setup keep working.
//
//	base := events.Compose(events.Bind(v, events.Layer[*View]{
//		Class: "View",
//		Table: events.Table[*View]{"tap": (*View).attachTouch},
//	}))
//	page := events.Extend(base, events.Bind(p, events.Layer[*Page]{
//		Class: "Page",
//		Table: events.Table[*Page]{"show": (*Page).attachLifecycle},
//	}))
//	page.On("tap", onTap) // runs View's setup, fires when the view emits "tap"
package events
