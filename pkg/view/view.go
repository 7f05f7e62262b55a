// Package view wraps native views and pages.
//
// View is the base wrapper. Page extends it with events.Extend: the page's
// own layer is consulted first and the view's layer second, over one shared
// emitter.
package view

import (
	"sync"

	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/events"
	"github.com/go-drift/nativekit/pkg/platform"
	"github.com/go-drift/nativekit/pkg/props"
)

// Channel names shared with the native view implementation.
const (
	MethodChannelName  = "nativekit/view"
	GestureChannelName = "nativekit/view/gestures"
	LayoutChannelName  = "nativekit/view/layout"
)

// Events emitted by a View.
const (
	EventTap       = "tap"       // args: x, y float64
	EventLongPress = "longpress" // args: x, y float64
	EventLayout    = "layout"    // args: Frame
)

// Frame is a view's position and size in points.
type Frame struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Props are the property values accepted by New.
type Props struct {
	BackgroundColor    string  `prop:"backgroundColor"`
	Visible            *bool   `prop:"visible"`
	Opacity            float64 `prop:"opacity"`
	AccessibilityLabel string  `prop:"accessibilityLabel"`
}

func (p Props) args() map[string]any {
	args := map[string]any{}
	if p.BackgroundColor != "" {
		args["backgroundColor"] = p.BackgroundColor
	}
	if p.Visible != nil {
		args["visible"] = *p.Visible
	}
	if p.Opacity != 0 {
		args["opacity"] = p.Opacity
	}
	if p.AccessibilityLabel != "" {
		args["accessibilityLabel"] = p.AccessibilityLabel
	}
	return args
}

// View is a native view handle.
type View struct {
	*events.Object

	host    *platform.Host
	channel *platform.MethodChannel
	kind    string

	mu       sync.Mutex
	id       int64
	frame    Frame
	gestures *platform.Subscription
	layout   *platform.Subscription

	// OnTap is called before "tap" listeners.
	OnTap func(x, y float64)
}

// New creates a native view.
func New(host *platform.Host, bag props.Bag, opts ...events.Option) (*View, error) {
	var p Props
	if err := props.Apply(bag, &p); err != nil {
		return nil, err
	}
	v := newView(host, "view")
	v.Object = events.Compose(v.resolver(), opts...)
	if err := v.create(p.args()); err != nil {
		return nil, err
	}
	return v, nil
}

func newView(host *platform.Host, kind string) *View {
	return &View{
		host:    host,
		channel: host.MethodChannel(MethodChannelName),
		kind:    kind,
		id:      host.NextID(),
	}
}

func (v *View) resolver() events.Resolver {
	return events.Bind(v, events.Layer[*View]{
		Class: "View",
		Table: events.Table[*View]{
			EventTap:       func(v *View) error { return v.enableGesture(EventTap) },
			EventLongPress: func(v *View) error { return v.enableGesture(EventLongPress) },
			EventLayout:    (*View).observeLayout,
		},
	})
}

func (v *View) create(args map[string]any) error {
	args["kind"] = v.kind
	if _, err := v.invoke("create", args); err != nil {
		return errors.Native("View.create", "", err)
	}
	return nil
}

// ID returns the native handle, or 0 after Dispose.
func (v *View) ID() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.id
}

// Frame returns the last reported layout.
func (v *View) Frame() Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}

func (v *View) enableGesture(gesture string) error {
	if _, err := v.invoke("enableGesture", map[string]any{"gesture": gesture}); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gestures == nil {
		v.gestures = v.subscribe(GestureChannelName, "View.gestureStream", v.handleGesture)
	}
	return nil
}

func (v *View) observeLayout() error {
	if _, err := v.invoke("observeLayout", nil); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.layout = v.subscribe(LayoutChannelName, "View.layoutStream", v.handleLayout)
	return nil
}

// subscribe routes payloads addressed to this view from a shared channel.
func (v *View) subscribe(channel, op string, handle func(m map[string]any)) *platform.Subscription {
	return v.host.EventChannel(channel).Listen(platform.EventHandler{
		OnEvent: func(data any) {
			m, ok := data.(map[string]any)
			if !ok {
				errors.Report(&errors.KitError{
					Op:      op,
					Kind:    errors.KindParsing,
					Channel: channel,
					Err:     &errors.ParseError{Channel: channel, DataType: "map", Got: data},
				})
				return
			}
			if id, _ := platform.ToInt64(m["viewId"]); id == 0 || id != v.ID() {
				return
			}
			handle(m)
		},
		OnError: func(err error) {
			errors.Report(&errors.KitError{Op: op, Kind: errors.KindNative, Channel: channel, Err: err})
		},
	})
}

func (v *View) handleGesture(m map[string]any) {
	x, _ := platform.ToFloat64(m["x"])
	y, _ := platform.ToFloat64(m["y"])
	switch gesture := platform.ParseString(m["gesture"]); gesture {
	case EventTap:
		v.host.Dispatch(func() {
			if v.OnTap != nil {
				v.OnTap(x, y)
			}
			v.Emit(EventTap, x, y)
		})
	case EventLongPress:
		v.host.Dispatch(func() { v.Emit(EventLongPress, x, y) })
	}
}

func (v *View) handleLayout(m map[string]any) {
	var f Frame
	f.X, _ = platform.ToFloat64(m["x"])
	f.Y, _ = platform.ToFloat64(m["y"])
	f.Width, _ = platform.ToFloat64(m["width"])
	f.Height, _ = platform.ToFloat64(m["height"])

	v.mu.Lock()
	changed := f != v.frame
	v.frame = f
	v.mu.Unlock()

	if changed {
		v.host.Dispatch(func() { v.Emit(EventLayout, f) })
	}
}

func (v *View) invoke(method string, args map[string]any) (any, error) {
	id := v.ID()
	if id == 0 {
		return nil, platform.ErrDisposed
	}
	if args == nil {
		args = make(map[string]any, 1)
	}
	args["viewId"] = id
	return v.channel.Invoke(method, args)
}

func (v *View) set(name string, value any) error {
	_, err := v.invoke("setProperty", map[string]any{"name": name, "value": value})
	return err
}

// SetBackgroundColor sets the background as a CSS-style color string.
func (v *View) SetBackgroundColor(color string) error {
	return v.set("backgroundColor", color)
}

// SetVisible shows or hides the view.
func (v *View) SetVisible(visible bool) error {
	return v.set("visible", visible)
}

// SetOpacity sets the alpha in [0, 1].
func (v *View) SetOpacity(opacity float64) error {
	if opacity < 0 || opacity > 1 {
		return errors.InvalidArgument("View.SetOpacity", "", "opacity must be within [0, 1]")
	}
	return v.set("opacity", opacity)
}

// SetAccessibilityLabel sets the label read by screen readers.
func (v *View) SetAccessibilityLabel(label string) error {
	return v.set("accessibilityLabel", label)
}

// Dispose releases the native view. Safe to call more than once.
func (v *View) Dispose() error {
	v.mu.Lock()
	id := v.id
	subs := []*platform.Subscription{v.gestures, v.layout}
	v.gestures, v.layout = nil, nil
	v.mu.Unlock()
	if id == 0 {
		return nil
	}
	for _, sub := range subs {
		if sub != nil {
			sub.Cancel()
		}
	}
	_, err := v.invoke("dispose", nil)
	v.mu.Lock()
	v.id = 0
	v.mu.Unlock()
	return err
}
