package view

import (
	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/events"
	"github.com/go-drift/nativekit/pkg/platform"
	"github.com/go-drift/nativekit/pkg/props"
)

// PageChannelName carries page lifecycle and content taps.
const PageChannelName = "nativekit/page/events"

// Events added by a Page.
const (
	EventShow = "show" // no args
	EventHide = "hide" // no args
)

// PageProps are the values accepted by NewPage, including every View prop.
type PageProps struct {
	Props `prop:",squash"`
	Title string `prop:"title"`
}

// Page is a full-screen view. It recognizes "show" and "hide" in addition
// to the View events, and handles "tap" itself: page taps are reported on
// the page channel rather than by a view gesture recognizer.
//
// Page's own Object shadows the embedded View's, so On, Off and Emit
// resolve through the page layer first. Both share one emitter.
type Page struct {
	*View
	*events.Object

	lifecycle *platform.Subscription

	// OnShow is called before "show" listeners.
	OnShow func()
}

// NewPage creates a native page.
func NewPage(host *platform.Host, bag props.Bag, opts ...events.Option) (*Page, error) {
	var p PageProps
	if err := props.Apply(bag, &p); err != nil {
		return nil, err
	}

	v := newView(host, "page")
	v.Object = events.Compose(v.resolver(), opts...)
	pg := &Page{View: v}
	pg.Object = events.Extend(v.Object, events.Bind(pg, events.Layer[*Page]{
		Class: "Page",
		Table: events.Table[*Page]{
			EventShow: (*Page).attachLifecycle,
			EventHide: (*Page).attachLifecycle,
			EventTap:  (*Page).enableContentTap,
		},
	}))

	args := p.Props.args()
	if p.Title != "" {
		args["title"] = p.Title
	}
	if err := v.create(args); err != nil {
		return nil, err
	}
	return pg, nil
}

func (p *Page) attachLifecycle() error {
	p.View.mu.Lock()
	defer p.View.mu.Unlock()
	if p.lifecycle == nil {
		p.lifecycle = p.subscribe(PageChannelName, "Page.lifecycleStream", p.handleLifecycle)
	}
	return nil
}

func (p *Page) enableContentTap() error {
	if _, err := p.invoke("enableContentTap", nil); err != nil {
		return err
	}
	return p.attachLifecycle()
}

func (p *Page) handleLifecycle(m map[string]any) {
	switch platform.ParseString(m["type"]) {
	case EventShow:
		p.host.Dispatch(func() {
			if p.OnShow != nil {
				p.OnShow()
			}
			p.Emit(EventShow)
		})
	case EventHide:
		p.host.Dispatch(func() { p.Emit(EventHide) })
	case EventTap:
		x, _ := platform.ToFloat64(m["x"])
		y, _ := platform.ToFloat64(m["y"])
		p.host.Dispatch(func() {
			if p.OnTap != nil {
				p.OnTap(x, y)
			}
			p.Emit(EventTap, x, y)
		})
	}
}

// SetTitle sets the navigation title.
func (p *Page) SetTitle(title string) error {
	return p.set("title", title)
}

// Dispose releases the page and its lifecycle stream.
func (p *Page) Dispose() error {
	p.View.mu.Lock()
	sub := p.lifecycle
	p.lifecycle = nil
	p.View.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
	if err := p.View.Dispose(); err != nil {
		return errors.Native("Page.Dispose", "", err)
	}
	return nil
}
