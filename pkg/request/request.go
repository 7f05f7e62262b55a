// Package request adapts an HTTP transport to the event-emitting callback
// API used by scripts.
package request

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/events"
	"github.com/go-drift/nativekit/pkg/platform"
	"github.com/go-drift/nativekit/pkg/props"
)

// Events emitted by a Request.
const (
	EventLoad  = "load"  // args: *Response
	EventError = "error" // args: error
	EventAbort = "abort" // no args
)

// State is the lifecycle state of a Request.
type State int

const (
	StateUnsent State = iota
	StateLoading
	StateDone
)

// Props are the construction values accepted by New.
type Props struct {
	Method  string            `prop:"method"`
	URL     string            `prop:"url"`
	Headers map[string]string `prop:"headers"`
	Body    string            `prop:"body"`
	Timeout time.Duration     `prop:"timeout"`
}

// Request is a single-shot HTTP request. The exchange runs off the UI
// thread; its outcome is dispatched back as exactly one of "load", "error"
// or "abort". OnLoad runs before "load" listeners.
type Request struct {
	*events.Object

	host      *platform.Host
	transport Transport
	opts      Options
	timeout   time.Duration

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	aborted bool
	done    chan struct{}

	// OnLoad is called with the response on success.
	OnLoad func(resp *Response)
	// OnError is called when the transport fails.
	OnError func(err error)
}

// New builds a request from bag (see Props).
func New(host *platform.Host, transport Transport, bag props.Bag, opts ...events.Option) (*Request, error) {
	var p Props
	if err := props.Apply(bag, &p); err != nil {
		return nil, err
	}
	if p.URL == "" {
		return nil, errors.InvalidArgument("Request.New", "", "url is required")
	}
	if transport == nil {
		return nil, errors.InvalidArgument("Request.New", "", "transport is required")
	}

	r := &Request{
		host:      host,
		transport: transport,
		opts: Options{
			Method:  p.Method,
			URL:     p.URL,
			Headers: p.Headers,
			Body:    []byte(p.Body),
		},
		timeout: p.Timeout,
		done:    make(chan struct{}),
	}
	r.Object = events.Compose(events.Bind(r, events.Layer[*Request]{
		Class: "Request",
		Table: events.Table[*Request]{
			EventLoad:  nil,
			EventError: nil,
			EventAbort: nil,
		},
	}), opts...)
	return r, nil
}

// State returns the current lifecycle state.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Done is closed after the outcome event has been dispatched.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Send starts the exchange. It returns immediately; a second Send fails.
func (r *Request) Send(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateUnsent {
		r.mu.Unlock()
		return errors.InvalidArgument("Request.Send", "", "request already sent")
	}
	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	r.state = StateLoading
	r.cancel = cancel
	r.mu.Unlock()

	go r.run(ctx, cancel)
	return nil
}

// Abort cancels an in-flight request. "abort" fires instead of "load".
func (r *Request) Abort() {
	r.mu.Lock()
	cancel := r.cancel
	if r.state == StateLoading {
		r.aborted = true
	}
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Request) run(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	resp, err := r.transport.Do(ctx, r.opts)

	r.mu.Lock()
	r.state = StateDone
	aborted := r.aborted
	r.mu.Unlock()

	r.host.Dispatch(func() {
		defer close(r.done)
		switch {
		case aborted:
			r.Emit(EventAbort)
		case err != nil:
			r.host.Logger().Warn("request failed", zap.String("url", r.opts.URL), zap.Error(err))
			err = errors.Native("Request.Send", "", err)
			if r.OnError != nil {
				r.OnError(err)
			}
			r.Emit(EventError, err)
		default:
			if r.OnLoad != nil {
				r.OnLoad(resp)
			}
			r.Emit(EventLoad, resp)
		}
	})
}
