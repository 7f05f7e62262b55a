// Package task runs work off the UI thread and reports back through events.
package task

import (
	"context"
	"sync"

	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/events"
	"github.com/go-drift/nativekit/pkg/platform"
)

// Events emitted by an AsyncTask.
const (
	EventComplete = "complete" // args: result any
	EventError    = "error"    // args: err error
	EventCancel   = "cancel"   // no args
	EventProgress = "progress" // args: value any
)

// Status is the lifecycle state of an AsyncTask.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusDone
	StatusFailed
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Work is the function run in the background. report delivers progress
// values to "progress" listeners on the UI thread.
type Work func(ctx context.Context, report func(value any)) (any, error)

// ErrAlreadyStarted is returned by Start on a task that already ran.
var ErrAlreadyStarted = errors.InvalidArgument("AsyncTask.Start", "", "task already started")

// AsyncTask runs Work on its own goroutine. Results, errors, cancellation
// and progress are marshalled to the UI thread through the host's dispatch
// function. The direct callbacks run before listeners.
type AsyncTask struct {
	*events.Object

	host *platform.Host
	work Work

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}

	// OnComplete is called with the result on success.
	OnComplete func(result any)
	// OnError is called when Work returns an error or panics.
	OnError func(err error)
}

// New creates a task. It does not start running until Start.
func New(host *platform.Host, work Work, opts ...events.Option) *AsyncTask {
	t := &AsyncTask{host: host, work: work, done: make(chan struct{})}
	t.Object = events.Compose(events.Bind(t, events.Layer[*AsyncTask]{
		Class: "AsyncTask",
		Table: events.Table[*AsyncTask]{
			EventComplete: nil,
			EventError:    nil,
			EventCancel:   nil,
			EventProgress: nil,
		},
	}), opts...)
	return t
}

// Status returns the current status.
func (t *AsyncTask) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Done is closed once the task has finished and its events were dispatched.
func (t *AsyncTask) Done() <-chan struct{} {
	return t.done
}

// Start runs the task in the background. Canceling ctx cancels the task.
func (t *AsyncTask) Start(ctx context.Context) error {
	if t.work == nil {
		return errors.InvalidArgument("AsyncTask.Start", "", "work must be a function")
	}
	t.mu.Lock()
	if t.status != StatusPending {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	t.status = StatusRunning
	t.cancel = cancel
	t.mu.Unlock()

	go t.run(ctx, cancel)
	return nil
}

// Cancel asks the running work to stop by canceling its context. The
// "cancel" event fires once the work returns.
func (t *AsyncTask) Cancel() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (t *AsyncTask) run(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	report := func(value any) {
		if ctx.Err() != nil {
			return
		}
		t.host.Dispatch(func() { t.Emit(EventProgress, value) })
	}

	result, err := t.execute(ctx, report)

	t.mu.Lock()
	switch {
	case ctx.Err() != nil && (err == nil || errors.Is(err, ctx.Err())):
		t.status = StatusCanceled
	case err != nil:
		t.status = StatusFailed
	default:
		t.status = StatusDone
	}
	status := t.status
	t.mu.Unlock()

	if !t.host.Dispatch(func() { t.finish(status, result, err) }) {
		close(t.done)
	}
}

func (t *AsyncTask) execute(ctx context.Context, report func(any)) (result any, err error) {
	defer errors.RecoverWithCallback("AsyncTask.run", func(r any) {
		err = &errors.PanicError{Op: "AsyncTask.run", Value: r}
	})
	return t.work(ctx, report)
}

func (t *AsyncTask) finish(status Status, result any, err error) {
	defer close(t.done)
	switch status {
	case StatusCanceled:
		t.Emit(EventCancel)
	case StatusFailed:
		if t.OnError != nil {
			t.OnError(err)
		}
		t.Emit(EventError, err)
	default:
		if t.OnComplete != nil {
			t.OnComplete(result)
		}
		t.Emit(EventComplete, result)
	}
}
