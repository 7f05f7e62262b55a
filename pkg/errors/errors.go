// Package errors provides structured error handling for nativekit.
//
// Errors returned synchronously from registration and wrapper calls are
// *KitError values that unwrap to one of the sentinels below or to the
// native error that caused them. Failures that happen asynchronously
// (listener panics, native stream errors, malformed event payloads) have no
// caller to return to and are sent to the global handler via Report.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindInvalidArgument indicates a bad listener or malformed configuration value.
	KindInvalidArgument
	// KindUnsupportedEvent indicates a registration for an event no layer recognizes.
	KindUnsupportedEvent
	// KindNative indicates an error raised by the native bridge or a setup function.
	KindNative
	// KindParsing indicates an event payload could not be parsed.
	KindParsing
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindConfig indicates a configuration loading error.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnsupportedEvent:
		return "unsupported_event"
	case KindNative:
		return "native"
	case KindParsing:
		return "parsing"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Sentinel errors.
var (
	// ErrInvalidArgument is returned for nil listeners and malformed values.
	ErrInvalidArgument = pkgerrors.New("invalid argument")

	// ErrUnsupportedEvent is returned in strict mode when no layer recognizes an event.
	ErrUnsupportedEvent = pkgerrors.New("unsupported event")
)

// KitError represents a structured error.
type KitError struct {
	// Op is the operation that failed (e.g., "events.On").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Event is the event name, if applicable.
	Event string
	// Channel is the platform channel name, if applicable.
	Channel string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *KitError) Error() string {
	msg := fmt.Sprintf("%s [%s]", e.Op, e.Kind)
	if e.Event != "" {
		msg += " event=" + e.Event
	}
	if e.Channel != "" {
		msg += " channel=" + e.Channel
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *KitError) Unwrap() error {
	return e.Err
}

// InvalidArgument builds a KindInvalidArgument error wrapping ErrInvalidArgument.
func InvalidArgument(op, event, reason string) *KitError {
	return &KitError{
		Op:    op,
		Kind:  KindInvalidArgument,
		Event: event,
		Err:   pkgerrors.Wrap(ErrInvalidArgument, reason),
	}
}

// UnsupportedEvent builds a KindUnsupportedEvent error wrapping ErrUnsupportedEvent.
func UnsupportedEvent(op, class, event string) *KitError {
	return &KitError{
		Op:    op,
		Kind:  KindUnsupportedEvent,
		Event: event,
		Err:   pkgerrors.Wrapf(ErrUnsupportedEvent, "%s does not emit %q", class, event),
	}
}

// Native wraps an error raised by native code or a setup function. The
// original error stays reachable through errors.Is / errors.As.
func Native(op, event string, err error) *KitError {
	return &KitError{
		Op:    op,
		Kind:  KindNative,
		Event: event,
		Err:   err,
	}
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "events.Emit").
	Op string
	// Event is the event being dispatched, if applicable.
	Event string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to parse event data.
type ParseError struct {
	// Channel is the platform channel that received the event.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// ErrorHandler receives errors reported asynchronously.
type ErrorHandler interface {
	// HandleError is called when an error is reported.
	HandleError(err *KitError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
