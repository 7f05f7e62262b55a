package platform

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/go-drift/nativekit/pkg/errors"
)

// NativeBridge is the statically typed binding to one native platform.
type NativeBridge interface {
	// InvokeMethod calls a method on the native side.
	InvokeMethod(channel, method string, args []byte) ([]byte, error)

	// StartEventStream tells native to start sending events for a channel.
	StartEventStream(channel string) error

	// StopEventStream tells native to stop sending events for a channel.
	StopEventStream(channel string) error
}

// Host is the lifecycle-scoped context every wrapper is created with.
type Host struct {
	bridgeMu sync.RWMutex
	bridge   NativeBridge

	codec    MessageCodec
	dispatch func(callback func())
	logger   *zap.Logger

	mu      sync.RWMutex
	methods map[string]*MethodChannel
	events  map[string]*EventChannel

	nextID atomic.Int64
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithDispatch sets the function used to run callbacks on the UI thread.
// Without it, callbacks run synchronously on the goroutine delivering the
// native event.
func WithDispatch(fn func(callback func())) HostOption {
	return func(h *Host) { h.dispatch = fn }
}

// WithCodec overrides DefaultCodec.
func WithCodec(c MessageCodec) HostOption {
	return func(h *Host) { h.codec = c }
}

// WithLogger sets the logger used for bridge diagnostics.
func WithLogger(l *zap.Logger) HostOption {
	return func(h *Host) { h.logger = l }
}

// NewHost creates a host. bridge may be nil and attached later with SetBridge.
func NewHost(bridge NativeBridge, opts ...HostOption) *Host {
	h := &Host{
		bridge:  bridge,
		codec:   DefaultCodec,
		logger:  zap.NewNop(),
		methods: make(map[string]*MethodChannel),
		events:  make(map[string]*EventChannel),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Logger returns the host logger.
func (h *Host) Logger() *zap.Logger {
	return h.logger
}

// Codec returns the codec used on every channel of this host.
func (h *Host) Codec() MessageCodec {
	return h.codec
}

// NextID returns a new handle for a native object owned by this host.
func (h *Host) NextID() int64 {
	return h.nextID.Add(1)
}

// Dispatch runs callback on the UI thread. It returns false for a nil callback.
func (h *Host) Dispatch(callback func()) bool {
	if callback == nil {
		return false
	}
	if h.dispatch == nil {
		callback()
		return true
	}
	h.dispatch(callback)
	return true
}

// SetBridge attaches the native bridge. Event channels that acquired
// subscribers before a bridge was available get their streams started now;
// start failures are dispatched to those subscribers.
func (h *Host) SetBridge(bridge NativeBridge) {
	h.bridgeMu.Lock()
	h.bridge = bridge
	h.bridgeMu.Unlock()

	h.mu.RLock()
	channels := make([]*EventChannel, 0, len(h.events))
	for _, ch := range h.events {
		channels = append(channels, ch)
	}
	h.mu.RUnlock()

	for _, ch := range channels {
		ch.mu.Lock()
		shouldStart := len(ch.subscriptions) > 0 && !ch.started
		if shouldStart {
			ch.started = true
		}
		ch.mu.Unlock()

		if shouldStart {
			if err := h.startEventStream(ch.name); err != nil {
				ch.mu.Lock()
				ch.started = false
				ch.mu.Unlock()
				ch.dispatchError(err)
			}
		}
	}
}

func (h *Host) currentBridge() NativeBridge {
	h.bridgeMu.RLock()
	defer h.bridgeMu.RUnlock()
	return h.bridge
}

// MethodChannel returns the method channel with the given name, creating it
// on first use.
func (h *Host) MethodChannel(name string) *MethodChannel {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.methods[name]; ok {
		return ch
	}
	ch := &MethodChannel{name: name, host: h}
	h.methods[name] = ch
	return ch
}

// EventChannel returns the event channel with the given name, creating it
// on first use.
func (h *Host) EventChannel(name string) *EventChannel {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.events[name]; ok {
		return ch
	}
	ch := &EventChannel{name: name, host: h}
	h.events[name] = ch
	return ch
}

func (h *Host) lookupMethod(name string) *MethodChannel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.methods[name]
}

func (h *Host) lookupEvent(name string) *EventChannel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.events[name]
}

func (h *Host) invokeNative(channel, method string, args any) (any, error) {
	bridge := h.currentBridge()
	if bridge == nil {
		return nil, ErrPlatformUnavailable
	}

	argsData, err := h.codec.Encode(args)
	if err != nil {
		return nil, err
	}

	resultData, err := bridge.InvokeMethod(channel, method, argsData)
	if err != nil {
		return nil, err
	}

	return h.codec.Decode(resultData)
}

func (h *Host) startEventStream(channel string) error {
	return h.streamControl("platform.startEventStream", channel, func(b NativeBridge) error {
		return b.StartEventStream(channel)
	})
}

func (h *Host) stopEventStream(channel string) error {
	return h.streamControl("platform.stopEventStream", channel, func(b NativeBridge) error {
		return b.StopEventStream(channel)
	})
}

func (h *Host) streamControl(op, channel string, call func(NativeBridge) error) error {
	bridge := h.currentBridge()
	err := ErrPlatformUnavailable
	if bridge != nil {
		err = call(bridge)
	}
	if err != nil {
		h.logger.Warn("event stream control failed",
			zap.String("op", op), zap.String("channel", channel), zap.Error(err))
		errors.Report(&errors.KitError{
			Op:      op,
			Kind:    errors.KindNative,
			Channel: channel,
			Err:     err,
		})
	}
	return err
}

// ErrChannelNotRegistered is returned when native targets a channel nobody created.
var ErrChannelNotRegistered = fmt.Errorf("event channel not registered")

// HandleMethodCall is called from the bridge when native invokes a Go method.
func (h *Host) HandleMethodCall(channel, method string, argsData []byte) ([]byte, error) {
	ch := h.lookupMethod(channel)
	if ch == nil {
		return nil, ErrChannelNotFound
	}

	args, err := h.codec.Decode(argsData)
	if err != nil {
		return nil, err
	}

	result, err := ch.handleCall(method, args)
	if err != nil {
		return nil, err
	}

	return h.codec.Encode(result)
}

// HandleEvent is called from the bridge when native sends an event.
func (h *Host) HandleEvent(channel string, eventData []byte) error {
	ch, err := h.eventTarget("platform.HandleEvent", channel)
	if err != nil {
		return err
	}

	data, err := h.codec.Decode(eventData)
	if err != nil {
		ch.dispatchError(err)
		return err
	}

	ch.dispatchEvent(data)
	return nil
}

// HandleEventError is called from the bridge when an event stream errors.
func (h *Host) HandleEventError(channel string, code, message string) error {
	ch, err := h.eventTarget("platform.HandleEventError", channel)
	if err != nil {
		return err
	}
	ch.dispatchError(NewChannelError(code, message))
	return nil
}

// HandleEventDone is called from the bridge when an event stream ends.
func (h *Host) HandleEventDone(channel string) error {
	ch, err := h.eventTarget("platform.HandleEventDone", channel)
	if err != nil {
		return err
	}
	ch.dispatchDone()
	return nil
}

func (h *Host) eventTarget(op, channel string) (*EventChannel, error) {
	ch := h.lookupEvent(channel)
	if ch == nil {
		err := fmt.Errorf("%w: %s", ErrChannelNotRegistered, channel)
		errors.Report(&errors.KitError{
			Op:      op,
			Kind:    errors.KindNative,
			Channel: channel,
			Err:     err,
		})
		return nil, err
	}
	return ch, nil
}
