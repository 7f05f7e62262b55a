package desktop

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/go-drift/nativekit/pkg/platform"
)

// MethodHandler answers one simulated native method.
type MethodHandler func(b *Bridge, args map[string]any) (any, error)

// Bridge is a loopback platform.NativeBridge. Every call is logged; methods
// with a registered handler are answered by it, the rest return null.
type Bridge struct {
	logger *zap.Logger
	loop   *Loop

	mu       sync.Mutex
	host     *platform.Host
	handlers map[string]MethodHandler
	streams  map[string]bool
}

// NewBridge creates a bridge whose simulated events are timed on loop.
func NewBridge(loop *Loop, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		logger:   logger,
		loop:     loop,
		handlers: make(map[string]MethodHandler),
		streams:  make(map[string]bool),
	}
}

// NewHost creates a host dispatching onto loop and attaches a new bridge.
func NewHost(loop *Loop, logger *zap.Logger) (*platform.Host, *Bridge) {
	b := NewBridge(loop, logger)
	host := platform.NewHost(nil, platform.WithDispatch(loop.Post), platform.WithLogger(logger))
	b.Attach(host)
	return host, b
}

// Attach connects the bridge to host in both directions.
func (b *Bridge) Attach(host *platform.Host) {
	b.mu.Lock()
	b.host = host
	b.mu.Unlock()
	host.SetBridge(b)
}

// Handle registers h for channel/method, replacing any earlier handler.
func (b *Bridge) Handle(channel, method string, h MethodHandler) {
	b.mu.Lock()
	b.handlers[channel+"#"+method] = h
	b.mu.Unlock()
}

// codec is the attached host's codec, so the bridge speaks whatever wire
// format the host was built with.
func (b *Bridge) codec() platform.MessageCodec {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.host == nil {
		return platform.DefaultCodec
	}
	return b.host.Codec()
}

func (b *Bridge) InvokeMethod(channel, method string, argsData []byte) ([]byte, error) {
	codec := b.codec()
	var args map[string]any
	if len(argsData) > 0 {
		decoded, err := codec.Decode(argsData)
		if err != nil {
			return nil, err
		}
		args = platform.ParseMap(decoded)
	}
	b.logger.Debug("native call",
		zap.String("channel", channel),
		zap.String("method", method),
		zap.Any("args", args))

	b.mu.Lock()
	h := b.handlers[channel+"#"+method]
	b.mu.Unlock()
	if h == nil {
		return codec.Encode(nil)
	}
	result, err := h(b, args)
	if err != nil {
		b.logger.Debug("native call failed", zap.String("channel", channel), zap.String("method", method), zap.Error(err))
		return nil, err
	}
	return codec.Encode(result)
}

// CallGo invokes a Go handler on channel as native would and returns the
// decoded result.
func (b *Bridge) CallGo(channel, method string, args any) (any, error) {
	b.mu.Lock()
	host := b.host
	b.mu.Unlock()
	if host == nil {
		return nil, platform.ErrPlatformUnavailable
	}
	codec := host.Codec()
	data, err := codec.Encode(args)
	if err != nil {
		return nil, err
	}
	out, err := host.HandleMethodCall(channel, method, data)
	if err != nil {
		return nil, err
	}
	return codec.Decode(out)
}

func (b *Bridge) StartEventStream(channel string) error {
	b.mu.Lock()
	b.streams[channel] = true
	b.mu.Unlock()
	b.logger.Debug("native stream started", zap.String("channel", channel))
	return nil
}

func (b *Bridge) StopEventStream(channel string) error {
	b.mu.Lock()
	delete(b.streams, channel)
	b.mu.Unlock()
	b.logger.Debug("native stream stopped", zap.String("channel", channel))
	return nil
}

// Streaming reports whether channel's native stream is running.
func (b *Bridge) Streaming(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streams[channel]
}

// SendAfter delivers data on channel after d, as if native had sent it.
// Events for channels without a running stream are dropped.
func (b *Bridge) SendAfter(d time.Duration, channel string, data any) {
	b.loop.AfterFunc(d, func() {
		b.mu.Lock()
		host, live := b.host, b.streams[channel]
		b.mu.Unlock()
		if host == nil || !live {
			return
		}
		if err := host.SendEvent(channel, data); err != nil {
			b.logger.Warn("simulated event not delivered", zap.String("channel", channel), zap.Error(err))
		}
	})
}
