package platform

import (
	"encoding/json"
	"sync"
)

// RecordedCall is one native method invocation captured by a RecordingBridge.
type RecordedCall struct {
	Channel string
	Method  string
	Args    map[string]any
}

// RecordingBridge is a NativeBridge that records invocations and stream
// control without side effects. Responses can be scripted per method.
type RecordingBridge struct {
	mu        sync.Mutex
	calls     []RecordedCall
	started   map[string]int
	stopped   map[string]int
	responses map[string]any
	failures  map[string]error
}

// NewRecordingBridge returns an empty RecordingBridge.
func NewRecordingBridge() *RecordingBridge {
	return &RecordingBridge{
		started:   make(map[string]int),
		stopped:   make(map[string]int),
		responses: make(map[string]any),
		failures:  make(map[string]error),
	}
}

// Respond scripts the result returned for channel/method.
func (b *RecordingBridge) Respond(channel, method string, result any) {
	b.mu.Lock()
	b.responses[channel+"#"+method] = result
	b.mu.Unlock()
}

// Fail scripts an error for channel/method, or for StartEventStream on
// channel when method is empty.
func (b *RecordingBridge) Fail(channel, method string, err error) {
	b.mu.Lock()
	b.failures[channel+"#"+method] = err
	b.mu.Unlock()
}

func (b *RecordingBridge) InvokeMethod(channel, method string, argsData []byte) ([]byte, error) {
	var args map[string]any
	if len(argsData) > 0 {
		_ = json.Unmarshal(argsData, &args)
	}
	key := channel + "#" + method
	b.mu.Lock()
	b.calls = append(b.calls, RecordedCall{Channel: channel, Method: method, Args: args})
	result := b.responses[key]
	err := b.failures[key]
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func (b *RecordingBridge) StartEventStream(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures[channel+"#"]; err != nil {
		return err
	}
	b.started[channel]++
	return nil
}

func (b *RecordingBridge) StopEventStream(channel string) error {
	b.mu.Lock()
	b.stopped[channel]++
	b.mu.Unlock()
	return nil
}

// Calls returns the invocations recorded so far.
func (b *RecordingBridge) Calls() []RecordedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedCall, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallsTo returns the recorded invocations of method on channel.
func (b *RecordingBridge) CallsTo(channel, method string) []RecordedCall {
	var out []RecordedCall
	for _, c := range b.Calls() {
		if c.Channel == channel && c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Started returns how many times the stream for channel was started.
func (b *RecordingBridge) Started(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started[channel]
}

// Stopped returns how many times the stream for channel was stopped.
func (b *RecordingBridge) Stopped(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped[channel]
}

// NewTestHost returns a host wired to a fresh RecordingBridge with
// synchronous dispatch.
func NewTestHost() (*Host, *RecordingBridge) {
	bridge := NewRecordingBridge()
	return NewHost(bridge, WithDispatch(func(cb func()) { cb() })), bridge
}

// SendEvent encodes data with the host codec and delivers it on channel as
// if native had sent it.
func (h *Host) SendEvent(channel string, data any) error {
	encoded, err := h.codec.Encode(data)
	if err != nil {
		return err
	}
	return h.HandleEvent(channel, encoded)
}
