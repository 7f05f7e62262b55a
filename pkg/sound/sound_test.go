package sound

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/platform"
	"github.com/go-drift/nativekit/pkg/props"
)

func newSound(t *testing.T, bag props.Bag) (*Sound, *platform.Host, *platform.RecordingBridge) {
	t.Helper()
	host, bridge := platform.NewTestHost()
	s, err := New(host, bag)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Dispose() })
	return s, host, bridge
}

func sendState(t *testing.T, host *platform.Host, s *Sound, state PlaybackState, posMs, durMs int64) {
	t.Helper()
	require.NoError(t, host.SendEvent(StateChannelName, map[string]any{
		"playerId":      s.ID(),
		"playbackState": int(state),
		"positionMs":    posMs,
		"durationMs":    durMs,
	}))
}

func TestNew_CreatesNativePlayerWithProps(t *testing.T) {
	s, _, bridge := newSound(t, props.Bag{"url": "https://example.com/a.mp3", "looping": true})

	calls := bridge.CallsTo(MethodChannelName, "create")
	require.Len(t, calls, 1)
	args := calls[0].Args
	assert.Equal(t, "https://example.com/a.mp3", args["url"])
	assert.Equal(t, true, args["looping"])
	assert.Equal(t, 1.0, args["volume"])
	assert.EqualValues(t, s.ID(), args["playerId"])
	assert.Equal(t, 1, bridge.Started(StateChannelName))
}

func TestNew_RejectsMalformedProps(t *testing.T) {
	host, bridge := platform.NewTestHost()
	_, err := New(host, props.Bag{"volume": "max"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	assert.Empty(t, bridge.Calls())
}

func TestNew_NativeCreateFailureSurfaces(t *testing.T) {
	host, bridge := platform.NewTestHost()
	nativeErr := platform.NewChannelError("no_audio", "audio session unavailable")
	bridge.Fail(MethodChannelName, "create", nativeErr)

	_, err := New(host, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, nativeErr))
}

func TestSound_DirectCallbackThenListeners(t *testing.T) {
	s, host, _ := newSound(t, nil)
	var order []string

	s.OnReady = func(d time.Duration) { order = append(order, fmt.Sprintf("OnReady %v", d)) }
	_, err := s.On(EventReady, func(args ...any) { order = append(order, fmt.Sprintf("ready %v", args[0])) })
	require.NoError(t, err)

	s.OnFinish = func() { order = append(order, "OnFinish") }
	_, err = s.On(EventFinish, func(...any) { order = append(order, "finish") })
	require.NoError(t, err)

	sendState(t, host, s, PlaybackStateReady, 0, 3000)
	sendState(t, host, s, PlaybackStatePlaying, 0, 3000)
	sendState(t, host, s, PlaybackStateCompleted, 3000, 3000)

	assert.Equal(t, []string{"OnReady 3s", "ready 3s", "OnFinish", "finish"}, order)
}

func TestSound_DirectCallbacksFireWithoutListeners(t *testing.T) {
	s, host, _ := newSound(t, nil)
	finished := false
	s.OnFinish = func() { finished = true }

	sendState(t, host, s, PlaybackStateCompleted, 0, 0)
	assert.True(t, finished)
}

func TestSound_StateChangeDeduplicated(t *testing.T) {
	s, host, _ := newSound(t, nil)
	type change struct{ state, previous PlaybackState }
	var changes []change
	_, err := s.On(EventStateChange, func(args ...any) {
		changes = append(changes, change{args[0].(PlaybackState), args[1].(PlaybackState)})
	})
	require.NoError(t, err)

	sendState(t, host, s, PlaybackStateBuffering, 0, 0)
	sendState(t, host, s, PlaybackStatePlaying, 0, 60000)
	sendState(t, host, s, PlaybackStatePlaying, 500, 60000)
	sendState(t, host, s, PlaybackStatePaused, 500, 60000)

	assert.Equal(t, []change{
		{PlaybackStateBuffering, PlaybackStateIdle},
		{PlaybackStatePlaying, PlaybackStateBuffering},
		{PlaybackStatePaused, PlaybackStatePlaying},
	}, changes)
	assert.Equal(t, PlaybackStatePaused, s.State())
	assert.Equal(t, 500*time.Millisecond, s.Position())
	assert.Equal(t, time.Minute, s.Duration())
}

func TestSound_PositionUpdatesAttachLazilyOnce(t *testing.T) {
	s, host, bridge := newSound(t, nil)
	assert.Zero(t, bridge.Started(PositionChannelName))

	var positions []time.Duration
	for i := 0; i < 2; i++ {
		_, err := s.On(EventPosition, func(args ...any) {
			positions = append(positions, args[0].(time.Duration))
		})
		require.NoError(t, err)
	}

	assert.Len(t, bridge.CallsTo(MethodChannelName, "setPositionUpdates"), 1)
	assert.Equal(t, 1, bridge.Started(PositionChannelName))

	require.NoError(t, host.SendEvent(PositionChannelName, map[string]any{
		"playerId": s.ID(), "positionMs": 1500, "durationMs": 3000,
	}))
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond}, positions)
}

func TestSound_PositionSetupFailureNotMasked(t *testing.T) {
	s, _, bridge := newSound(t, nil)
	nativeErr := platform.NewChannelError("unsupported", "no position timer")
	bridge.Fail(MethodChannelName, "setPositionUpdates", nativeErr)

	_, err := s.On(EventPosition, func(...any) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, nativeErr))
	assert.Zero(t, bridge.Started(PositionChannelName))
}

func TestSound_ErrorEvent(t *testing.T) {
	s, host, bridge := newSound(t, nil)
	assert.Zero(t, bridge.Started(ErrorChannelName))

	var code, message string
	_, err := s.On(EventError, func(args ...any) {
		code, message = args[0].(string), args[1].(string)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, bridge.Started(ErrorChannelName))

	require.NoError(t, host.SendEvent(ErrorChannelName, map[string]any{
		"playerId": s.ID(), "code": ErrCodeSourceError, "message": "network timeout",
	}))
	assert.Equal(t, ErrCodeSourceError, code)
	assert.Equal(t, "network timeout", message)
}

func TestSound_EventsRouteToOwningPlayer(t *testing.T) {
	host, _ := platform.NewTestHost()
	a, err := New(host, nil)
	require.NoError(t, err)
	b, err := New(host, nil)
	require.NoError(t, err)
	require.NotEqual(t, a.ID(), b.ID())

	sendState(t, host, b, PlaybackStatePlaying, 0, 0)
	assert.Equal(t, PlaybackStateIdle, a.State())
	assert.Equal(t, PlaybackStatePlaying, b.State())
}

func TestSound_UnknownEventIgnored(t *testing.T) {
	s, _, _ := newSound(t, nil)
	unsub, err := s.On("volumechange", func(...any) {})
	require.NoError(t, err)
	assert.NotPanics(t, func() { unsub() })
}

func TestSound_TransportMethods(t *testing.T) {
	s, _, bridge := newSound(t, nil)

	for _, tc := range []struct {
		name   string
		method string
		fn     func() error
	}{
		{"Load", "load", func() error { return s.Load("https://example.com/song.mp3") }},
		{"Play", "play", s.Play},
		{"Pause", "pause", s.Pause},
		{"SeekTo", "seekTo", func() error { return s.SeekTo(30 * time.Second) }},
		{"SetVolume", "setVolume", func() error { return s.SetVolume(0.5) }},
		{"SetLooping", "setLooping", func() error { return s.SetLooping(true) }},
		{"Stop", "stop", s.Stop},
	} {
		require.NoError(t, tc.fn(), tc.name)
		calls := bridge.CallsTo(MethodChannelName, tc.method)
		require.Len(t, calls, 1, tc.name)
		assert.EqualValues(t, s.ID(), calls[0].Args["playerId"], tc.name)
	}

	seek := bridge.CallsTo(MethodChannelName, "seekTo")[0]
	assert.EqualValues(t, 30000, seek.Args["positionMs"])
}

func TestSound_Dispose(t *testing.T) {
	host, bridge := platform.NewTestHost()
	s, err := New(host, nil)
	require.NoError(t, err)
	id := s.ID()

	fired := false
	s.OnFinish = func() { fired = true }
	_, err = s.On(EventError, func(...any) { fired = true })
	require.NoError(t, err)

	require.NoError(t, s.Dispose())
	require.NoError(t, s.Dispose())

	assert.Len(t, bridge.CallsTo(MethodChannelName, "dispose"), 1)
	assert.Equal(t, 1, bridge.Stopped(StateChannelName))
	assert.Equal(t, 1, bridge.Stopped(ErrorChannelName))

	for _, fn := range []func() error{s.Play, s.Pause, s.Stop} {
		assert.ErrorIs(t, fn(), platform.ErrDisposed)
	}

	require.NoError(t, host.SendEvent(StateChannelName, map[string]any{
		"playerId": id, "playbackState": int(PlaybackStateCompleted),
	}))
	assert.False(t, fired)
}

func TestPlaybackStateString(t *testing.T) {
	assert.Equal(t, "Ready", PlaybackStateReady.String())
	assert.Equal(t, "Unknown", PlaybackState(99).String())
}
