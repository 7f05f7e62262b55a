// Package sound wraps the native audio player.
package sound

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/events"
	"github.com/go-drift/nativekit/pkg/platform"
	"github.com/go-drift/nativekit/pkg/props"
)

// Channel names shared with the native audio player implementation.
const (
	MethodChannelName   = "nativekit/sound"
	StateChannelName    = "nativekit/sound/events"
	PositionChannelName = "nativekit/sound/position"
	ErrorChannelName    = "nativekit/sound/errors"
)

// Events emitted by a Sound.
const (
	EventReady       = "ready"       // args: duration time.Duration
	EventFinish      = "finish"      // no args
	EventStateChange = "statechange" // args: state, previous PlaybackState
	EventPosition    = "position"    // args: position, duration time.Duration
	EventError       = "error"       // args: code, message string
)

// Props are the initial values accepted by New.
type Props struct {
	URL     string  `prop:"url"`
	Volume  float64 `prop:"volume"`
	Looping bool    `prop:"looping"`
}

// Sound controls one native audio player.
//
// The state stream is attached when the Sound is created so that OnReady and
// OnFinish always fire. Position updates and the error stream are attached
// the first time someone listens for "position" or "error".
//
// For every native event the direct callback runs first, then listeners.
type Sound struct {
	*events.Object

	host    *platform.Host
	channel *platform.MethodChannel

	mu       sync.RWMutex
	id       int64
	state    PlaybackState
	position time.Duration
	duration time.Duration
	subs     []*platform.Subscription

	// OnReady is called when loaded media is ready to play. Called on the UI thread.
	OnReady func(duration time.Duration)

	// OnFinish is called when playback reaches the end. Called on the UI thread.
	OnFinish func()
}

// New creates a native player and applies bag (see Props).
func New(host *platform.Host, bag props.Bag, opts ...events.Option) (*Sound, error) {
	p := Props{Volume: 1}
	if err := props.Apply(bag, &p); err != nil {
		return nil, err
	}

	s := &Sound{
		host:    host,
		channel: host.MethodChannel(MethodChannelName),
		id:      host.NextID(),
	}
	s.Object = events.Compose(events.Bind(s, events.Layer[*Sound]{
		Class: "Sound",
		Table: events.Table[*Sound]{
			EventReady:       nil,
			EventFinish:      nil,
			EventStateChange: nil,
			EventPosition:    (*Sound).enablePositionUpdates,
			EventError:       (*Sound).attachErrorStream,
		},
	}), opts...)

	args := map[string]any{
		"playerId": s.id,
		"volume":   p.Volume,
		"looping":  p.Looping,
	}
	if p.URL != "" {
		args["url"] = p.URL
	}
	if _, err := s.channel.Invoke("create", args); err != nil {
		return nil, errors.Native("Sound.create", "", err)
	}

	s.listen(StateChannelName, "Sound.stateStream", s.handleState)
	return s, nil
}

// ID returns the native player handle, or 0 after Dispose.
func (s *Sound) ID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// State returns the last reported playback state.
func (s *Sound) State() PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Position returns the last reported playback position.
func (s *Sound) Position() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}

// Duration returns the total media duration.
func (s *Sound) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration
}

func (s *Sound) enablePositionUpdates() error {
	if _, err := s.invoke("setPositionUpdates", map[string]any{"enabled": true}); err != nil {
		return err
	}
	s.listen(PositionChannelName, "Sound.positionStream", s.handlePosition)
	return nil
}

func (s *Sound) attachErrorStream() error {
	s.listen(ErrorChannelName, "Sound.errorStream", s.handleError)
	return nil
}

// listen subscribes to a shared channel and routes payloads addressed to
// this player to handle.
func (s *Sound) listen(channel, op string, handle func(m map[string]any)) {
	sub := s.host.EventChannel(channel).Listen(platform.EventHandler{
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
			if id, _ := platform.ToInt64(m["playerId"]); id == 0 || id != s.ID() {
				return
			}
			handle(m)
		},
		OnError: func(err error) {
			s.host.Logger().Warn("sound stream error", zap.String("channel", channel), zap.Error(err))
			errors.Report(&errors.KitError{
				Op:      op,
				Kind:    errors.KindNative,
				Channel: channel,
				Err:     err,
			})
		},
	})
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

func (s *Sound) handleState(m map[string]any) {
	stateInt, _ := platform.ToInt(m["playbackState"])
	state := PlaybackState(stateInt)
	pos := platform.ParseMillis(m["positionMs"])
	dur := platform.ParseMillis(m["durationMs"])

	s.mu.Lock()
	previous := s.state
	s.state = state
	s.position = pos
	s.duration = dur
	s.mu.Unlock()

	if state == previous {
		return
	}

	s.host.Dispatch(func() {
		switch state {
		case PlaybackStateReady:
			if s.OnReady != nil {
				s.OnReady(dur)
			}
			s.Emit(EventReady, dur)
		case PlaybackStateCompleted:
			if s.OnFinish != nil {
				s.OnFinish()
			}
			s.Emit(EventFinish)
		}
		s.Emit(EventStateChange, state, previous)
	})
}

func (s *Sound) handlePosition(m map[string]any) {
	pos := platform.ParseMillis(m["positionMs"])
	dur := platform.ParseMillis(m["durationMs"])

	s.mu.Lock()
	s.position = pos
	s.duration = dur
	s.mu.Unlock()

	s.host.Dispatch(func() {
		s.Emit(EventPosition, pos, dur)
	})
}

func (s *Sound) handleError(m map[string]any) {
	code := platform.ParseString(m["code"])
	message := platform.ParseString(m["message"])
	s.host.Dispatch(func() {
		s.Emit(EventError, code, message)
	})
}

func (s *Sound) invoke(method string, args map[string]any) (any, error) {
	id := s.ID()
	if id == 0 {
		return nil, platform.ErrDisposed
	}
	if args == nil {
		args = make(map[string]any, 1)
	}
	args["playerId"] = id
	return s.channel.Invoke(method, args)
}

// Load prepares url for playback. "ready" fires once the native player
// has buffered enough to start.
func (s *Sound) Load(url string) error {
	_, err := s.invoke("load", map[string]any{"url": url})
	return err
}

// Play starts or resumes playback.
func (s *Sound) Play() error {
	_, err := s.invoke("play", nil)
	return err
}

// Pause pauses playback.
func (s *Sound) Pause() error {
	_, err := s.invoke("pause", nil)
	return err
}

// Stop stops playback and rewinds. The loaded media is retained.
func (s *Sound) Stop() error {
	_, err := s.invoke("stop", nil)
	return err
}

// SeekTo seeks to the given position.
func (s *Sound) SeekTo(position time.Duration) error {
	_, err := s.invoke("seekTo", map[string]any{"positionMs": position.Milliseconds()})
	return err
}

// SetVolume sets the playback volume (0.0 to 1.0). The native player clamps
// values outside this range.
func (s *Sound) SetVolume(volume float64) error {
	_, err := s.invoke("setVolume", map[string]any{"volume": volume})
	return err
}

// SetLooping sets whether playback loops.
func (s *Sound) SetLooping(looping bool) error {
	_, err := s.invoke("setLooping", map[string]any{"looping": looping})
	return err
}

// Dispose releases the native player and its stream subscriptions. It is
// idempotent; other methods return platform.ErrDisposed afterwards.
func (s *Sound) Dispose() error {
	s.mu.Lock()
	id := s.id
	s.id = 0
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	if id == 0 {
		return nil
	}

	for _, sub := range subs {
		sub.Cancel()
	}
	_, err := s.channel.Invoke("dispose", map[string]any{"playerId": id})
	return err
}
