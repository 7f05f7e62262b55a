package desktop

import (
	"time"

	"go.uber.org/zap"

	"github.com/go-drift/nativekit/pkg/notifications"
	"github.com/go-drift/nativekit/pkg/platform"
	"github.com/go-drift/nativekit/pkg/sound"
	"github.com/go-drift/nativekit/pkg/view"
)

// SimulatedTrackLength is the media duration the simulated player reports.
const SimulatedTrackLength = 300 * time.Millisecond

// Simulate installs handlers that make the bridge behave like a device:
// sounds load and play to completion, scheduled notifications arrive,
// and pages are shown after creation.
func (b *Bridge) Simulate() {
	b.simulateSound()
	b.simulateNotifications()
	b.simulatePages()
}

func (b *Bridge) simulateSound() {
	state := func(args map[string]any, st sound.PlaybackState, pos time.Duration) map[string]any {
		return map[string]any{
			"playerId":      args["playerId"],
			"playbackState": int(st),
			"positionMs":    pos.Milliseconds(),
			"durationMs":    SimulatedTrackLength.Milliseconds(),
		}
	}
	b.Handle(sound.MethodChannelName, "load", func(b *Bridge, args map[string]any) (any, error) {
		b.SendAfter(10*time.Millisecond, sound.StateChannelName, state(args, sound.PlaybackStateBuffering, 0))
		b.SendAfter(20*time.Millisecond, sound.StateChannelName, state(args, sound.PlaybackStateReady, 0))
		return nil, nil
	})
	b.Handle(sound.MethodChannelName, "play", func(b *Bridge, args map[string]any) (any, error) {
		b.SendAfter(0, sound.StateChannelName, state(args, sound.PlaybackStatePlaying, 0))
		b.SendAfter(SimulatedTrackLength/2, sound.PositionChannelName, state(args, sound.PlaybackStatePlaying, SimulatedTrackLength/2))
		b.SendAfter(SimulatedTrackLength, sound.StateChannelName, state(args, sound.PlaybackStateCompleted, SimulatedTrackLength))
		return nil, nil
	})
	b.Handle(sound.MethodChannelName, "pause", func(b *Bridge, args map[string]any) (any, error) {
		b.SendAfter(0, sound.StateChannelName, state(args, sound.PlaybackStatePaused, 0))
		return nil, nil
	})
}

func (b *Bridge) simulateNotifications() {
	b.Handle(notifications.MethodChannelName, "getSettings", func(*Bridge, map[string]any) (any, error) {
		return map[string]any{
			"status":        "authorized",
			"alertsEnabled": true,
			"soundsEnabled": true,
			"badgesEnabled": true,
		}, nil
	})
	b.Handle(notifications.MethodChannelName, "registerForPush", func(b *Bridge, _ map[string]any) (any, error) {
		b.SendAfter(5*time.Millisecond, notifications.TokenChannelName, map[string]any{
			"platform": "desktop",
			"token":    "desktop-token",
		})
		return nil, nil
	})
	b.Handle(notifications.MethodChannelName, "schedule", func(b *Bridge, args map[string]any) (any, error) {
		delay := time.Duration(0)
		if at, ok := platform.ToInt64(args["at"]); ok {
			delay = max(time.Until(time.UnixMilli(at)), 0)
		}
		b.loop.AfterFunc(delay, func() {
			n := map[string]any{
				"id":           args["id"],
				"title":        args["title"],
				"body":         args["body"],
				"data":         args["data"],
				"timestamp":    time.Now().UnixMilli(),
				"isForeground": true,
				"source":       "local",
			}
			if !b.presents(n) {
				return
			}
			b.SendAfter(0, notifications.ReceivedChannelName, n)
		})
		return nil, nil
	})
}

// presents asks Go whether a foreground notification should be shown.
// Without a Go handler the notification is shown.
func (b *Bridge) presents(n map[string]any) bool {
	result, err := b.CallGo(notifications.MethodChannelName, "willPresent", n)
	if err != nil {
		b.logger.Debug("willPresent not answered", zap.Error(err))
		return true
	}
	m := platform.ParseMap(result)
	if _, ok := m["present"]; !ok {
		return true
	}
	return platform.ParseBool(m["present"])
}

func (b *Bridge) simulatePages() {
	b.Handle(view.MethodChannelName, "create", func(b *Bridge, args map[string]any) (any, error) {
		if platform.ParseString(args["kind"]) == "page" {
			b.SendAfter(5*time.Millisecond, view.PageChannelName, map[string]any{
				"viewId": args["viewId"],
				"type":   view.EventShow,
			})
		}
		return nil, nil
	})
}
