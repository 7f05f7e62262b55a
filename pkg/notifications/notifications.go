// Package notifications wraps the native local and push notification manager.
package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/events"
	"github.com/go-drift/nativekit/pkg/platform"
)

// Channel names shared with the native notification manager.
const (
	MethodChannelName   = "nativekit/notifications"
	ReceivedChannelName = "nativekit/notifications/received"
	OpenedChannelName   = "nativekit/notifications/opened"
	TokenChannelName    = "nativekit/notifications/token"
	ErrorChannelName    = "nativekit/notifications/error"
)

// Events emitted by a Service.
const (
	EventReceived = "received" // args: Notification
	EventOpened   = "opened"   // args: Open
	EventToken    = "token"    // args: DeviceToken
	EventError    = "error"    // args: NotificationError
)

// Request describes a local notification schedule request.
type Request struct {
	// ID identifies the notification. Use the same ID to update or cancel it.
	// Schedule generates one when empty.
	ID string
	// Title is the notification title.
	Title string
	// Body is the notification body text.
	Body string
	// Data is an optional key/value payload delivered with the notification.
	Data map[string]any
	// At schedules the notification for a specific time.
	At time.Time
	// IntervalSeconds sets a repeat interval. Repeating is only honored when > 0.
	IntervalSeconds int64
	// Repeats indicates whether the notification should repeat.
	Repeats bool
	// ChannelID specifies the Android notification channel. Ignored on iOS.
	ChannelID string
	// Sound sets the sound name; empty uses the platform default.
	Sound string
	// Badge sets the app icon badge count (iOS only). Nil leaves it unchanged.
	Badge *int
}

// Notification is a delivered notification.
type Notification struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Data         map[string]any `json:"data"`
	Timestamp    time.Time      `json:"timestamp"`
	IsForeground bool           `json:"isForeground"`
	// Source is "local" or "remote".
	Source string `json:"source"`
}

// Open is a user opening a notification.
type Open struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	Action    string         `json:"action"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
}

// DeviceToken is a push token update.
type DeviceToken struct {
	Platform  string    `json:"platform"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
	IsRefresh bool      `json:"isRefresh"`
}

// NotificationError is an error reported by the native notification manager.
type NotificationError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Platform string `json:"platform"`
}

// Settings describes the current notification settings.
type Settings struct {
	Status        string `json:"status"`
	AlertsEnabled bool   `json:"alertsEnabled"`
	SoundsEnabled bool   `json:"soundsEnabled"`
	BadgesEnabled bool   `json:"badgesEnabled"`
}

// Service provides notification management. Each event's native stream is
// attached the first time someone listens for it.
type Service struct {
	*events.Object

	host    *platform.Host
	channel *platform.MethodChannel

	mu   sync.Mutex
	subs []*platform.Subscription

	// OnReceive is called for every delivered notification, before
	// "received" listeners. Setting it does not attach the stream; register
	// a "received" listener or call Watch.
	OnReceive func(Notification)

	// ShouldPresent is asked by native whether a notification arriving while
	// the app is in the foreground should be shown. Nil shows all of them.
	ShouldPresent func(Notification) bool
}

// New creates the notification service for host.
func New(host *platform.Host, opts ...events.Option) *Service {
	s := &Service{
		host:    host,
		channel: host.MethodChannel(MethodChannelName),
	}
	s.channel.SetHandler(s.handleNativeCall)
	s.Object = events.Compose(events.Bind(s, events.Layer[*Service]{
		Class: "Notifications",
		Table: events.Table[*Service]{
			EventReceived: func(s *Service) error {
				listenTyped(s, ReceivedChannelName, parseNotification, func(n Notification) {
					if s.OnReceive != nil {
						s.OnReceive(n)
					}
					s.Emit(EventReceived, n)
				})
				return nil
			},
			EventOpened: func(s *Service) error {
				listenTyped(s, OpenedChannelName, parseOpen, func(o Open) { s.Emit(EventOpened, o) })
				return nil
			},
			EventToken: func(s *Service) error {
				if _, err := s.channel.Invoke("registerForPush", nil); err != nil {
					return err
				}
				listenTyped(s, TokenChannelName, parseDeviceToken, func(t DeviceToken) { s.Emit(EventToken, t) })
				return nil
			},
			EventError: func(s *Service) error {
				listenTyped(s, ErrorChannelName, parseError, func(e NotificationError) { s.Emit(EventError, e) })
				return nil
			},
		},
	}), opts...)
	return s
}

// handleNativeCall answers calls native makes into Go on the method channel.
func (s *Service) handleNativeCall(method string, args any) (any, error) {
	switch method {
	case "willPresent":
		n, err := parseNotification(args)
		if err != nil {
			return nil, err
		}
		return map[string]any{"present": s.shouldPresent(n)}, nil
	default:
		return nil, platform.ErrMethodNotFound
	}
}

// shouldPresent defaults to true when the callback is unset or panics.
func (s *Service) shouldPresent(n Notification) (present bool) {
	present = true
	if s.ShouldPresent == nil {
		return present
	}
	defer errors.Recover("notifications.willPresent")
	present = s.ShouldPresent(n)
	return present
}

// Watch attaches the delivery stream so OnReceive fires without listeners.
func (s *Service) Watch() error {
	_, err := s.On(EventReceived, func(...any) {})
	return err
}

func listenTyped[T any](s *Service, channel string, parse func(any) (T, error), deliver func(T)) {
	sub := s.host.EventChannel(channel).Listen(platform.EventHandler{
		OnEvent: func(data any) {
			val, err := parse(data)
			if err != nil {
				errors.Report(&errors.KitError{
					Op:      "notifications.parse",
					Kind:    errors.KindParsing,
					Channel: channel,
					Err:     err,
				})
				return
			}
			s.host.Dispatch(func() { deliver(val) })
		},
		OnError: func(err error) {
			s.host.Logger().Warn("notification stream error", zap.String("channel", channel), zap.Error(err))
			errors.Report(&errors.KitError{
				Op:      "notifications.stream",
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

// Settings returns current notification settings and permission status.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	result, err := s.channel.Invoke("getSettings", nil)
	if err != nil {
		return Settings{Status: "unknown"}, err
	}
	settings := Settings{Status: "unknown"}
	if m, ok := result.(map[string]any); ok {
		if status := platform.ParseString(m["status"]); status != "" {
			settings.Status = status
		}
		settings.AlertsEnabled = platform.ParseBool(m["alertsEnabled"])
		settings.SoundsEnabled = platform.ParseBool(m["soundsEnabled"])
		settings.BadgesEnabled = platform.ParseBool(m["badgesEnabled"])
	}
	return settings, nil
}

// Schedule schedules a local notification and returns its ID.
func (s *Service) Schedule(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Title == "" && req.Body == "" {
		return "", errors.InvalidArgument("Notifications.Schedule", "", "title or body is required")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	args := map[string]any{
		"id":              req.ID,
		"title":           req.Title,
		"body":            req.Body,
		"data":            req.Data,
		"intervalSeconds": req.IntervalSeconds,
		"repeats":         req.Repeats && req.IntervalSeconds > 0,
		"channelId":       req.ChannelID,
		"sound":           req.Sound,
	}
	if !req.At.IsZero() {
		args["at"] = req.At.UnixMilli()
	}
	if req.Badge != nil {
		args["badge"] = *req.Badge
	}
	if _, err := s.channel.Invoke("schedule", args); err != nil {
		return "", err
	}
	return req.ID, nil
}

// Cancel cancels a scheduled notification by ID.
func (s *Service) Cancel(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.channel.Invoke("cancel", map[string]any{"id": id})
	return err
}

// CancelAll cancels all scheduled notifications.
func (s *Service) CancelAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.channel.Invoke("cancelAll", nil)
	return err
}

// SetBadge sets the app badge count.
func (s *Service) SetBadge(ctx context.Context, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.channel.Invoke("setBadge", map[string]any{"count": count})
	return err
}

// Close detaches every native stream.
func (s *Service) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}
