package notifications

import (
	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/platform"
)

func payload(channel, dataType string, data any) (map[string]any, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return nil, &errors.ParseError{Channel: channel, DataType: dataType, Got: data}
	}
	return m, nil
}

func parseNotification(data any) (Notification, error) {
	m, err := payload(ReceivedChannelName, "Notification", data)
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		ID:           platform.ParseString(m["id"]),
		Title:        platform.ParseString(m["title"]),
		Body:         platform.ParseString(m["body"]),
		Data:         platform.ParseMap(m["data"]),
		Timestamp:    platform.ParseTime(m["timestamp"]),
		IsForeground: platform.ParseBool(m["isForeground"]),
		Source:       platform.ParseString(m["source"]),
	}, nil
}

func parseOpen(data any) (Open, error) {
	m, err := payload(OpenedChannelName, "Open", data)
	if err != nil {
		return Open{}, err
	}
	return Open{
		ID:        platform.ParseString(m["id"]),
		Action:    platform.ParseString(m["action"]),
		Source:    platform.ParseString(m["source"]),
		Data:      platform.ParseMap(m["data"]),
		Timestamp: platform.ParseTime(m["timestamp"]),
	}, nil
}

func parseDeviceToken(data any) (DeviceToken, error) {
	m, err := payload(TokenChannelName, "DeviceToken", data)
	if err != nil {
		return DeviceToken{}, err
	}
	return DeviceToken{
		Platform:  platform.ParseString(m["platform"]),
		Token:     platform.ParseString(m["token"]),
		Timestamp: platform.ParseTime(m["timestamp"]),
		IsRefresh: platform.ParseBool(m["isRefresh"]),
	}, nil
}

func parseError(data any) (NotificationError, error) {
	m, err := payload(ErrorChannelName, "NotificationError", data)
	if err != nil {
		return NotificationError{}, err
	}
	return NotificationError{
		Code:     platform.ParseString(m["code"]),
		Message:  platform.ParseString(m["message"]),
		Platform: platform.ParseString(m["platform"]),
	}, nil
}
