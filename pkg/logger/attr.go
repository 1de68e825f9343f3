package logger

import (
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NotificationID records the notification identifier under the key "notification_id".
func NotificationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("notification_id", id)
}

// RecipientID records the owning user identifier under the key "recipient_id".
func RecipientID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("recipient_id", id)
}

// Event records the remote event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Room records the push-channel room name under the key "room".
func Room(name string) slog.Attr {
	return slog.String("room", name)
}

// Attempt records a reconnect attempt number under the key "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Count records a notification count under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// State records a connection or session state under the key "state".
func State(name string) slog.Attr {
	return slog.String("state", name)
}
