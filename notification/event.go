package notification

import (
	"encoding/json"
	"fmt"
)

// EventName identifies a remote event kind. Values match the wire frame
// names used by the push channel one to one.
type EventName string

const (
	EventNew              EventName = "new_notification"
	EventUnreadCount      EventName = "unread_count_update"
	EventRead             EventName = "notification_read"
	EventAllRead          EventName = "all_notifications_read"
	EventUpdated          EventName = "notification_updated"
	EventDeleted          EventName = "notification_deleted"
	EventSystem           EventName = "system_notification"
	EventConnectionStatus EventName = "connection_status"
)

// ErrUnknownEvent is returned by DecodeEvent for frame names outside the
// taxonomy. Unknown events indicate protocol version skew and are dropped
// by the transport, not treated as fatal.
var ErrUnknownEvent = fmt.Errorf("notification: unknown event")

// Event is a decoded remote event. Exactly one payload field group is
// meaningful depending on Name:
//
//   - EventNew, EventUpdated, EventSystem: Notification
//   - EventRead, EventDeleted: ID
//   - EventUnreadCount, EventAllRead: Count
//   - EventConnectionStatus: Connected
type Event struct {
	Name         EventName
	Notification *Notification
	ID           string
	Count        int
	Connected    bool
}

type idPayload struct {
	ID string `json:"id"`
}

type countPayload struct {
	Count int `json:"count"`
}

type statusPayload struct {
	Connected bool `json:"connected"`
}

// DecodeEvent translates a wire frame into a typed event. Frame names
// outside the taxonomy yield ErrUnknownEvent; malformed payloads yield a
// decode error. Callers are expected to drop both silently.
func DecodeEvent(name string, data json.RawMessage) (Event, error) {
	ev := Event{Name: EventName(name)}

	switch ev.Name {
	case EventNew, EventUpdated, EventSystem:
		var n Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return Event{}, fmt.Errorf("notification: decode %s: %w", name, err)
		}
		ev.Notification = &n
	case EventRead, EventDeleted:
		var p idPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("notification: decode %s: %w", name, err)
		}
		ev.ID = p.ID
	case EventUnreadCount, EventAllRead:
		var p countPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("notification: decode %s: %w", name, err)
		}
		ev.Count = p.Count
	case EventConnectionStatus:
		var p statusPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("notification: decode %s: %w", name, err)
		}
		ev.Connected = p.Connected
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}

	return ev, nil
}
