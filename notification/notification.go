package notification

import (
	"sort"
	"time"
)

// Type represents the notification severity/visual class.
// It has no behavioral effect on synchronization.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Notification is the core domain model shared by the store, the realtime
// transport and the REST client. IDs are opaque strings assigned by the
// server; the engine never fabricates them for persisted notifications.
type Notification struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Type        Type       `json:"type"`
	Read        bool       `json:"isRead"`
	RecipientID string     `json:"recipientId"`
	Active      bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*n.ExpiresAt)
}

// MarkAsRead marks the notification as read. The read flag is monotonic:
// once set it is never reverted by any reconciliation path.
func (n *Notification) MarkAsRead() {
	n.Read = true
	n.UpdatedAt = time.Now()
}

// SortNewestFirst orders notifications by creation time descending, the
// default display order. Sorting is stable so same-timestamp items keep
// their insertion order.
func SortNewestFirst(list []Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// CountUnread returns the number of unexpired unread notifications.
func CountUnread(list []Notification) int {
	count := 0
	for i := range list {
		if !list[i].Read && !list[i].IsExpired() {
			count++
		}
	}
	return count
}
