package store

import (
	"time"

	"github.com/dmitrymomot/notifsync/notification"
)

// FallbackPrefix marks the ids of the built-in placeholder set so tests and
// callers can tell degraded data from real data.
const FallbackPrefix = "fallback-"

// FallbackSet returns the fixed placeholder notifications installed when
// the initial snapshot fetch fails. A degraded-but-non-blank view is a
// deliberate contract of the engine: the UI never renders empty-with-error.
func FallbackSet() []notification.Notification {
	now := time.Now()
	return []notification.Notification{
		{
			ID:        FallbackPrefix + "1",
			Title:     "Notifications unavailable",
			Content:   "Live notifications could not be loaded. Showing sample data.",
			Type:      notification.TypeWarning,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        FallbackPrefix + "2",
			Title:     "Welcome back",
			Content:   "Your notification feed will refresh automatically once the connection recovers.",
			Type:      notification.TypeInfo,
			Active:    true,
			CreatedAt: now.Add(-time.Minute),
			UpdatedAt: now.Add(-time.Minute),
		},
		{
			ID:        FallbackPrefix + "3",
			Title:     "Tip",
			Content:   "Mark notifications as read to keep your unread badge accurate.",
			Type:      notification.TypeInfo,
			Active:    true,
			CreatedAt: now.Add(-2 * time.Minute),
			UpdatedAt: now.Add(-2 * time.Minute),
		},
	}
}

// IsFallback reports whether a notification belongs to the placeholder set.
func IsFallback(n notification.Notification) bool {
	return len(n.ID) > len(FallbackPrefix) && n.ID[:len(FallbackPrefix)] == FallbackPrefix
}
