package toast_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifsync/notification"
	"github.com/dmitrymomot/notifsync/toast"
)

func TestNotifier_PushNotifiesSubscribers(t *testing.T) {
	t.Parallel()

	n := toast.New()
	defer n.Close()

	var mu sync.Mutex
	var got []toast.Toast
	unsub := n.Subscribe(func(ts toast.Toast) {
		mu.Lock()
		got = append(got, ts)
		mu.Unlock()
	})
	defer unsub()

	fired := n.Push(notification.Notification{ID: "n1", Title: "Hi", Type: notification.TypeInfo})

	mu.Lock()
	require.Len(t, got, 1)
	assert.Equal(t, fired.ID, got[0].ID)
	assert.Equal(t, "n1", got[0].Notification.ID)
	assert.NotEqual(t, "n1", got[0].ID, "signal id is client-generated, not the notification id")
	mu.Unlock()
}

func TestNotifier_AutoExpire(t *testing.T) {
	t.Parallel()

	n := toast.New(toast.WithTTL(30 * time.Millisecond))
	defer n.Close()

	var mu sync.Mutex
	var dismissed []string
	unsub := n.SubscribeDismiss(func(id string) {
		mu.Lock()
		dismissed = append(dismissed, id)
		mu.Unlock()
	})
	defer unsub()

	fired := n.Push(notification.Notification{ID: "n1"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(dismissed) == 1 && dismissed[0] == fired.ID
	}, time.Second, 5*time.Millisecond)
}

func TestNotifier_ManualDismissIsIdempotent(t *testing.T) {
	t.Parallel()

	n := toast.New(toast.WithTTL(time.Minute))
	defer n.Close()

	var mu sync.Mutex
	dismissals := 0
	unsub := n.SubscribeDismiss(func(string) {
		mu.Lock()
		dismissals++
		mu.Unlock()
	})
	defer unsub()

	fired := n.Push(notification.Notification{ID: "n1"})
	n.Dismiss(fired.ID)
	n.Dismiss(fired.ID)
	n.Dismiss("unknown")

	mu.Lock()
	assert.Equal(t, 1, dismissals)
	mu.Unlock()
}

func TestNotifier_CloseStopsSignals(t *testing.T) {
	t.Parallel()

	n := toast.New(toast.WithTTL(10 * time.Millisecond))

	var mu sync.Mutex
	calls := 0
	n.Subscribe(func(toast.Toast) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	n.Close()
	n.Push(notification.Notification{ID: "n1"})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, calls)
	mu.Unlock()
}
