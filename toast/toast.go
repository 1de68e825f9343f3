package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifsync/notification"
)

// DefaultTTL is how long a toast stays visible before auto-dismissal.
const DefaultTTL = 5 * time.Second

// Toast is an ephemeral display signal derived from a notification. Toasts
// are never persisted; their ids are client-generated and unrelated to
// notification ids.
type Toast struct {
	ID           string
	Notification notification.Notification
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Listener receives newly fired toasts.
type Listener func(Toast)

// DismissListener receives the id of a toast that expired or was dismissed.
type DismissListener func(id string)

// Notifier is the ephemeral signal sink: fire, display, auto-expire. It is
// deliberately separate from the store so toast-worthy events can be shown
// without being folded into persisted state.
type Notifier struct {
	ttl time.Duration

	mu        sync.Mutex
	closed    bool
	nextID    int
	listeners map[int]Listener
	dismiss   map[int]DismissListener
	timers    map[string]*time.Timer
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithTTL overrides the auto-dismiss duration.
func WithTTL(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.ttl = d
		}
	}
}

// New creates a toast notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		ttl:       DefaultTTL,
		listeners: make(map[int]Listener),
		dismiss:   make(map[int]DismissListener),
		timers:    make(map[string]*time.Timer),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Push fires a toast for the given notification and schedules its
// auto-dismissal. The returned toast carries the generated signal id.
func (t *Notifier) Push(n notification.Notification) Toast {
	now := time.Now()
	toast := Toast{
		ID:           uuid.NewString(),
		Notification: n,
		CreatedAt:    now,
		ExpiresAt:    now.Add(t.ttl),
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return toast
	}
	fns := make([]Listener, 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.timers[toast.ID] = time.AfterFunc(t.ttl, func() {
		t.Dismiss(toast.ID)
	})
	t.mu.Unlock()

	for _, fn := range fns {
		fn(toast)
	}
	return toast
}

// Dismiss removes a toast before (or at) its expiry. Dismissing an unknown
// or already-dismissed id is a no-op.
func (t *Notifier) Dismiss(id string) {
	t.mu.Lock()
	timer, ok := t.timers[id]
	if !ok || t.closed {
		t.mu.Unlock()
		return
	}
	timer.Stop()
	delete(t.timers, id)
	fns := make([]DismissListener, 0, len(t.dismiss))
	for _, fn := range t.dismiss {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

// Subscribe registers a listener for fired toasts; the returned func
// unsubscribes.
func (t *Notifier) Subscribe(fn Listener) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// SubscribeDismiss registers a listener for dismissed toast ids; the
// returned func unsubscribes.
func (t *Notifier) SubscribeDismiss(fn DismissListener) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.dismiss[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.dismiss, id)
		t.mu.Unlock()
	}
}

// Close stops all pending timers and drops listeners. Pushes after Close
// are ignored.
func (t *Notifier) Close() {
	t.mu.Lock()
	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	clear(t.listeners)
	clear(t.dismiss)
	t.mu.Unlock()
}
