package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifsync/apiclient"
	"github.com/dmitrymomot/notifsync/notification"
	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// API is the slice of the REST client the store depends on.
type API interface {
	ListUserNotifications(ctx context.Context) ([]notification.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	Create(ctx context.Context, in apiclient.CreateInput) ([]notification.Notification, error)
	CreateForAll(ctx context.Context, in apiclient.CreateInput) ([]notification.Notification, error)
	CreateByRole(ctx context.Context, in apiclient.CreateInput, role string) ([]notification.Notification, error)
	CreateFromTemplate(ctx context.Context, name string, recipientIDs []string, vars map[string]string) ([]notification.Notification, error)
}

// Listener receives the full notification snapshot after every change.
// The slice is a copy; listeners must not rely on mutating it.
type Listener func([]notification.Notification)

// CountListener receives the unread count after every change.
type CountListener func(int)

// Store is the single source of truth for the notification list and unread
// count as seen by the UI. It reconciles three asynchronous sources - REST
// snapshots, remote push events and optimistic local mutations - under one
// mutex, so callers may invoke it from any goroutine.
//
// One Store serves one authenticated session: create on login, Close on
// logout. After Close all mutations are dropped, which also guards against
// stale REST responses resolving after teardown.
type Store struct {
	api      API
	log      *slog.Logger
	fallback []notification.Notification

	mu             sync.Mutex
	notifications  []notification.Notification
	hydrated       bool
	closed         bool
	nextListenerID int
	listeners      map[int]Listener
	countListeners map[int]CountListener
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the Store.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFallback replaces the built-in placeholder set installed when the
// initial snapshot fetch fails.
func WithFallback(list []notification.Notification) Option {
	return func(s *Store) {
		s.fallback = list
	}
}

// New creates a session-scoped store backed by the given REST client.
func New(api API, opts ...Option) *Store {
	s := &Store{
		api:            api,
		log:            slog.Default(),
		fallback:       FallbackSet(),
		listeners:      make(map[int]Listener),
		countListeners: make(map[int]CountListener),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetAll returns the current cache. While the cache is empty and not yet
// hydrated it fetches the REST snapshot first; if that fetch fails the
// built-in placeholder set is installed instead, so the read path never
// surfaces a hard error to the UI. A cache already holding push-delivered
// notifications is returned as-is rather than overwritten.
func (s *Store) GetAll(ctx context.Context) ([]notification.Notification, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.hydrated || len(s.notifications) > 0 {
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		return snapshot, nil
	}
	s.mu.Unlock()

	list, err := s.api.ListUserNotifications(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.hydrated || len(s.notifications) > 0 {
		// A concurrent hydration or push event won; keep its result.
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		return snapshot, nil
	}
	if err != nil {
		s.log.Warn("notification snapshot fetch failed, installing fallback set",
			logger.Component("store"), logger.Error(err))
		s.notifications = append([]notification.Notification(nil), s.fallback...)
	} else {
		s.notifications = list
	}
	s.hydrated = true
	snapshot, notify := s.changedLocked()
	s.mu.Unlock()

	notify()
	return snapshot, nil
}

// Refresh unconditionally re-fetches the snapshot and replaces the cache.
// The reconciler calls it after a reconnect to close any event gap. On
// failure the last known good state is kept.
func (s *Store) Refresh(ctx context.Context) error {
	list, err := s.api.ListUserNotifications(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.notifications = list
	s.hydrated = true
	_, notify := s.changedLocked()
	s.mu.Unlock()

	notify()
	return nil
}

// UnreadCount prefers the authoritative server count and falls back to
// computing from the local cache when the backend is unreachable.
func (s *Store) UnreadCount(ctx context.Context) (int, error) {
	count, err := s.api.UnreadCount(ctx)
	if err == nil {
		return count, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return notification.CountUnread(s.notifications), nil
}

// MarkRead marks a notification as read, optimistic-first: the cache is
// mutated immediately and never rolled back. The REST call is idempotent, so
// on failure the same mutation is re-applied and the failure only logged.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	s.applyAndNotify(func() bool { return s.markReadLocked(id) })

	// The REST call runs even when the id is unknown locally: the server
	// may know about notifications the cache has not seen yet.
	if err := s.api.MarkRead(ctx, id); err != nil {
		s.log.Warn("mark-read failed, keeping optimistic state",
			logger.Component("store"), logger.NotificationID(id), logger.Error(err))
		s.applyAndNotify(func() bool { return s.markReadLocked(id) })
	}
	return nil
}

// MarkAllRead marks every cached notification as read, optimistic-first.
func (s *Store) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	s.applyAndNotify(s.markAllReadLocked)

	if err := s.api.MarkAllRead(ctx); err != nil {
		s.log.Warn("mark-all-read failed, keeping optimistic state",
			logger.Component("store"), logger.Error(err))
		s.applyAndNotify(s.markAllReadLocked)
	}
	return nil
}

// Delete removes a notification from the cache, optimistic-first.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	s.applyAndNotify(func() bool { return s.deleteLocked(id) })

	if err := s.api.Delete(ctx, id); err != nil {
		s.log.Warn("delete failed, keeping optimistic state",
			logger.Component("store"), logger.NotificationID(id), logger.Error(err))
		s.applyAndNotify(func() bool { return s.deleteLocked(id) })
	}
	return nil
}

// Create creates a notification server-side and prepends the result.
// Creation requires server-assigned IDs, so there is no optimistic echo.
func (s *Store) Create(ctx context.Context, in apiclient.CreateInput) ([]notification.Notification, error) {
	return s.create(func() ([]notification.Notification, error) {
		return s.api.Create(ctx, in)
	})
}

// CreateForAll creates the notification for every user.
func (s *Store) CreateForAll(ctx context.Context, in apiclient.CreateInput) ([]notification.Notification, error) {
	return s.create(func() ([]notification.Notification, error) {
		return s.api.CreateForAll(ctx, in)
	})
}

// CreateByRole creates the notification for every user holding the role.
func (s *Store) CreateByRole(ctx context.Context, in apiclient.CreateInput, role string) ([]notification.Notification, error) {
	return s.create(func() ([]notification.Notification, error) {
		return s.api.CreateByRole(ctx, in, role)
	})
}

// CreateFromTemplate instantiates a server-side template.
func (s *Store) CreateFromTemplate(ctx context.Context, name string, recipientIDs []string, vars map[string]string) ([]notification.Notification, error) {
	return s.create(func() ([]notification.Notification, error) {
		return s.api.CreateFromTemplate(ctx, name, recipientIDs, vars)
	})
}

func (s *Store) create(call func() ([]notification.Notification, error)) ([]notification.Notification, error) {
	created, err := call()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	// Prepend newest-first, skipping ids already delivered via push.
	for i := len(created) - 1; i >= 0; i-- {
		if s.indexLocked(created[i].ID) < 0 {
			s.notifications = append([]notification.Notification{created[i]}, s.notifications...)
		}
	}
	_, notify := s.changedLocked()
	s.mu.Unlock()

	notify()
	return created, nil
}

// Subscribe registers a listener invoked once immediately with the current
// snapshot and again after every change. The returned func unsubscribes.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = fn
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	fn(snapshot)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SubscribeToUnreadCount registers a count listener invoked once immediately
// and again after every change. The returned func unsubscribes.
func (s *Store) SubscribeToUnreadCount(fn CountListener) func() {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.countListeners[id] = fn
	count := notification.CountUnread(s.notifications)
	s.mu.Unlock()

	fn(count)

	return func() {
		s.mu.Lock()
		delete(s.countListeners, id)
		s.mu.Unlock()
	}
}

// Apply folds a remote push event into the cache. It is the single entry
// point the reconciler uses, and every path is idempotent: replaying an
// event yields the same state as applying it once.
func (s *Store) Apply(ev notification.Event) {
	switch ev.Name {
	case notification.EventNew:
		if ev.Notification == nil {
			return
		}
		n := *ev.Notification
		s.applyAndNotify(func() bool {
			if s.indexLocked(n.ID) >= 0 {
				// Duplicate delivery must not duplicate display.
				return false
			}
			s.notifications = append([]notification.Notification{n}, s.notifications...)
			return true
		})

	case notification.EventUnreadCount:
		// Authoritative count hint: broadcast to count listeners without
		// touching the list. Count and list may transiently disagree; the
		// next full fetch heals it.
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		fns := make([]CountListener, 0, len(s.countListeners))
		for _, fn := range s.countListeners {
			fns = append(fns, fn)
		}
		s.mu.Unlock()
		for _, fn := range fns {
			fn(ev.Count)
		}

	case notification.EventRead:
		s.applyAndNotify(func() bool { return s.markReadLocked(ev.ID) })

	case notification.EventAllRead:
		// The count argument is informational only.
		s.applyAndNotify(s.markAllReadLocked)

	case notification.EventUpdated:
		if ev.Notification == nil {
			return
		}
		n := *ev.Notification
		s.applyAndNotify(func() bool {
			i := s.indexLocked(n.ID)
			if i < 0 {
				// An update for an unknown id is dropped, not inserted.
				return false
			}
			// Read stays monotonic even if the update payload says otherwise.
			n.Read = n.Read || s.notifications[i].Read
			s.notifications[i] = n
			return true
		})

	case notification.EventDeleted:
		s.applyAndNotify(func() bool { return s.deleteLocked(ev.ID) })

	default:
		// System notifications are display-only and never persisted;
		// connection status is the transport's concern. Anything else is
		// protocol skew and dropped.
		s.log.Debug("dropping non-cache event", logger.Component("store"), logger.Event(string(ev.Name)))
	}
}

// Close tears down the store at session end. Subsequent mutations and late
// REST responses are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	clear(s.listeners)
	clear(s.countListeners)
	s.mu.Unlock()
}

// applyAndNotify runs mutate under the lock and fans out to listeners when
// it reports a change. Listeners run outside the lock so they may re-enter
// the store.
func (s *Store) applyAndNotify(mutate func() bool) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if !mutate() {
		s.mu.Unlock()
		return false
	}
	_, notify := s.changedLocked()
	s.mu.Unlock()

	notify()
	return true
}

func (s *Store) indexLocked(id string) int {
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) markReadLocked(id string) bool {
	i := s.indexLocked(id)
	if i < 0 || s.notifications[i].Read {
		return false
	}
	s.notifications[i].MarkAsRead()
	return true
}

func (s *Store) markAllReadLocked() bool {
	changed := false
	for i := range s.notifications {
		if !s.notifications[i].Read {
			s.notifications[i].MarkAsRead()
			changed = true
		}
	}
	return changed
}

func (s *Store) deleteLocked(id string) bool {
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
	return true
}

func (s *Store) snapshotLocked() []notification.Notification {
	snapshot := append([]notification.Notification(nil), s.notifications...)
	notification.SortNewestFirst(snapshot)
	return snapshot
}

// changedLocked captures the snapshot plus listener sets and returns a func
// that performs the fan-out once the lock is released.
func (s *Store) changedLocked() ([]notification.Notification, func()) {
	snapshot := s.snapshotLocked()
	count := notification.CountUnread(s.notifications)

	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	countFns := make([]CountListener, 0, len(s.countListeners))
	for _, fn := range s.countListeners {
		countFns = append(countFns, fn)
	}

	return snapshot, func() {
		for _, fn := range fns {
			fn(snapshot)
		}
		for _, fn := range countFns {
			fn(count)
		}
	}
}
