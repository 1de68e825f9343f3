package reconciler

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifsync/notification"
	"github.com/dmitrymomot/notifsync/pkg/logger"
	"github.com/dmitrymomot/notifsync/realtime"
	"github.com/dmitrymomot/notifsync/toast"
)

// Transport is the realtime connection surface the session drives.
// *realtime.Transport satisfies it.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	SetCallbacks(cb realtime.Callbacks)
	JoinRoom(room string)
	LeaveRoom(room string)
}

// TransportFactory builds a transport bound to the given auth token.
// A token change replaces the transport wholesale instead of mutating
// the old one, so stale callbacks can never fire under a new identity.
type TransportFactory func(token string) Transport

// Store is the cache surface the session feeds. *store.Store satisfies it.
type Store interface {
	Apply(ev notification.Event)
	Refresh(ctx context.Context) error
	Close()
}

// Toasts receives ephemeral signals for freshly arrived notifications.
// *toast.Notifier satisfies it.
type Toasts interface {
	Push(n notification.Notification) toast.Toast
}

// Session binds one transport to one store and keeps them consistent:
// realtime events flow into the store, and a healed connection triggers
// a single cache refresh to cover anything missed while offline.
type Session struct {
	factory TransportFactory
	store   Store
	toasts  Toasts
	room    string
	log     *slog.Logger

	mu            sync.Mutex
	state         State
	transport     Transport
	token         string
	ctx           context.Context
	everConnected bool
	lastConnErr   string
}

// Option configures a Session.
type Option func(*Session)

// WithToasts forwards new and system notifications to the given notifier.
func WithToasts(t Toasts) Option {
	return func(s *Session) { s.toasts = t }
}

// WithRoom joins the given room after every successful connect and
// leaves it on teardown.
func WithRoom(room string) Option {
	return func(s *Session) { s.room = room }
}

// WithLogger sets the logger for session lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession creates a session. It does not connect; call Start.
func NewSession(token string, factory TransportFactory, store Store, opts ...Option) *Session {
	s := &Session{
		factory: factory,
		store:   store,
		token:   token,
		state:   StateIdle,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the transport for the current token, wires its events
// into the store, and begins connecting. The context governs the
// session's background work, including post-reconnect refreshes.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return ErrSessionClosed
	}
	if s.transport != nil {
		return nil
	}

	s.ctx = context.WithoutCancel(ctx)
	s.startTransportLocked(ctx)
	return nil
}

// SetToken replaces the session identity. The old transport is torn
// down before the new one connects, so events authenticated under the
// previous token never reach the store again.
func (s *Session) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.token = token
	old := s.transport
	s.transport = nil
	s.mu.Unlock()

	if old != nil {
		old.Disconnect()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return ErrSessionClosed
	}
	s.startTransportLocked(ctx)
	return nil
}

// Close disconnects the transport and closes the store. The session is
// terminal afterwards; Start and SetToken return ErrSessionClosed.
// Disconnect blocks until the transport's callbacks have gone quiet, so
// nothing mutates the store after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.transitionLocked(StateDisconnected)
	t := s.transport
	s.transport = nil
	s.mu.Unlock()

	if t != nil {
		if s.room != "" {
			t.LeaveRoom(s.room)
		}
		t.Disconnect()
	}
	s.store.Close()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConnectionError returns a description of the most recent connection
// failure, or an empty string while the connection is healthy. It is
// the only caller-facing surface for connectivity problems; individual
// retry attempts are not reported as errors.
func (s *Session) ConnectionError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastConnErr
}

// startTransportLocked builds and connects a transport for the current
// token. Caller holds s.mu.
func (s *Session) startTransportLocked(ctx context.Context) {
	t := s.factory(s.token)
	t.SetCallbacks(s.callbacks())
	s.transport = t
	s.transitionLocked(StateConnecting)
	if err := t.Connect(ctx); err != nil {
		s.lastConnErr = err.Error()
		s.log.ErrorContext(ctx, "realtime connect failed", logger.Error(err))
	}
}

// callbacks wires transport events into the store and toast notifier.
// All handlers run on the transport's read goroutine.
func (s *Session) callbacks() realtime.Callbacks {
	return realtime.Callbacks{
		OnConnectionStatus: s.onStatus,
		OnConnectionError:  s.onError,
		OnNewNotification: func(n notification.Notification) {
			s.apply(notification.Event{Name: notification.EventNew, Notification: &n})
			if s.toasts != nil {
				s.toasts.Push(n)
			}
		},
		OnSystemNotification: func(n notification.Notification) {
			// System notifications are ephemeral; they surface as a
			// toast but never enter the persistent cache.
			if s.toasts != nil {
				s.toasts.Push(n)
			}
		},
		OnUnreadCount: func(count int) {
			s.apply(notification.Event{Name: notification.EventUnreadCount, Count: count})
		},
		OnNotificationRead: func(id string) {
			s.apply(notification.Event{Name: notification.EventRead, ID: id})
		},
		OnAllRead: func(count int) {
			s.apply(notification.Event{Name: notification.EventAllRead, Count: count})
		},
		OnNotificationUpdate: func(n notification.Notification) {
			s.apply(notification.Event{Name: notification.EventUpdated, Notification: &n})
		},
		OnNotificationDelete: func(id string) {
			s.apply(notification.Event{Name: notification.EventDeleted, ID: id})
		},
	}
}

func (s *Session) apply(ev notification.Event) {
	s.mu.Lock()
	closed := s.state == StateDisconnected
	s.mu.Unlock()
	if closed {
		return
	}
	s.store.Apply(ev)
}

// onStatus tracks connection health. The first successful connect only
// marks the session connected; every later false→true transition means
// events may have been missed, so the store is refreshed exactly once
// per healed connection.
func (s *Session) onStatus(connected bool) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}

	if !connected {
		s.transitionLocked(StateReconnecting)
		s.mu.Unlock()
		return
	}

	reconnected := s.everConnected
	s.everConnected = true
	s.lastConnErr = ""
	s.transitionLocked(StateConnected)
	t := s.transport
	ctx := s.ctx
	s.mu.Unlock()

	if s.room != "" && t != nil {
		t.JoinRoom(s.room)
	}
	if reconnected {
		go s.heal(ctx)
	}
}

func (s *Session) onError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.lastConnErr = err.Error()
}

// heal re-fetches the full notification list after a reconnect to pick
// up anything the dropped connection swallowed. Applying the fetched
// state is idempotent, so overlap with replayed events is harmless.
func (s *Session) heal(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.store.Refresh(ctx); err != nil {
		s.log.Warn("post-reconnect refresh failed", logger.Error(err))
	}
}

func (s *Session) transitionLocked(to State) {
	if s.state == to {
		return
	}
	if !canTransition(s.state, to) {
		s.log.Debug("ignoring invalid state transition",
			logger.State(string(s.state)), slog.String("to", string(to)))
		return
	}
	s.state = to
}
