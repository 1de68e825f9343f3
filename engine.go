package notifsync

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/notifsync/apiclient"
	"github.com/dmitrymomot/notifsync/pkg/backoff"
	"github.com/dmitrymomot/notifsync/pushsub"
	"github.com/dmitrymomot/notifsync/realtime"
	"github.com/dmitrymomot/notifsync/reconciler"
	"github.com/dmitrymomot/notifsync/store"
	"github.com/dmitrymomot/notifsync/toast"
)

// Engine is the top-level entry point. It assembles the REST client,
// store, realtime transport, and reconciler into one authenticated
// session at a time, and owns the toast notifier across sessions.
type Engine struct {
	cfg        Config
	log        *slog.Logger
	toasts     *toast.Notifier
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu      sync.Mutex
	token   string
	api     *apiclient.Client
	store   *store.Store
	push    *pushsub.Manager
	session *reconciler.Session
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by all engine components.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithHTTPClient sets the HTTP client used for REST calls.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.httpClient = c }
}

// WithDialer sets the websocket dialer used for realtime connections.
func WithDialer(d *websocket.Dialer) Option {
	return func(e *Engine) { e.dialer = d }
}

// New creates an Engine from the given config. No network activity
// happens until StartSession.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.APIBaseURL == "" || cfg.SocketURL == "" {
		return nil, ErrMissingConfig
	}

	e := &Engine{
		cfg: cfg,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	toastOpts := []toast.Option{}
	if cfg.ToastTTL > 0 {
		toastOpts = append(toastOpts, toast.WithTTL(cfg.ToastTTL))
	}
	e.toasts = toast.New(toastOpts...)

	return e, nil
}

// StartSession authenticates the engine and begins syncing. It builds a
// fresh store and connects the realtime transport. Only one session may
// be active; end the previous one first.
func (e *Engine) StartSession(ctx context.Context, token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.session != nil {
		return ErrSessionActive
	}

	e.token = token
	e.api = e.newAPIClient()
	e.push = pushsub.NewManager(e.api, pushsub.WithLogger(e.log))
	e.store = store.New(e.api, store.WithLogger(e.log))

	sess := reconciler.NewSession(token, e.newTransport, e.store,
		reconciler.WithToasts(e.toasts),
		reconciler.WithRoom(e.cfg.Room),
		reconciler.WithLogger(e.log),
	)
	if err := sess.Start(ctx); err != nil {
		e.store.Close()
		e.store = nil
		e.api = nil
		e.push = nil
		return err
	}
	e.session = sess
	return nil
}

// SetToken rotates the session credential. REST calls pick up the new
// token immediately; the realtime transport is rebuilt and reconnected.
func (e *Engine) SetToken(ctx context.Context, token string) error {
	e.mu.Lock()
	sess := e.session
	if sess == nil {
		e.mu.Unlock()
		return ErrNoSession
	}
	e.token = token
	e.mu.Unlock()

	return sess.SetToken(ctx, token)
}

// EndSession disconnects the transport and discards the session cache.
// The engine can start a new session afterwards.
func (e *Engine) EndSession() {
	e.mu.Lock()
	sess := e.session
	e.session = nil
	e.store = nil
	e.api = nil
	e.push = nil
	e.token = ""
	e.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
}

// Close ends any active session and releases engine resources. The
// engine is unusable afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.EndSession()
	e.toasts.Close()
}

// Store returns the active session's notification cache, or nil when no
// session is running.
func (e *Engine) Store() *store.Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store
}

// Toasts returns the engine's toast notifier. It outlives individual
// sessions.
func (e *Engine) Toasts() *toast.Notifier {
	return e.toasts
}

// PushManager returns the active session's web push subscription
// manager, or nil when no session is running. The manager is built once
// per session so its VAPID key cache survives between calls.
func (e *Engine) PushManager() *pushsub.Manager {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.push
}

// State reports the session lifecycle state, StateIdle when no session
// has been started.
func (e *Engine) State() reconciler.State {
	e.mu.Lock()
	sess := e.session
	e.mu.Unlock()
	if sess == nil {
		return reconciler.StateIdle
	}
	return sess.State()
}

// ConnectionError reports the most recent realtime connection failure,
// empty while healthy or when no session is running.
func (e *Engine) ConnectionError() string {
	e.mu.Lock()
	sess := e.session
	e.mu.Unlock()
	if sess == nil {
		return ""
	}
	return sess.ConnectionError()
}

// newAPIClient builds a REST client whose token follows SetToken
// without rebuilding the client.
func (e *Engine) newAPIClient() *apiclient.Client {
	src := func() string {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.token
	}
	opts := []apiclient.Option{apiclient.WithLogger(e.log)}
	if e.httpClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(e.httpClient))
	} else if e.cfg.HTTPTimeout > 0 {
		opts = append(opts, apiclient.WithTimeout(e.cfg.HTTPTimeout))
	}
	return apiclient.New(e.cfg.APIBaseURL, src, opts...)
}

// newTransport is the reconciler's transport factory.
func (e *Engine) newTransport(token string) reconciler.Transport {
	opts := []realtime.Option{
		realtime.WithLogger(e.log),
	}
	if e.cfg.ReconnectAttempts > 0 {
		opts = append(opts, realtime.WithMaxAttempts(e.cfg.ReconnectAttempts))
	}
	if e.cfg.ReconnectInitial > 0 && e.cfg.ReconnectMax > 0 {
		opts = append(opts, realtime.WithBackoff(backoff.Exponential{
			InitialInterval: e.cfg.ReconnectInitial,
			MaxInterval:     e.cfg.ReconnectMax,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		}))
	}
	if e.dialer != nil {
		opts = append(opts, realtime.WithDialer(e.dialer))
	}
	return realtime.New(e.cfg.SocketURL, token, opts...)
}
