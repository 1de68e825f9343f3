package pushsub

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifsync/apiclient"
	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// Backend is the slice of the REST API the manager needs.
// *apiclient.Client satisfies it.
type Backend interface {
	VAPIDPublicKey(ctx context.Context) (string, error)
	SubscribePush(ctx context.Context, sub apiclient.PushSubscription) error
	UnsubscribePush(ctx context.Context, endpoint string) error
}

// Manager registers and removes web push subscriptions against the
// backend. Building the subscription itself (service worker, key pair)
// happens on the platform side; the manager only handles the server
// round trips and caches the VAPID key between calls.
type Manager struct {
	backend Backend
	log     *slog.Logger

	// cached VAPID key; the key is static per server deployment.
	mu  sync.Mutex
	key string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for subscription events.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a push subscription manager backed by the given API.
func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PublicKey returns the server's VAPID public key, fetching it on first
// use and serving the cached value afterwards.
func (m *Manager) PublicKey(ctx context.Context) (string, error) {
	m.mu.Lock()
	cached := m.key
	m.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	key, err := m.backend.VAPIDPublicKey(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrNoPublicKey
	}

	m.mu.Lock()
	m.key = key
	m.mu.Unlock()
	return key, nil
}

// Subscribe registers the subscription endpoint with the backend.
func (m *Manager) Subscribe(ctx context.Context, sub apiclient.PushSubscription) error {
	if sub.Endpoint == "" {
		return ErrEmptyEndpoint
	}
	if err := m.backend.SubscribePush(ctx, sub); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "push subscription registered", logger.Component("pushsub"))
	return nil
}

// Unsubscribe removes the subscription endpoint from the backend.
func (m *Manager) Unsubscribe(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return ErrEmptyEndpoint
	}
	if err := m.backend.UnsubscribePush(ctx, endpoint); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "push subscription removed", logger.Component("pushsub"))
	return nil
}
