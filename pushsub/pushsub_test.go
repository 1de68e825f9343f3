package pushsub_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifsync/apiclient"
	"github.com/dmitrymomot/notifsync/pushsub"
)

type fakeBackend struct {
	key     string
	keyErr  error
	keyHits int

	subscribed   []apiclient.PushSubscription
	unsubscribed []string
	err          error
}

func (f *fakeBackend) VAPIDPublicKey(ctx context.Context) (string, error) {
	f.keyHits++
	return f.key, f.keyErr
}

func (f *fakeBackend) SubscribePush(ctx context.Context, sub apiclient.PushSubscription) error {
	if f.err != nil {
		return f.err
	}
	f.subscribed = append(f.subscribed, sub)
	return nil
}

func (f *fakeBackend) UnsubscribePush(ctx context.Context, endpoint string) error {
	if f.err != nil {
		return f.err
	}
	f.unsubscribed = append(f.unsubscribed, endpoint)
	return nil
}

func TestManagerPublicKey(t *testing.T) {
	t.Parallel()

	t.Run("caches the key after first fetch", func(t *testing.T) {
		t.Parallel()

		backend := &fakeBackend{key: "BPubKey123"}
		m := pushsub.NewManager(backend)

		key, err := m.PublicKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "BPubKey123", key)

		_, err = m.PublicKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, backend.keyHits)
	})

	t.Run("empty key from server", func(t *testing.T) {
		t.Parallel()

		m := pushsub.NewManager(&fakeBackend{key: ""})
		_, err := m.PublicKey(context.Background())
		assert.ErrorIs(t, err, pushsub.ErrNoPublicKey)
	})

	t.Run("propagates backend error", func(t *testing.T) {
		t.Parallel()

		backend := &fakeBackend{keyErr: errors.New("boom")}
		m := pushsub.NewManager(backend)
		_, err := m.PublicKey(context.Background())
		assert.Error(t, err)
	})
}

func TestManagerSubscribe(t *testing.T) {
	t.Parallel()

	t.Run("registers subscription", func(t *testing.T) {
		t.Parallel()

		backend := &fakeBackend{}
		m := pushsub.NewManager(backend)

		sub := apiclient.PushSubscription{Endpoint: "https://push.example.com/ep", P256dh: "p", Auth: "a"}
		require.NoError(t, m.Subscribe(context.Background(), sub))
		require.Len(t, backend.subscribed, 1)
		assert.Equal(t, sub, backend.subscribed[0])
	})

	t.Run("rejects missing endpoint", func(t *testing.T) {
		t.Parallel()

		m := pushsub.NewManager(&fakeBackend{})
		err := m.Subscribe(context.Background(), apiclient.PushSubscription{P256dh: "p"})
		assert.ErrorIs(t, err, pushsub.ErrEmptyEndpoint)
	})
}

func TestManagerUnsubscribe(t *testing.T) {
	t.Parallel()

	t.Run("removes subscription", func(t *testing.T) {
		t.Parallel()

		backend := &fakeBackend{}
		m := pushsub.NewManager(backend)
		require.NoError(t, m.Unsubscribe(context.Background(), "https://push.example.com/ep"))
		assert.Equal(t, []string{"https://push.example.com/ep"}, backend.unsubscribed)
	})

	t.Run("rejects missing endpoint", func(t *testing.T) {
		t.Parallel()

		m := pushsub.NewManager(&fakeBackend{})
		assert.ErrorIs(t, m.Unsubscribe(context.Background(), ""), pushsub.ErrEmptyEndpoint)
	})
}
