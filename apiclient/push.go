package apiclient

import (
	"context"
	"net/http"
)

// PushSubscription mirrors the browser Push API subscription payload the
// backend stores. Its platform-specific mechanics (Service Worker, key
// generation) live entirely outside this module.
type PushSubscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// VAPIDPublicKey fetches the server's public key for push subscription.
func (c *Client) VAPIDPublicKey(ctx context.Context) (string, error) {
	var payload struct {
		PublicKey string `json:"publicKey"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/vapid-public-key", nil, &payload); err != nil {
		return "", err
	}
	return payload.PublicKey, nil
}

// SubscribePush registers a push subscription endpoint for the
// authenticated user.
func (c *Client) SubscribePush(ctx context.Context, sub PushSubscription) error {
	return c.do(ctx, http.MethodPost, "/notifications/push/subscribe", sub, nil)
}

// UnsubscribePush removes a previously registered push endpoint.
func (c *Client) UnsubscribePush(ctx context.Context, endpoint string) error {
	body := struct {
		Endpoint string `json:"endpoint"`
	}{Endpoint: endpoint}
	return c.do(ctx, http.MethodPost, "/notifications/push/unsubscribe", body, nil)
}
