package pushsub

import "errors"

var (
	// ErrEmptyEndpoint is returned when a subscription has no endpoint URL.
	ErrEmptyEndpoint = errors.New("pushsub: empty subscription endpoint")
	// ErrNoPublicKey is returned when the server reports no VAPID key.
	ErrNoPublicKey = errors.New("pushsub: server returned no VAPID public key")
)
