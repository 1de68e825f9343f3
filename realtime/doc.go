// Package realtime implements the push-channel transport: one websocket
// connection per session with an auth handshake, bounded auto-reconnect,
// additive callback registration and a fixed inbound event taxonomy.
//
// The transport deliberately does not replay events missed while
// disconnected. Gap recovery after a reconnect is the reconciler's job,
// performed with a full REST re-fetch into the store.
package realtime
