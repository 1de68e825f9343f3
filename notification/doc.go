// Package notification defines the shared domain model for the
// synchronization engine: the Notification entity and the typed remote
// event taxonomy exchanged with the push channel.
//
// The package is deliberately free of transport, storage and HTTP concerns
// so that every other package can depend on it without cycles.
package notification
