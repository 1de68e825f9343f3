package store

import "errors"

// ErrClosed is returned when an operation reaches a store after session
// teardown. Late REST responses and transport callbacks hit this guard
// instead of mutating a torn-down cache.
var ErrClosed = errors.New("store: closed")
