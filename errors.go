package notifsync

import "errors"

var (
	// ErrMissingConfig is returned by New when a required URL is empty.
	ErrMissingConfig = errors.New("notifsync: api base url and socket url are required")
	// ErrSessionActive is returned by StartSession while a session runs.
	ErrSessionActive = errors.New("notifsync: session already active")
	// ErrNoSession is returned by session-scoped calls before StartSession.
	ErrNoSession = errors.New("notifsync: no active session")
	// ErrEngineClosed is returned after Close.
	ErrEngineClosed = errors.New("notifsync: engine closed")
)
