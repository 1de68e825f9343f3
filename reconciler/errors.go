package reconciler

import "errors"

// ErrSessionClosed is returned by Start and SetToken after Close.
var ErrSessionClosed = errors.New("reconciler: session closed")
