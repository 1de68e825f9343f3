package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed wraps transport-level failures (connection refused,
	// timeout, cancelled context). Reads built on the client degrade to
	// cached or fallback data on this error.
	ErrRequestFailed = errors.New("apiclient: request failed")

	// ErrEmptyID is returned when an operation requires a notification ID.
	ErrEmptyID = errors.New("apiclient: notification id is required")
)

// Error describes an unsuccessful response from the backend: either a
// non-2xx status or an envelope with success=false.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: backend returned status %d", e.Status)
	}
	return fmt.Sprintf("apiclient: backend returned status %d: %s", e.Status, e.Message)
}

// IsBackendError reports whether err is a backend rejection as opposed to a
// transport-level failure.
func IsBackendError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
