package tsserver

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates the client has been shut down.
	ErrClosed = errors.New("tsserver client closed")

	// ErrNotStarted indicates no tsserver process is running.
	ErrNotStarted = errors.New("tsserver not started")
)

// RequestError is a failure response from tsserver.
type RequestError struct {
	Command CommandType
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("tsserver %s failed: %s", e.Command, e.Message)
}
