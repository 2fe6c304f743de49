package jiofi

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTokenNotFound is returned when a page does not carry the csrf_token2 input.
	ErrTokenNotFound = errors.New("csrf_token2 not found")

	// ErrChallengeNotFound is returned when the challenge document has no rand field.
	ErrChallengeNotFound = errors.New("rand not found in XML")

	// ErrRestartInProgress is returned by TryRestart when another restart is running.
	ErrRestartInProgress = errors.New("restart already in progress")
)

// NetworkError is returned when the device cannot be reached, or does not answer
// within the timeout.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying error was a timeout.
func (e *NetworkError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// RestartError wraps a failure of one of the steps before the restart request.
type RestartError struct {
	Step int
	Err  error
}

func (e *RestartError) Error() string {
	return "Failed: " + e.Err.Error()
}

func (e *RestartError) Unwrap() error { return e.Err }
