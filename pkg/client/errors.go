package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrDaemonNotRunning is returned when the daemon is not running
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the user does not have permission to perform the requested action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the daemon
	ErrNotFound = errors.New("404 not found")

	// ErrConflict is returned when the daemon is busy with the same operation
	ErrConflict = errors.New("409 conflict")
)

// APIError is a non-2xx reply from the daemon.
type APIError struct {
	StatusCode int
	// Message is the reply body, unquoted when it is a JSON string.
	Message string
}

func newAPIError(code int, body string) *APIError {
	msg := strings.TrimSpace(body)
	var s string
	if err := json.Unmarshal([]byte(msg), &s); err == nil {
		msg = s
	}
	return &APIError{StatusCode: code, Message: msg}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("got %d", e.StatusCode)
	}
	return fmt.Sprintf("got %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	}
	return false
}
