package events

import (
	"encoding/json"

	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
)

// Event name constants
const (
	StatusUpdated   = "status.updated"
	AlertFired      = "alert.fired"
	RestartStarted  = "restart.started"
	RestartFinished = "restart.finished"
	RestartUpcoming = "restart.upcoming"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// StatusUpdatedEvent is the payload of status.updated.
type StatusUpdatedEvent struct {
	Snapshot jiofi.StatusSnapshot `json:"snapshot"`
	Error    string               `json:"error,omitempty"`
	Ts       int64                `json:"ts"`
}

// AlertFiredEvent is the payload of alert.fired.
type AlertFiredEvent struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Ts    int64  `json:"ts"`
}

// RestartEvent is the payload of the restart.* events.
type RestartEvent struct {
	// Trigger is "user" or "schedule".
	Trigger string `json:"trigger"`
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	// At is the planned time, set on restart.upcoming.
	At int64 `json:"at,omitempty"`
	Ts int64 `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.AlertFiredEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Title)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
