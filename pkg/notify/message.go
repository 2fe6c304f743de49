package notify

import (
	"time"

	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
)

// Message returns the alert title and body for an action. Actions that do not
// fire return empty strings.
func Message(a Action, s jiofi.StatusSnapshot) (title, body string) {
	switch a {
	case ActionFireLow:
		return "Battery Low - " + s.PercentageText, "Time to switch on charging!"
	case ActionFireHigh:
		return "Battery Full - " + s.PercentageText, "Time to switch off charging!"
	default:
		return "", ""
	}
}

// Alert is a fired alert handed to a Notifier.
type Alert struct {
	Action   Action               `json:"-"`
	Kind     Kind                 `json:"kind"`
	Title    string               `json:"title"`
	Body     string               `json:"body"`
	Snapshot jiofi.StatusSnapshot `json:"snapshot"`
	Time     time.Time            `json:"time"`
}

// NewAlert builds the alert for a firing action.
func NewAlert(a Action, s jiofi.StatusSnapshot, now time.Time) Alert {
	title, body := Message(a, s)
	kind := KindNone
	switch a {
	case ActionFireLow:
		kind = KindLow
	case ActionFireHigh:
		kind = KindHigh
	}
	return Alert{
		Action:   a,
		Kind:     kind,
		Title:    title,
		Body:     body,
		Snapshot: s,
		Time:     now,
	}
}
