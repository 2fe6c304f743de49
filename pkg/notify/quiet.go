package notify

import (
	"fmt"
	"time"
)

// Clock is a time of day in minutes since midnight.
type Clock int

// NewClock returns hh:mm as a Clock.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

const (
	// DefaultQuietStart is when alerts stop for the night.
	DefaultQuietStart = Clock(22*60 + 30)
	// DefaultQuietEnd is when alerts resume.
	DefaultQuietEnd = Clock(7 * 60)
	// LegacyQuietEnd is the morning boundary of older releases.
	LegacyQuietEnd = Clock(6*60 + 30)
)

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q, expected HH:MM: %w", s, err)
	}
	return NewClock(t.Hour(), t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func clockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

// QuietHours is a daily window in which no alert fires. Start is inclusive,
// End exclusive. A window with Start > End wraps midnight.
type QuietHours struct {
	Enabled bool  `json:"enabled"`
	Start   Clock `json:"start"`
	End     Clock `json:"end"`
}

// DefaultQuietHours is 22:30 to 07:00.
var DefaultQuietHours = QuietHours{
	Enabled: true,
	Start:   DefaultQuietStart,
	End:     DefaultQuietEnd,
}

// Contains reports whether t, in its own location, falls in the window.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.Enabled || q.Start == q.End {
		return false
	}
	m := clockOf(t)
	if q.Start < q.End {
		return m >= q.Start && m < q.End
	}
	return m >= q.Start || m < q.End
}

func (q QuietHours) String() string {
	if !q.Enabled {
		return "disabled"
	}
	return q.Start.String() + "-" + q.End.String()
}
