package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, 0, 0, time.Local)
}

func TestQuietHoursContains(t *testing.T) {
	q := DefaultQuietHours

	tests := []struct {
		t     time.Time
		quiet bool
	}{
		{at(22, 29), false},
		{at(22, 30), true},
		{at(23, 59), true},
		{at(0, 0), true},
		{at(6, 30), true},
		{at(6, 59), true},
		{at(7, 0), false},
		{at(12, 0), false},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.quiet, q.Contains(tt.t), "at %s", tt.t.Format("15:04"))
	}
}

func TestQuietHoursLegacyEnd(t *testing.T) {
	q := QuietHours{Enabled: true, Start: DefaultQuietStart, End: LegacyQuietEnd}
	assert.True(t, q.Contains(at(6, 29)))
	assert.False(t, q.Contains(at(6, 30)))
}

func TestQuietHoursSameDay(t *testing.T) {
	q := QuietHours{Enabled: true, Start: NewClock(13, 0), End: NewClock(14, 0)}
	assert.False(t, q.Contains(at(12, 59)))
	assert.True(t, q.Contains(at(13, 0)))
	assert.False(t, q.Contains(at(14, 0)))
}

func TestQuietHoursDisabled(t *testing.T) {
	q := DefaultQuietHours
	q.Enabled = false
	assert.False(t, q.Contains(at(23, 0)))
	assert.Equal(t, "disabled", q.String())
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("22:30")
	require.NoError(t, err)
	assert.Equal(t, DefaultQuietStart, c)
	assert.Equal(t, "22:30", c.String())

	c, err = ParseClock("07:00")
	require.NoError(t, err)
	assert.Equal(t, DefaultQuietEnd, c)

	for _, s := range []string{"", "7", "24:00", "12:60", "noon"} {
		_, err := ParseClock(s)
		assert.Errorf(t, err, "input %q", s)
	}
}

func TestClockText(t *testing.T) {
	var c Clock
	require.NoError(t, c.UnmarshalText([]byte("06:30")))
	assert.Equal(t, LegacyQuietEnd, c)

	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "06:30", string(b))
}
