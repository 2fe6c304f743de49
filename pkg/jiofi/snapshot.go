package jiofi

import (
	"fmt"
	"strconv"
)

// ChargeState represents the charging state reported by the device.
type ChargeState int

const (
	// NotAvailable means no usable battery reading was received.
	NotAvailable ChargeState = iota
	// Discharging indicates the battery is discharging.
	Discharging
	// Charging indicates the battery is charging.
	Charging
	// FullCharged indicates the battery is full and still on power.
	FullCharged
	// Unknown is any status word the device convention does not define.
	Unknown
)

var chargeStateNames = map[ChargeState]string{
	NotAvailable: "N/A",
	Discharging:  "Discharging",
	Charging:     "Charging",
	FullCharged:  "Full Charged",
	Unknown:      "Unknown",
}

func (s ChargeState) String() string {
	if name, ok := chargeStateNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s ChargeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ChargeState) UnmarshalText(b []byte) error {
	for k, v := range chargeStateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown charge state %q", string(b))
}

// StatusSnapshot is a single decoded battery reading. It is a value: every
// fetch produces a new one.
type StatusSnapshot struct {
	PercentageRaw  int         `json:"percentage"`
	PercentageText string      `json:"percentageText"`
	ChargeState    ChargeState `json:"chargeState"`
}

// NotAvailableSnapshot is what callers display when no reading could be made.
func NotAvailableSnapshot() StatusSnapshot {
	return StatusSnapshot{
		PercentageRaw:  0,
		PercentageText: "N/A",
		ChargeState:    NotAvailable,
	}
}

// Available reports whether the snapshot carries a real reading.
func (s StatusSnapshot) Available() bool {
	return s.PercentageRaw > 0 && s.ChargeState != NotAvailable
}

const (
	tagBatteryPercent = "batt_per"
	tagBatteryState   = "batt_st"
)

// Decode maps the raw batt_per and batt_st fields into a snapshot.
//
// The charge state lives in the high byte of the 16-bit status word:
// 0..3 discharging, 4 charging, 5 full, anything else unknown.
func Decode(rawPercent, rawState string) StatusSnapshot {
	battPer := parseIntOrZero(rawPercent)
	battSt := parseIntOrZero(rawState)

	if battPer <= 0 {
		return NotAvailableSnapshot()
	}

	var state ChargeState
	switch hi := battSt >> 8; {
	case hi >= 0 && hi <= 3:
		state = Discharging
	case hi == 4:
		state = Charging
	case hi == 5:
		state = FullCharged
	default:
		state = Unknown
	}

	return StatusSnapshot{
		PercentageRaw:  battPer,
		PercentageText: strconv.Itoa(battPer) + "%",
		ChargeState:    state,
	}
}

// DecodeDocument decodes the st_dev.w.xml status document.
func DecodeDocument(doc string) StatusSnapshot {
	percent, _ := ExtractTag(doc, tagBatteryPercent)
	state, _ := ExtractTag(doc, tagBatteryState)
	return Decode(percent, state)
}

// parseIntOrZero accepts only a plain run of ASCII digits. Signs, spaces and
// anything else give 0.
func parseIntOrZero(s string) int {
	if s == "" {
		return 0
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Level is a coarse colour band for a battery percentage.
type Level int

const (
	LevelUnknown Level = iota
	LevelLow
	LevelFair
	LevelGood
)

var levelNames = map[Level]string{
	LevelUnknown: "unknown",
	LevelLow:     "low",
	LevelFair:    "fair",
	LevelGood:    "good",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	for k, v := range levelNames {
		if v == string(b) {
			*l = k
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", string(b))
}

// LevelOf returns the display band used by the tray and the CLI:
// >=60 good, >=30 fair, >10 low, anything else unknown.
func LevelOf(s StatusSnapshot) Level {
	switch p := s.PercentageRaw; {
	case !s.Available():
		return LevelUnknown
	case p >= 60:
		return LevelGood
	case p >= 30:
		return LevelFair
	case p > 10:
		return LevelLow
	default:
		return LevelUnknown
	}
}
