package jiofi

import (
	"encoding/json"
	"testing"
)

func TestDecodeNotAvailable(t *testing.T) {
	for _, raw := range []string{"", "0", "-5", "+50", " 50 ", "50\n", "abc", "  ", "12.5", "99999999999999999999"} {
		s := Decode(raw, "1024")
		if s.PercentageText != "N/A" || s.ChargeState != NotAvailable || s.PercentageRaw != 0 {
			t.Errorf("Decode(%q) = %+v, want N/A", raw, s)
		}
	}
}

func TestDecodeChargeState(t *testing.T) {
	tests := []struct {
		state int
		want  ChargeState
	}{
		{0x0000, Discharging},
		{0x0100, Discharging},
		{0x03ff, Discharging},
		{0x0400, Charging},
		{0x04ff, Charging},
		{0x0500, FullCharged},
		{0x0600, Unknown},
		{0x0700, Unknown},
		{0xff00, Unknown},
	}

	for _, tt := range tests {
		s := Decode("42", itoa(tt.state))
		if s.ChargeState != tt.want {
			t.Errorf("Decode(42, %#04x) state = %v, want %v", tt.state, s.ChargeState, tt.want)
		}
		if s.PercentageText != "42%" || s.PercentageRaw != 42 {
			t.Errorf("Decode(42, %#04x) percentage = %d %q", tt.state, s.PercentageRaw, s.PercentageText)
		}
	}
}

func TestDecodeMissingState(t *testing.T) {
	for _, raw := range []string{"", "-1", "+1280", " 1280", "0x500"} {
		s := Decode("73", raw)
		if s.ChargeState != Discharging || s.PercentageText != "73%" {
			t.Errorf("Decode(73, %q) = %+v, want 73%% discharging", raw, s)
		}
	}
}

func TestDecodeDocument(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<dev><imei>0000</imei><batt_per>64</batt_per><batt_st>1280</batt_st></dev>`
	s := DecodeDocument(doc)
	if s.PercentageRaw != 64 || s.ChargeState != FullCharged {
		t.Errorf("got %+v", s)
	}

	if s := DecodeDocument("<html>login required</html>"); s != NotAvailableSnapshot() {
		t.Errorf("got %+v, want N/A", s)
	}
}

func TestSnapshotJSON(t *testing.T) {
	b, err := json.Marshal(Decode("55", "1024"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"percentage":55,"percentageText":"55%","chargeState":"Charging"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}

	var s StatusSnapshot
	if err := json.Unmarshal([]byte(want), &s); err != nil {
		t.Fatal(err)
	}
	if s.ChargeState != Charging {
		t.Errorf("got %v", s.ChargeState)
	}

	if err := json.Unmarshal([]byte(`{"chargeState":"Sideways"}`), &s); err == nil {
		t.Error("expected error for unknown charge state")
	}
}

func TestLevelOf(t *testing.T) {
	tests := []struct {
		pct  int
		want Level
	}{
		{100, LevelGood},
		{60, LevelGood},
		{59, LevelFair},
		{30, LevelFair},
		{29, LevelLow},
		{11, LevelLow},
		{10, LevelUnknown},
		{0, LevelUnknown},
	}
	for _, tt := range tests {
		if got := LevelOf(Decode(itoa(tt.pct), "0")); got != tt.want {
			t.Errorf("LevelOf(%d) = %v, want %v", tt.pct, got, tt.want)
		}
	}
}
