package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/jiofi-tools/jiobatt/pkg/config"
	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
)

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

// levelColor follows the colour bands of the battery level.
func levelColor(l jiofi.Level) *color.Color {
	switch l {
	case jiofi.LevelGood:
		return color.New(color.Bold, color.FgGreen)
	case jiofi.LevelFair:
		return color.New(color.Bold, color.FgYellow)
	case jiofi.LevelLow:
		return color.New(color.Bold, color.FgRed)
	default:
		return color.New(color.Bold, color.FgHiBlack)
	}
}

func chargeStateText(s jiofi.ChargeState) string {
	switch s {
	case jiofi.Charging:
		return color.GreenString(s.String())
	case jiofi.FullCharged:
		return color.CyanString(s.String())
	case jiofi.Discharging:
		return s.String()
	default:
		return color.HiBlackString(s.String())
	}
}

func sinceText(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%s ago)", t.Local().Format(time.DateTime), now.Sub(t).Round(time.Second))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// restartFailure is the user-facing text of a failed restart.
func restartFailure(cause string) string {
	return "Restart failed: " + strings.TrimPrefix(cause, "Failed: ")
}

// newDirectClient builds a router client from the config file, for use without
// the daemon. An unreadable config falls back to the factory defaults.
func newDirectClient() *jiofi.Client {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.WithError(err).Warnf("failed to read %s, using router defaults", configPath)
		return jiofi.NewClient(jiofi.DefaultHost)
	}
	return jiofi.NewClient(conf.Host(), jiofi.WithCredentials(conf.Username(), conf.Password()))
}
