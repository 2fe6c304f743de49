// Package types holds the payloads shared by the daemon and its clients.
package types

import (
	"time"

	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
)

// StatusRecord is one refresh of the router status as served by the daemon.
type StatusRecord struct {
	Snapshot  jiofi.StatusSnapshot `json:"snapshot"`
	Level     jiofi.Level          `json:"level"`
	UpdatedAt time.Time            `json:"updatedAt"`
	// Error is set when the router could not be reached; Snapshot is N/A then.
	Error string `json:"error,omitempty"`
	// Action is the notification decision taken for this snapshot.
	Action string `json:"action,omitempty"`
	// Trigger is what caused the refresh: "loop", "api" or "schedule".
	Trigger string `json:"trigger,omitempty"`
}

// NotificationStatus is the persisted alert state and the active policy.
type NotificationStatus struct {
	LastFired  string `json:"lastFired"`
	Quiet      bool   `json:"quiet"`
	QuietHours string `json:"quietHours"`
	LowMax     int    `json:"lowMax"`
	HighMin    int    `json:"highMin"`
	Backend    string `json:"backend"`
	Notifiers  int    `json:"notifiers"`
}

// ScheduleStatus describes the scheduled router restart.
type ScheduleStatus struct {
	Cron     string      `json:"cron"`
	Enabled  bool        `json:"enabled"`
	NextRuns []time.Time `json:"nextRuns,omitempty"`
}

// ScheduleRequest is the body of PUT /schedule. An empty Cron disables it.
type ScheduleRequest struct {
	Cron string `json:"cron"`
}

// PostponeRequest is the body of POST /schedule/postpone.
type PostponeRequest struct {
	Minutes int `json:"minutes"`
}

// ConfigView is the daemon configuration without secrets.
type ConfigView struct {
	Host               string `json:"host"`
	Username           string `json:"username"`
	RefreshInterval    string `json:"refreshInterval"`
	CacheTTL           string `json:"cacheTTL"`
	QuietHours         string `json:"quietHours"`
	LowBatteryMax      int    `json:"lowBatteryMax"`
	HighBatteryMin     int    `json:"highBatteryMin"`
	RestartCron        string `json:"restartCron"`
	StateBackend       string `json:"stateBackend"`
	EmailAlerts        bool   `json:"emailAlerts"`
	NATSAlerts         bool   `json:"natsAlerts"`
	AllowNonRootAccess bool   `json:"allowNonRootAccess"`
}
