package config

import (
	"time"

	"github.com/jiofi-tools/jiobatt/pkg/notify"
)

// State backends.
const (
	StateBackendFile   = "file"
	StateBackendRedis  = "redis"
	StateBackendMemory = "memory"
)

// Environment variables that take precedence over the file.
const (
	EnvHost     = "JIOBATT_HOST"
	EnvPassword = "JIOBATT_PASSWORD"
)

type Config interface {
	Host() string
	Username() string
	Password() string
	RefreshInterval() time.Duration
	CacheTTL() time.Duration
	QuietHours() notify.QuietHours
	Policy() notify.Policy
	RestartCron() string
	StateBackend() string
	StatePath() string
	Redis() RedisConfig
	Email() EmailConfig
	NATS() NATSConfig
	AllowNonRootAccess() bool

	SetHost(string)
	SetRefreshInterval(time.Duration)
	SetQuietHours(notify.QuietHours)
	SetPolicy(notify.Policy)
	SetRestartCron(string)
	SetAllowNonRootAccess(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}

type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type EmailConfig struct {
	Host     string   `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int      `json:"port,omitempty" yaml:"port,omitempty"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	From     string   `json:"from,omitempty" yaml:"from,omitempty"`
	To       []string `json:"to,omitempty" yaml:"to,omitempty"`
}

// Enabled reports whether mail alerts are configured.
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && len(e.To) > 0
}

// Notifier returns the notify package view of the settings.
func (e EmailConfig) Notifier() notify.EmailConfig {
	port := e.Port
	if port == 0 {
		port = 587
	}
	return notify.EmailConfig{
		Host:     e.Host,
		Port:     port,
		Username: e.Username,
		Password: e.Password,
		From:     e.From,
		To:       e.To,
	}
}

type NATSConfig struct {
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// Enabled reports whether alerts are published to NATS.
func (n NATSConfig) Enabled() bool {
	return n.URL != ""
}
