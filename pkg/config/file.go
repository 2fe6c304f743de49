package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
	"github.com/jiofi-tools/jiobatt/pkg/notify"
	"github.com/jiofi-tools/jiobatt/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Host:     ptr.To(jiofi.DefaultHost),
		Username: ptr.To(jiofi.DefaultUsername),
		Password: ptr.To(jiofi.DefaultPassword),
		// The home screen widget refreshed every 10 minutes.
		RefreshIntervalSeconds: ptr.To(600),
		CacheTTLSeconds:        ptr.To(30),
		QuietHours: &RawQuietHours{
			Enabled: ptr.To(true),
			Start:   ptr.To(notify.DefaultQuietStart.String()),
			End:     ptr.To(notify.DefaultQuietEnd.String()),
		},
		LowBatteryMax:      ptr.To(notify.DefaultPolicy.LowMax),
		HighBatteryMin:     ptr.To(notify.DefaultPolicy.HighMin),
		RestartCron:        ptr.To(""),
		StateBackend:       ptr.To(StateBackendFile),
		StatePath:          ptr.To(notify.DefaultStatePath),
		NATS:               &NATSConfig{Subject: notify.DefaultNATSSubject},
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawQuietHours struct {
	Enabled *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Start   *string `json:"start,omitempty" yaml:"start,omitempty"`
	End     *string `json:"end,omitempty" yaml:"end,omitempty"`
}

type RawFileConfig struct {
	Host                   *string        `json:"host,omitempty" yaml:"host,omitempty"`
	Username               *string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password               *string        `json:"password,omitempty" yaml:"password,omitempty"`
	RefreshIntervalSeconds *int           `json:"refreshIntervalSeconds,omitempty" yaml:"refreshIntervalSeconds,omitempty"`
	CacheTTLSeconds        *int           `json:"cacheTTLSeconds,omitempty" yaml:"cacheTTLSeconds,omitempty"`
	QuietHours             *RawQuietHours `json:"quietHours,omitempty" yaml:"quietHours,omitempty"`
	LowBatteryMax          *int           `json:"lowBatteryMax,omitempty" yaml:"lowBatteryMax,omitempty"`
	HighBatteryMin         *int           `json:"highBatteryMin,omitempty" yaml:"highBatteryMin,omitempty"`
	RestartCron            *string        `json:"restartCron,omitempty" yaml:"restartCron,omitempty"`
	StateBackend           *string        `json:"stateBackend,omitempty" yaml:"stateBackend,omitempty"`
	StatePath              *string        `json:"statePath,omitempty" yaml:"statePath,omitempty"`
	Redis                  *RedisConfig   `json:"redis,omitempty" yaml:"redis,omitempty"`
	Email                  *EmailConfig   `json:"email,omitempty" yaml:"email,omitempty"`
	NATS                   *NATSConfig    `json:"nats,omitempty" yaml:"nats,omitempty"`
	AllowNonRootAccess     *bool          `json:"allowNonRootAccess,omitempty" yaml:"allowNonRootAccess,omitempty"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (f *File) raw() *RawFileConfig {
	if f.c == nil {
		panic("config is nil")
	}
	return f.c
}

func (f *File) Host() string {
	if v := os.Getenv(EnvHost); v != "" {
		return v
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().Host, *defaultFileConfig.Host)
}

func (f *File) Username() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().Username, *defaultFileConfig.Username)
}

func (f *File) Password() string {
	if v := os.Getenv(EnvPassword); v != "" {
		return v
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().Password, *defaultFileConfig.Password)
}

func (f *File) RefreshInterval() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	seconds := ptr.Deref(f.raw().RefreshIntervalSeconds, *defaultFileConfig.RefreshIntervalSeconds)
	if seconds <= 0 {
		seconds = *defaultFileConfig.RefreshIntervalSeconds
	}

	return time.Duration(seconds) * time.Second
}

// CacheTTL is how long the daemon serves a snapshot before refetching it.
// Zero disables the cache.
func (f *File) CacheTTL() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	seconds := ptr.Deref(f.raw().CacheTTLSeconds, *defaultFileConfig.CacheTTLSeconds)
	if seconds < 0 {
		seconds = 0
	}

	return time.Duration(seconds) * time.Second
}

func parseClockOr(s *string, def string) notify.Clock {
	c, err := notify.ParseClock(ptr.Deref(s, def))
	if err != nil {
		logrus.WithError(err).Warnf("invalid quiet hours boundary, using %s", def)
		c, _ = notify.ParseClock(def)
	}
	return c
}

func (f *File) QuietHours() notify.QuietHours {
	f.mu.RLock()
	defer f.mu.RUnlock()

	def := defaultFileConfig.QuietHours
	q := f.raw().QuietHours
	if q == nil {
		q = &RawQuietHours{}
	}

	return notify.QuietHours{
		Enabled: ptr.Deref(q.Enabled, *def.Enabled),
		Start:   parseClockOr(q.Start, *def.Start),
		End:     parseClockOr(q.End, *def.End),
	}
}

func (f *File) Policy() notify.Policy {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return notify.Policy{
		LowMax:  ptr.Deref(f.raw().LowBatteryMax, *defaultFileConfig.LowBatteryMax),
		HighMin: ptr.Deref(f.raw().HighBatteryMin, *defaultFileConfig.HighBatteryMin),
	}
}

func (f *File) RestartCron() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().RestartCron, *defaultFileConfig.RestartCron)
}

func (f *File) StateBackend() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().StateBackend, *defaultFileConfig.StateBackend)
}

func (f *File) StatePath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().StatePath, *defaultFileConfig.StatePath)
}

func (f *File) Redis() RedisConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.raw().Redis == nil {
		return RedisConfig{}
	}
	return *f.raw().Redis
}

func (f *File) Email() EmailConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.raw().Email == nil {
		return EmailConfig{}
	}
	e := *f.raw().Email
	e.To = append([]string(nil), e.To...)
	return e
}

func (f *File) NATS() NATSConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := NATSConfig{}
	if f.raw().NATS != nil {
		n = *f.raw().NATS
	}
	if n.Subject == "" {
		n.Subject = defaultFileConfig.NATS.Subject
	}
	return n
}

func (f *File) AllowNonRootAccess() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

func (f *File) SetHost(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.raw().Host = &s
}

func (f *File) SetRefreshInterval(d time.Duration) {
	if d < time.Second {
		panic("refresh interval must be at least one second")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	seconds := int(d / time.Second)
	f.raw().RefreshIntervalSeconds = &seconds
}

func (f *File) SetQuietHours(q notify.QuietHours) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.raw().QuietHours = &RawQuietHours{
		Enabled: ptr.To(q.Enabled),
		Start:   ptr.To(q.Start.String()),
		End:     ptr.To(q.End.String()),
	}
}

func (f *File) SetPolicy(p notify.Policy) {
	if err := p.Validate(); err != nil {
		panic(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.raw().LowBatteryMax = ptr.To(p.LowMax)
	f.raw().HighBatteryMin = ptr.To(p.HighMin)
}

func (f *File) SetRestartCron(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.raw().RestartCron = &s
}

func (f *File) SetAllowNonRootAccess(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.raw().AllowNonRootAccess = &b
}

// Validate checks the values that would otherwise fail later at runtime.
func (f *File) Validate() error {
	if err := f.Policy().Validate(); err != nil {
		return err
	}

	switch b := f.StateBackend(); b {
	case StateBackendFile, StateBackendMemory:
	case StateBackendRedis:
		if !f.Redis().Enabled() {
			return pkgerrors.New("state backend is redis but redis.addr is empty")
		}
	default:
		return pkgerrors.Errorf("unknown state backend %q", b)
	}

	f.mu.RLock()
	q := f.raw().QuietHours
	f.mu.RUnlock()
	if q != nil {
		for _, s := range []*string{q.Start, q.End} {
			if s == nil {
				continue
			}
			if _, err := notify.ParseClock(*s); err != nil {
				return pkgerrors.Wrap(err, "invalid quiet hours")
			}
		}
	}

	return nil
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using a decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	if isYAML(f.filepath) {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	// The file may hold the router and SMTP passwords.
	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	if isYAML(f.filepath) {
		enc := yaml.NewEncoder(fp)
		enc.SetIndent(2)
		err = enc.Encode(f.c)
		if err == nil {
			err = enc.Close()
		}
	} else {
		enc := json.NewEncoder(fp)
		enc.SetIndent("", "  ")
		err = enc.Encode(f.c)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"host":            f.Host(),
		"username":        f.Username(),
		"refreshInterval": f.RefreshInterval().String(),
		"cacheTTL":        f.CacheTTL().String(),
		"quietHours":      f.QuietHours().String(),
		"lowBatteryMax":   f.Policy().LowMax,
		"highBatteryMin":  f.Policy().HighMin,
		"restartCron":     f.RestartCron(),
		"stateBackend":    f.StateBackend(),
		"statePath":       f.StatePath(),
		"redis":           f.Redis().Enabled(),
		"email":           f.Email().Enabled(),
		"nats":            f.NATS().Enabled(),
		"allowNonRoot":    f.AllowNonRootAccess(),
	}
}
