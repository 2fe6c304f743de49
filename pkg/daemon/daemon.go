package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/jiofi-tools/jiobatt/pkg/config"
	"github.com/jiofi-tools/jiobatt/pkg/events"
	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
	"github.com/jiofi-tools/jiobatt/pkg/notify"
)

const historySize = 144 // one day at the default interval

// Device is the part of the router client the daemon uses.
type Device interface {
	FetchStatus(ctx context.Context) (jiofi.StatusSnapshot, error)
	TryRestart(ctx context.Context) (jiofi.RestartResult, error)
}

// Daemon polls the router, raises battery alerts and serves the local API.
type Daemon struct {
	conf config.Config

	deviceMu sync.RWMutex
	device   Device
	// deviceFixed is set when the device was injected and must survive reloads.
	deviceFixed bool

	store    notify.Store
	notifier *notify.Multi
	hub      *events.EventHub
	cache    *cache.Cache
	history  *History

	scheduler *Scheduler

	refreshMu sync.Mutex
	// restartMu is held for a whole restart flow, events included.
	restartMu sync.Mutex
	now       func() time.Time

	closers []io.Closer
}

type Option func(*Daemon)

// WithDevice replaces the router client built from the configuration.
func WithDevice(dev Device) Option {
	return func(d *Daemon) {
		d.device = dev
		d.deviceFixed = true
	}
}

// WithStore replaces the notification state store built from the configuration.
func WithStore(s notify.Store) Option {
	return func(d *Daemon) {
		d.store = s
	}
}

// WithNotifiers replaces the alert sinks built from the configuration. The
// event hub sink is always added.
func WithNotifiers(n ...notify.Notifier) Option {
	return func(d *Daemon) {
		d.notifier = notify.NewMulti(n...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Daemon) {
		d.now = now
	}
}

// New wires a daemon from its configuration. Nothing runs until Run or Serve.
func New(conf config.Config, opts ...Option) (*Daemon, error) {
	d := &Daemon{
		conf:    conf,
		hub:     events.NewEventHub(),
		history: NewHistory(historySize),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.device == nil {
		d.device = newDevice(conf)
	}

	if d.store == nil {
		store, closer, err := newStore(conf)
		if err != nil {
			return nil, err
		}
		d.store = store
		if closer != nil {
			d.closers = append(d.closers, closer)
		}
	}

	if d.notifier == nil {
		n, closers, err := newNotifiers(conf)
		if err != nil {
			return nil, err
		}
		d.notifier = n
		d.closers = append(d.closers, closers...)
	}
	d.notifier.Add(hubNotifier{hub: d.hub})

	ttl := conf.CacheTTL()
	d.cache = cache.New(ttl, 2*ttl+time.Minute)

	d.scheduler = NewScheduler(d.scheduledRestart, d.restartPreCheck, d.onRestartUpcoming, d.onScheduleError)
	if expr := conf.RestartCron(); expr != "" {
		if err := d.scheduler.Schedule(expr); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func newDevice(conf config.Config) Device {
	return jiofi.NewClient(conf.Host(), jiofi.WithCredentials(conf.Username(), conf.Password()))
}

func (d *Daemon) dev() Device {
	d.deviceMu.RLock()
	defer d.deviceMu.RUnlock()
	return d.device
}

// Reload re-reads the configuration and applies what can change at runtime.
func (d *Daemon) Reload() error {
	if err := d.conf.Load(); err != nil {
		return err
	}

	if !d.deviceFixed {
		d.deviceMu.Lock()
		d.device = newDevice(d.conf)
		d.deviceMu.Unlock()
	}
	d.cache.Flush()

	if expr := d.conf.RestartCron(); expr != "" {
		if err := d.scheduler.Schedule(expr); err != nil {
			return err
		}
		d.scheduler.Start()
	} else {
		d.scheduler.Unschedule()
	}

	return nil
}

func (d *Daemon) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/version", getVersion)
	router.GET("/config", d.getConfig)
	router.GET("/status", d.getStatus)
	router.POST("/refresh", d.postRefresh)
	router.GET("/history", d.getHistory)
	router.POST("/restart", d.postRestart)
	router.GET("/notification", d.getNotification)
	router.DELETE("/notification", d.deleteNotification)
	router.GET("/schedule", d.getSchedule)
	router.PUT("/schedule", d.putSchedule)
	router.POST("/schedule/postpone", d.postPostpone)
	router.POST("/schedule/skip", d.postSkip)
	router.GET("/events", d.getEvents)

	return router
}

// Serve runs the refresh loop, the restart scheduler and the API on l until
// ctx is done.
func (d *Daemon) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler: d.setupRoutes(),
	}

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()

	go func() {
		logrus.Debugln("refresh loop starts")
		d.refreshLoop(loopCtx)
		logrus.Debugln("refresh loop exited")
	}()

	if _, expr, _ := d.scheduler.Status(); expr != "" {
		d.scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	logrus.Info("shutting down http server")
	// SSE subscribers hold their requests open until the hub closes.
	d.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	d.scheduler.Stop()
	d.close()

	return serveErr
}

func (d *Daemon) close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			logrus.Errorf("failed to close: %v", err)
		}
	}
	d.closers = nil
}

// Run loads the config, listens on the unix socket and serves until SIGINT or
// SIGTERM. With noPersist the notification state lives in memory only.
func Run(configPath string, unixSocketPath string, allowNonRoot, noPersist bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	if err := conf.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	var opts []Option
	if noPersist {
		logrus.Warn("notification state will not survive a daemon restart")
		opts = append(opts, WithStore(notify.NewMemoryStore()))
	}

	d, err := New(conf, opts...)
	if err != nil {
		return err
	}

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := d.Reload()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	// A stale socket from a crashed daemon blocks Listen.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to remove stale socket %s: %v", unixSocketPath, err)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Handle common process-killing signals, so we can gracefully shut down:
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = d.Serve(ctx, l)

	logrus.Info("exiting")
	return err
}
