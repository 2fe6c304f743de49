package daemon

import (
	"context"
	"io"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jiofi-tools/jiobatt/pkg/config"
	"github.com/jiofi-tools/jiobatt/pkg/events"
	"github.com/jiofi-tools/jiobatt/pkg/notify"
)

func newStore(conf config.Config) (notify.Store, io.Closer, error) {
	switch b := conf.StateBackend(); b {
	case config.StateBackendFile, "":
		return notify.NewFileStore(conf.StatePath()), nil, nil
	case config.StateBackendMemory:
		logrus.Warn("notification state is kept in memory, alerts may repeat after a restart")
		return notify.NewMemoryStore(), nil, nil
	case config.StateBackendRedis:
		rc := conf.Redis()
		if !rc.Enabled() {
			return nil, nil, pkgerrors.New("state backend is redis but redis.addr is empty")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		return notify.NewRedisStore(rdb, ""), rdb, nil
	default:
		return nil, nil, pkgerrors.Errorf("unknown state backend %q", b)
	}
}

func newNotifiers(conf config.Config) (*notify.Multi, []io.Closer, error) {
	m := notify.NewMulti(notify.LogNotifier{})
	var closers []io.Closer

	if e := conf.Email(); e.Enabled() {
		n, err := notify.NewEmailNotifier(e.Notifier())
		if err != nil {
			return nil, nil, pkgerrors.Wrap(err, "failed to set up mail alerts")
		}
		m.Add(n)
		logrus.WithField("to", e.To).Info("mail alerts enabled")
	}

	if nc := conf.NATS(); nc.Enabled() {
		n, err := notify.NewNATSNotifier(nc.URL, nc.Subject)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(err, "failed to set up NATS alerts")
		}
		m.Add(n)
		closers = append(closers, n)
		logrus.WithField("subject", nc.Subject).Info("NATS alerts enabled")
	}

	return m, closers, nil
}

// hubNotifier forwards alerts to SSE subscribers.
type hubNotifier struct {
	hub *events.EventHub
}

func (h hubNotifier) Notify(_ context.Context, a notify.Alert) error {
	h.hub.Publish(events.AlertFired, events.AlertFiredEvent{
		Kind:  string(a.Kind),
		Title: a.Title,
		Body:  a.Body,
		Ts:    a.Time.Unix(),
	})
	return nil
}
