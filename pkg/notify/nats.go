package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	pkgerrors "github.com/pkg/errors"
)

// DefaultNATSSubject is the subject alerts are published on.
const DefaultNATSSubject = "jiobatt.alerts"

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes alerts as JSON.
type NATSNotifier struct {
	nc      *nats.Conn
	pub     publisher
	subject string
}

// NewNATSNotifier connects to url.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("jiobatt"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to connect to NATS at %s", url)
	}
	n := newNATSNotifier(nc, subject)
	n.nc = nc
	return n, nil
}

func newNATSNotifier(pub publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSNotifier{pub: pub, subject: subject}
}

func (n *NATSNotifier) Notify(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(a)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal alert")
	}
	if err := n.pub.Publish(n.subject, b); err != nil {
		return pkgerrors.Wrapf(err, "failed to publish alert on %s", n.subject)
	}
	return nil
}

// Close drains the connection if the notifier owns one.
func (n *NATSNotifier) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}
