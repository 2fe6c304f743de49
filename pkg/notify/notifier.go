package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a fired alert somewhere a person will see it.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, a Alert) error

func (f NotifierFunc) Notify(ctx context.Context, a Alert) error {
	return f(ctx, a)
}

// LogNotifier writes alerts to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, a Alert) error {
	logrus.WithFields(logrus.Fields{
		"kind":        a.Kind,
		"percentage":  a.Snapshot.PercentageRaw,
		"chargeState": a.Snapshot.ChargeState.String(),
		"body":        a.Body,
	}).Warn(a.Title)
	return nil
}

// Multi delivers to every notifier. A failing notifier does not stop the
// others; all errors are joined.
type Multi struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Add(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

func (m *Multi) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifiers)
}

func (m *Multi) Notify(ctx context.Context, a Alert) error {
	m.mu.RLock()
	notifiers := append([]Notifier(nil), m.notifiers...)
	m.mu.RUnlock()

	var errs []error
	for _, n := range notifiers {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
