package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
)

func testAlert() Alert {
	return NewAlert(ActionFireLow, snap(12, jiofi.Discharging), time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
}

func TestNewAlert(t *testing.T) {
	a := testAlert()
	assert.Equal(t, KindLow, a.Kind)
	assert.Equal(t, "Battery Low - 12%", a.Title)
	assert.Equal(t, "Time to switch on charging!", a.Body)
}

func TestMultiCollectsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	var delivered int
	m := NewMulti(
		NotifierFunc(func(context.Context, Alert) error { return errA }),
		NotifierFunc(func(context.Context, Alert) error { delivered++; return nil }),
	)
	m.Add(NotifierFunc(func(context.Context, Alert) error { return errB }))
	m.Add(LogNotifier{})

	err := m.Notify(context.Background(), testAlert())
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 4, m.Len())
}

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestEmailNotifier(t *testing.T) {
	n, err := NewEmailNotifier(EmailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "alerts@example.com",
		To:       []string{"me@example.com"},
	})
	require.NoError(t, err)

	sender := &fakeSender{}
	n.sender = sender

	require.NoError(t, n.Notify(context.Background(), testAlert()))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"Battery Low - 12%"}, sender.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"alerts@example.com"}, sender.sent[0].GetHeader("From"))

	sender.err = errors.New("connection refused")
	assert.Error(t, n.Notify(context.Background(), testAlert()))
}

func TestNewEmailNotifierValidation(t *testing.T) {
	_, err := NewEmailNotifier(EmailConfig{To: []string{"me@example.com"}})
	assert.Error(t, err)
	_, err = NewEmailNotifier(EmailConfig{Host: "smtp.example.com"})
	assert.Error(t, err)
}

type fakePublisher struct {
	subject string
	data    []byte
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return nil
}

func TestNATSNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := newNATSNotifier(pub, "")

	require.NoError(t, n.Notify(context.Background(), testAlert()))
	assert.Equal(t, DefaultNATSSubject, pub.subject)

	var got map[string]any
	require.NoError(t, json.Unmarshal(pub.data, &got))
	assert.Equal(t, "low", got["kind"])
	assert.Equal(t, "Battery Low - 12%", got["title"])
	assert.NoError(t, n.Close())
}
