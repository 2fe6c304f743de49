package notify

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// EmailConfig is the SMTP setup of EmailNotifier.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends alerts by mail.
type EmailNotifier struct {
	sender mailSender
	from   string
	to     []string
}

func NewEmailNotifier(c EmailConfig) (*EmailNotifier, error) {
	if c.Host == "" {
		return nil, pkgerrors.New("smtp host is empty")
	}
	if len(c.To) == 0 {
		return nil, pkgerrors.New("no alert recipients")
	}
	from := c.From
	if from == "" {
		from = c.Username
	}
	return &EmailNotifier{
		sender: gomail.NewDialer(c.Host, c.Port, c.Username, c.Password),
		from:   from,
		to:     c.To,
	}, nil
}

func (e *EmailNotifier) message(a Alert) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to...)
	m.SetHeader("Subject", a.Title)
	m.SetBody("text/plain", fmt.Sprintf("%s\n\nBattery: %s (%s)\nTime: %s\n",
		a.Body,
		a.Snapshot.PercentageText,
		a.Snapshot.ChargeState,
		a.Time.Format("2006-01-02 15:04:05"),
	))
	return m
}

func (e *EmailNotifier) Notify(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.sender.DialAndSend(e.message(a)); err != nil {
		return pkgerrors.Wrapf(err, "failed to mail alert to %s", strings.Join(e.to, ", "))
	}
	return nil
}
