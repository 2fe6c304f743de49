package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jiofi-tools/jiobatt/pkg/events"
	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
	"github.com/jiofi-tools/jiobatt/pkg/types"
)

// GetStatus returns the daemon's latest router status. With refresh the
// daemon fetches a new reading instead of serving its cache.
func (c *Client) GetStatus(refresh bool) (*types.StatusRecord, error) {
	path := "/status"
	if refresh {
		path += "?refresh=1"
	}
	rec, err := getJSON[types.StatusRecord](c, path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get status")
	}
	return &rec, nil
}

// Refresh makes the daemon fetch, evaluate and publish a new reading.
func (c *Client) Refresh() (*types.StatusRecord, error) {
	ret, err := c.Post("/refresh", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to refresh")
	}
	var rec types.StatusRecord
	if err := json.Unmarshal([]byte(ret), &rec); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal status")
	}
	return &rec, nil
}

func (c *Client) GetHistory(since time.Duration) ([]types.StatusRecord, error) {
	path := "/history"
	if since > 0 {
		path += "?since=" + since.String()
	}
	records, err := getJSON[[]types.StatusRecord](c, path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get history")
	}
	return records, nil
}

// Restart asks the daemon to restart the router. Failures of the restart
// flow come back as *APIError carrying the cause; ErrConflict means another
// restart is running.
func (c *Client) Restart(ctx context.Context) (*jiofi.RestartResult, error) {
	ret, err := c.SendContext(ctx, http.MethodPost, "/restart", "")
	if err != nil {
		return nil, err
	}
	var res jiofi.RestartResult
	if err := json.Unmarshal([]byte(ret), &res); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal restart result")
	}
	return &res, nil
}

func (c *Client) GetNotification() (*types.NotificationStatus, error) {
	st, err := getJSON[types.NotificationStatus](c, "/notification")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get notification state")
	}
	return &st, nil
}

func (c *Client) ResetNotification() error {
	_, err := c.Delete("/notification")
	return pkgerrors.Wrapf(err, "failed to reset notification state")
}

func (c *Client) GetSchedule() (*types.ScheduleStatus, error) {
	st, err := getJSON[types.ScheduleStatus](c, "/schedule")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get schedule")
	}
	return &st, nil
}

func (c *Client) sendSchedule(method, path string, payload any) (*types.ScheduleStatus, error) {
	data := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = string(b)
	}
	ret, err := c.Send(method, path, data)
	if err != nil {
		return nil, err
	}
	var st types.ScheduleStatus
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal schedule")
	}
	return &st, nil
}

// SetSchedule sets the restart cron expression; an empty one disables it.
func (c *Client) SetSchedule(cronExpr string) (*types.ScheduleStatus, error) {
	return c.sendSchedule(http.MethodPut, "/schedule", types.ScheduleRequest{Cron: cronExpr})
}

func (c *Client) PostponeSchedule(d time.Duration) (*types.ScheduleStatus, error) {
	return c.sendSchedule(http.MethodPost, "/schedule/postpone", types.PostponeRequest{Minutes: int(d / time.Minute)})
}

func (c *Client) SkipSchedule() (*types.ScheduleStatus, error) {
	return c.sendSchedule(http.MethodPost, "/schedule/skip", nil)
}

func (c *Client) GetConfig() (*types.ConfigView, error) {
	conf, err := getJSON[types.ConfigView](c, "/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}
	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	v, err := getJSON[string](c, "/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return v, nil
}

// SubscribeEvents streams daemon events until ctx is done or the daemon goes
// away; the channel is closed then.
func (c *Client) SubscribeEvents(ctx context.Context) <-chan events.Event {
	ch := make(chan events.Event, 16)

	go func() {
		defer close(ch)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/events", nil)
		if err != nil {
			logrus.WithError(err).Error("failed to create events request")
			return
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				logrus.WithError(err).Warn("failed to subscribe to daemon events")
			}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			logrus.Warnf("failed to subscribe to daemon events: got %d", resp.StatusCode)
			return
		}

		readEvents(ctx, bufio.NewScanner(resp.Body), ch)
	}()

	return ch
}

// readEvents parses an SSE stream. Only event and data fields are used.
func readEvents(ctx context.Context, sc *bufio.Scanner, ch chan<- events.Event) {
	var ev events.Event
	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if ev.Name != "" || len(data) > 0 {
				ev.Data = json.RawMessage(strings.Join(data, "\n"))
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
			ev = events.Event{}
			data = nil
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}
