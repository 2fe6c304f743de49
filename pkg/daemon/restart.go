package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jiofi-tools/jiobatt/pkg/events"
	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
)

const (
	triggerUser = "user"

	// restartTimeout bounds a whole restart flow: six requests of at most
	// connect+read each.
	restartTimeout = 6 * 2 * jiofi.SessionTimeout
)

// restart runs the router restart flow. A restart already in flight makes it
// fail with jiofi.ErrRestartInProgress.
func (d *Daemon) restart(ctx context.Context, trigger string) (jiofi.RestartResult, error) {
	if !d.restartMu.TryLock() {
		return jiofi.RestartResult{}, jiofi.ErrRestartInProgress
	}
	defer d.restartMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, restartTimeout)
	defer cancel()

	d.hub.Publish(events.RestartStarted, events.RestartEvent{
		Trigger: trigger,
		Ts:      d.now().Unix(),
	})

	// Every started event gets a finished one, even when the client itself
	// reports a restart in flight.
	res, err := d.dev().TryRestart(ctx)

	ev := events.RestartEvent{
		Trigger: trigger,
		Success: res.Success,
		Message: res.Message,
		Ts:      d.now().Unix(),
	}
	if err != nil {
		ev.Message = err.Error()
	}
	d.hub.Publish(events.RestartFinished, ev)

	// The router is going away; do not serve the old reading.
	if err == nil && res.Success {
		d.cache.Delete(cacheKeyStatus)
	}

	logrus.WithFields(logrus.Fields{
		"trigger": trigger,
		"success": res.Success,
		"message": ev.Message,
	}).Info("router restart finished")

	return res, err
}

func (d *Daemon) scheduledRestart(ctx context.Context) error {
	res, err := d.restart(ctx, TriggerSchedule)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}

// restartPreCheck only lets a scheduled restart through when the router answers.
func (d *Daemon) restartPreCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*jiofi.StatusTimeout)
	defer cancel()

	_, err := d.dev().FetchStatus(ctx)
	return err
}

func (d *Daemon) onRestartUpcoming(runAt time.Time) {
	logrus.WithField("at", runAt.Format(time.DateTime)).Info("scheduled router restart is upcoming")
	d.hub.Publish(events.RestartUpcoming, events.RestartEvent{
		Trigger: TriggerSchedule,
		At:      runAt.Unix(),
		Message: "Router restart scheduled at " + runAt.Format("Jan _2 15:04"),
		Ts:      d.now().Unix(),
	})
}

func (d *Daemon) onScheduleError(err error) {
	logrus.WithError(err).Error("scheduled router restart failed")
}
