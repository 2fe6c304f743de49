package daemon

import (
	"context"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jiofi-tools/jiobatt/pkg/events"
	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
	"github.com/jiofi-tools/jiobatt/pkg/notify"
	"github.com/jiofi-tools/jiobatt/pkg/types"
)

const (
	cacheKeyStatus = "status"

	TriggerLoop     = "loop"
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"

	// missedRefreshSlack is how late a refresh may be before it counts as missed.
	missedRefreshSlack = 30 * time.Second
)

// refreshLoop refreshes once immediately, then every configured interval.
// A changed interval takes effect after the current tick.
func (d *Daemon) refreshLoop(ctx context.Context) {
	interval := d.conf.RefreshInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.refresh(ctx, TriggerLoop)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkMissedRefreshes(interval)
			d.refresh(ctx, TriggerLoop)

			if i := d.conf.RefreshInterval(); i != interval {
				logrus.WithFields(logrus.Fields{
					"from": interval.String(),
					"to":   i.String(),
				}).Info("refresh interval changed")
				interval = i
				ticker.Reset(interval)
			}
		}
	}
}

// checkMissedRefreshes logs when the host slept through refreshes, which
// also means alerts may have been missed.
func (d *Daemon) checkMissedRefreshes(interval time.Duration) bool {
	last, ok := d.history.Last()
	if !ok {
		return false
	}
	late := d.now().Sub(last.UpdatedAt)
	if late <= interval+missedRefreshSlack {
		return false
	}
	logrus.WithFields(logrus.Fields{
		"lastRefresh": last.UpdatedAt.Format(time.RFC3339),
		"interval":    interval.String(),
		"late":        late.Round(time.Second).String(),
		"gaps":        d.history.Gaps(interval, missedRefreshSlack),
	}).Info("possibly missed refresh")
	return true
}

// refresh fetches the router status, evaluates the alert policy and
// publishes the result. Refreshes never overlap.
func (d *Daemon) refresh(ctx context.Context, trigger string) types.StatusRecord {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	snapshot, err := d.dev().FetchStatus(ctx)
	rec := types.StatusRecord{
		Snapshot:  snapshot,
		Level:     jiofi.LevelOf(snapshot),
		UpdatedAt: d.now(),
		Trigger:   trigger,
	}

	if err != nil {
		// The status wrapper contract: failures become N/A, never a stale value.
		rec.Snapshot = jiofi.NotAvailableSnapshot()
		rec.Level = jiofi.LevelUnknown
		rec.Error = err.Error()
		logrus.WithError(err).WithField("trigger", trigger).Warn("failed to fetch router status")
	} else {
		action, err := d.evaluate(ctx, snapshot, rec.UpdatedAt)
		if err != nil {
			logrus.WithError(err).Error("failed to evaluate battery alerts")
		}
		rec.Action = action.String()
	}

	d.printStatus(rec)

	d.history.Add(rec)
	if d.conf.CacheTTL() > 0 {
		d.cache.Set(cacheKeyStatus, rec, d.conf.CacheTTL())
	}

	d.hub.Publish(events.StatusUpdated, events.StatusUpdatedEvent{
		Snapshot: rec.Snapshot,
		Error:    rec.Error,
		Ts:       rec.UpdatedAt.Unix(),
	})

	return rec
}

// cachedStatus returns the last record while it is fresh, or refreshes.
func (d *Daemon) cachedStatus(ctx context.Context, force bool) types.StatusRecord {
	if !force && d.conf.CacheTTL() > 0 {
		if v, ok := d.cache.Get(cacheKeyStatus); ok {
			return v.(types.StatusRecord)
		}
	}
	return d.refresh(ctx, TriggerAPI)
}

// evaluate runs the alert policy against the persisted notification state.
// Alerts are delivered before the new state is saved, so a failed save at
// worst repeats an alert.
func (d *Daemon) evaluate(ctx context.Context, s jiofi.StatusSnapshot, now time.Time) (notify.Action, error) {
	prior, err := d.store.Load(ctx)
	if err != nil {
		return notify.ActionNone, err
	}

	quiet := d.conf.QuietHours().Contains(now)
	action, next := d.conf.Policy().Evaluate(s, prior, quiet)

	logrus.WithFields(logrus.Fields{
		"percentage": s.PercentageRaw,
		"state":      s.ChargeState.String(),
		"prior":      prior.LastFired.String(),
		"quiet":      quiet,
		"action":     action.String(),
	}).Trace("evaluated battery alert policy")

	if action.Fires() {
		if err := d.notifier.Notify(ctx, notify.NewAlert(action, s, now)); err != nil {
			logrus.WithError(err).Error("failed to deliver some battery alerts")
		}
	}

	if next != prior {
		if err := d.store.Save(ctx, next); err != nil {
			return action, err
		}
		logrus.WithFields(logrus.Fields{
			"from": prior.LastFired.String(),
			"to":   next.LastFired.String(),
		}).Debug("notification state changed")
	}

	return action, nil
}

type loopStatus struct {
	percentage int
	state      jiofi.ChargeState
	err        string
}

var lastStatus loopStatus

func (d *Daemon) printStatus(rec types.StatusRecord) {
	currentStatus := loopStatus{
		percentage: rec.Snapshot.PercentageRaw,
		state:      rec.Snapshot.ChargeState,
		err:        rec.Error,
	}

	fields := logrus.Fields{
		"percentage": rec.Snapshot.PercentageText,
		"state":      rec.Snapshot.ChargeState.String(),
		"level":      rec.Level.String(),
		"trigger":    rec.Trigger,
	}

	// Only log at debug level when something changed.
	if reflect.DeepEqual(lastStatus, currentStatus) {
		logrus.WithFields(fields).Trace("router status")
		return
	}

	logrus.WithFields(fields).Debug("router status")

	lastStatus = currentStatus
}
