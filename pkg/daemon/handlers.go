package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
	"github.com/jiofi-tools/jiobatt/pkg/notify"
	"github.com/jiofi-tools/jiobatt/pkg/types"
	"github.com/jiofi-tools/jiobatt/pkg/version"
)

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (d *Daemon) getConfig(c *gin.Context) {
	q := d.conf.QuietHours()
	p := d.conf.Policy()
	c.IndentedJSON(http.StatusOK, types.ConfigView{
		Host:               d.conf.Host(),
		Username:           d.conf.Username(),
		RefreshInterval:    d.conf.RefreshInterval().String(),
		CacheTTL:           d.conf.CacheTTL().String(),
		QuietHours:         q.String(),
		LowBatteryMax:      p.LowMax,
		HighBatteryMin:     p.HighMin,
		RestartCron:        d.conf.RestartCron(),
		StateBackend:       d.conf.StateBackend(),
		EmailAlerts:        d.conf.Email().Enabled(),
		NATSAlerts:         d.conf.NATS().Enabled(),
		AllowNonRootAccess: d.conf.AllowNonRootAccess(),
	})
}

func (d *Daemon) getStatus(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("refresh"))
	c.IndentedJSON(http.StatusOK, d.cachedStatus(c.Request.Context(), force))
}

func (d *Daemon) postRefresh(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.refresh(c.Request.Context(), TriggerAPI))
}

func (d *Daemon) getHistory(c *gin.Context) {
	since := c.Query("since")
	if since == "" {
		c.IndentedJSON(http.StatusOK, d.history.Records())
		return
	}

	dur, err := time.ParseDuration(since)
	if err != nil || dur <= 0 {
		err = fmt.Errorf("invalid duration %q", since)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	records := d.history.Since(dur, d.now())
	// Oldest first, like the full history.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if records == nil {
		records = []types.StatusRecord{}
	}
	c.IndentedJSON(http.StatusOK, records)
}

func (d *Daemon) postRestart(c *gin.Context) {
	res, err := d.restart(c.Request.Context(), triggerUser)
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, jiofi.ErrRestartInProgress) {
			code = http.StatusConflict
		}
		c.IndentedJSON(code, err.Error())
		_ = c.AbortWithError(code, err)
		return
	}

	c.IndentedJSON(http.StatusOK, res)
}

func (d *Daemon) getNotification(c *gin.Context) {
	s, err := d.store.Load(c.Request.Context())
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	q := d.conf.QuietHours()
	p := d.conf.Policy()
	c.IndentedJSON(http.StatusOK, types.NotificationStatus{
		LastFired:  s.LastFired.String(),
		Quiet:      q.Contains(d.now()),
		QuietHours: q.String(),
		LowMax:     p.LowMax,
		HighMin:    p.HighMin,
		Backend:    d.conf.StateBackend(),
		Notifiers:  d.notifier.Len(),
	})
}

func (d *Daemon) deleteNotification(c *gin.Context) {
	if err := d.store.Save(c.Request.Context(), notify.State{}); err != nil {
		logrus.Errorf("failed to reset notification state: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Info("notification state reset")
	c.IndentedJSON(http.StatusOK, "ok")
}

func (d *Daemon) scheduleStatus() types.ScheduleStatus {
	next, expr, running := d.scheduler.Status()
	st := types.ScheduleStatus{
		Cron:    expr,
		Enabled: expr != "" && running,
	}
	if expr == "" || next.IsZero() {
		return st
	}

	st.NextRuns = []time.Time{next}
	if more, err := NextRuns(expr, next, 2); err == nil {
		st.NextRuns = append(st.NextRuns, more...)
	}
	return st
}

func (d *Daemon) getSchedule(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.scheduleStatus())
}

func (d *Daemon) putSchedule(c *gin.Context) {
	var req types.ScheduleRequest
	if err := c.BindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if req.Cron != "" {
		if _, err := ParseCron(req.Cron); err != nil {
			err = fmt.Errorf("invalid cron expression: %w", err)
			c.IndentedJSON(http.StatusBadRequest, err.Error())
			_ = c.AbortWithError(http.StatusBadRequest, err)
			return
		}
	}

	d.conf.SetRestartCron(req.Cron)
	if err := d.conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if req.Cron == "" {
		d.scheduler.Unschedule()
		logrus.Info("scheduled router restart disabled")
	} else {
		// Already validated above.
		_ = d.scheduler.Schedule(req.Cron)
		d.scheduler.Start()
		logrus.Infof("scheduled router restart set to %q", req.Cron)
	}

	c.IndentedJSON(http.StatusCreated, d.scheduleStatus())
}

func (d *Daemon) postPostpone(c *gin.Context) {
	var req types.PostponeRequest
	if err := c.BindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := d.scheduler.Postpone(time.Duration(req.Minutes) * time.Minute); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	logrus.Infof("next router restart postponed by %d minutes", req.Minutes)
	c.IndentedJSON(http.StatusOK, d.scheduleStatus())
}

func (d *Daemon) postSkip(c *gin.Context) {
	if err := d.scheduler.Skip(); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	logrus.Info("next router restart skipped")
	c.IndentedJSON(http.StatusOK, d.scheduleStatus())
}

func (d *Daemon) getEvents(c *gin.Context) {
	ch := d.hub.Subscribe()
	defer d.hub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// Send the headers now; the first event may be minutes away.
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
