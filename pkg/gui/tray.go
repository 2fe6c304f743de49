package gui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"github.com/jiofi-tools/jiobatt/pkg/client"
	"github.com/jiofi-tools/jiobatt/pkg/events"
	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
	"github.com/jiofi-tools/jiobatt/pkg/types"
)

// pollInterval backs up the event stream, which is lost while the daemon restarts.
const pollInterval = time.Minute

type tray struct {
	api *client.Client

	mu       sync.Mutex
	mStatus  *systray.MenuItem
	mUpdated *systray.MenuItem
	mNotice  *systray.MenuItem
	mRefresh *systray.MenuItem
	mRestart *systray.MenuItem
	mQuit    *systray.MenuItem

	cancel context.CancelFunc
}

func newTray(api *client.Client) *tray {
	return &tray{api: api}
}

func (t *tray) onReady() {
	systray.SetTitle("Loading...")
	systray.SetTooltip(tooltipDefault)
	systray.SetIcon(levelIcon(jiofi.LevelUnknown))

	t.mStatus = systray.AddMenuItem("Battery: -", "Router battery")
	t.mStatus.Disable()
	t.mUpdated = systray.AddMenuItem("Last updated: never", "Time of the last reading")
	t.mUpdated.Disable()
	t.mNotice = systray.AddMenuItem("", "Last alert or restart")
	t.mNotice.Disable()
	t.mNotice.Hide()

	systray.AddSeparator()

	t.mRefresh = systray.AddMenuItem("Refresh", tooltipRefresh)
	t.mRestart = systray.AddMenuItem("Restart Router", tooltipRestart)

	systray.AddSeparator()
	t.mQuit = systray.AddMenuItem("Quit", tooltipQuit)

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	go startEventBridge(ctx, t)
	go t.loop(ctx)

	t.update(false)
}

func (t *tray) onExit() {
	if t.cancel != nil {
		t.cancel()
	}
	logrus.Info("jiobatt gui exiting")
}

func (t *tray) loop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.update(false)
		case <-t.mRefresh.ClickedCh:
			systray.SetTitle("Refreshing...")
			t.update(true)
		case <-t.mRestart.ClickedCh:
			go t.restart()
		case <-t.mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (t *tray) update(refresh bool) {
	var (
		rec *types.StatusRecord
		err error
	)
	if refresh {
		rec, err = t.api.Refresh()
	} else {
		rec, err = t.api.GetStatus(false)
	}
	if err != nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		systray.SetTitle("Offline")
		systray.SetIcon(levelIcon(jiofi.LevelUnknown))
		t.mStatus.SetTitle("Battery: daemon not reachable")
		logrus.Warnf("cannot connect to daemon: %v", err)
		return
	}

	t.showSnapshot(rec.Snapshot, rec.Error)
	t.mu.Lock()
	t.mUpdated.SetTitle("Last updated: " + updatedText(rec.UpdatedAt))
	t.mu.Unlock()
}

// restart mirrors the restart button: disabled until the attempt finishes.
func (t *tray) restart() {
	t.mRestart.Disable()
	t.mRestart.SetTitle("Restarting Router...")
	defer func() {
		t.mRestart.SetTitle("Restart Router")
		t.mRestart.Enable()
	}()

	res, err := t.api.Restart(context.Background())
	switch {
	case errors.Is(err, client.ErrConflict):
		t.showNotice("A restart is already in progress")
	case err != nil:
		var apiErr *client.APIError
		msg := err.Error()
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		t.showNotice("Restart failed: " + strings.TrimPrefix(msg, "Failed: "))
	case !res.Success:
		t.showNotice("Restart failed: " + res.Message)
	default:
		t.showNotice(res.Message)
	}
}

func (t *tray) showSnapshot(s jiofi.StatusSnapshot, fetchErr string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	level := jiofi.LevelOf(s)
	systray.SetIcon(levelIcon(level))
	systray.SetTitle(trayTitle(s, fetchErr))
	systray.SetTooltip(fmt.Sprintf("%s - %s", tooltipDefault, statusLine(s, fetchErr)))
	t.mStatus.SetTitle("Battery: " + statusLine(s, fetchErr))
	t.mUpdated.SetTitle("Last updated: " + updatedText(time.Now()))
}

func (t *tray) showNotice(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	logrus.Info(msg)
	t.mNotice.SetTitle(msg)
	t.mNotice.Show()
}

func trayTitle(s jiofi.StatusSnapshot, fetchErr string) string {
	if fetchErr != "" || !s.Available() {
		return "N/A"
	}
	if s.ChargeState == jiofi.Charging {
		return "⚡ " + s.PercentageText
	}
	return s.PercentageText
}

func statusLine(s jiofi.StatusSnapshot, fetchErr string) string {
	if fetchErr != "" {
		return "N/A (Error)"
	}
	return fmt.Sprintf("%s (%s)", s.PercentageText, s.ChargeState)
}

func updatedText(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("Jan _2 15:04")
}

func restartNotice(name string, ev events.RestartEvent) string {
	switch {
	case name == events.RestartUpcoming:
		return "Router restart at " + time.Unix(ev.At, 0).Local().Format("15:04")
	case ev.Success:
		return ev.Message
	default:
		return "Restart failed: " + strings.TrimPrefix(ev.Message, "Failed: ")
	}
}
