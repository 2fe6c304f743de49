package gui

import (
	"context"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiofi-tools/jiobatt/pkg/client"
	"github.com/jiofi-tools/jiobatt/pkg/events"
	"github.com/jiofi-tools/jiobatt/pkg/version"
)

// NewGUICommand returns the "gui" command. unixSocketPath is read when the
// command runs, after flags are parsed.
func NewGUICommand(unixSocketPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gui",
		Short: "Start the jiobatt tray icon",
		Long: `Start the jiobatt tray icon.

The icon shows the router battery and its colour band, and offers refresh and
restart actions. It needs a running daemon.`,
		Run: func(_ *cobra.Command, _ []string) {
			Run(*unixSocketPath)
		},
	}

	return cmd
}

// Run shows the tray icon until Quit is clicked.
func Run(unixSocketPath string) {
	logrus.WithField("version", version.Version).WithField("gitCommit", version.GitCommit).Info("jiobatt gui")

	t := newTray(client.NewClient(unixSocketPath))
	systray.Run(t.onReady, t.onExit)
}

// startEventBridge applies daemon events to the tray until ctx is done.
func startEventBridge(ctx context.Context, t *tray) {
	for ev := range t.api.SubscribeEvents(ctx) {
		logrus.WithFields(logrus.Fields{
			"event": ev.Name,
			"data":  string(ev.Data),
		}).Debug("new event")

		switch ev.Name {
		case events.StatusUpdated:
			payload, err := events.DecodeAs[events.StatusUpdatedEvent](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode status.updated event")
				continue
			}
			t.showSnapshot(payload.Snapshot, payload.Error)
		case events.AlertFired:
			payload, err := events.DecodeAs[events.AlertFiredEvent](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode alert.fired event")
				continue
			}
			t.showNotice(payload.Title + " - " + payload.Body)
		case events.RestartUpcoming, events.RestartFinished:
			payload, err := events.DecodeAs[events.RestartEvent](ev)
			if err != nil {
				logrus.WithError(err).Errorf("failed to decode %s event", ev.Name)
				continue
			}
			t.showNotice(restartNotice(ev.Name, payload))
		}
	}
}
