package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiofi-tools/jiobatt/pkg/events"
	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
)

func NewWatchCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: gBasic,
		Short:   "Follow battery readings, alerts and restarts",
		Long:    `Print daemon events as they happen until interrupted.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Fail early with a proper error if the daemon is not there.
			if _, err := apiClient.GetVersion(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for ev := range apiClient.SubscribeEvents(ctx) {
				if asJSON {
					if err := printJSON(cmd.OutOrStdout(), map[string]any{"event": ev.Name, "data": ev.Data}); err != nil {
						return err
					}
					continue
				}
				cmd.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), formatEvent(ev))
			}

			if ctx.Err() == nil {
				return fmt.Errorf("event stream closed by the daemon")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per event")

	return cmd
}

func formatEvent(ev events.Event) string {
	switch ev.Name {
	case events.StatusUpdated:
		p, err := events.DecodeAs[events.StatusUpdatedEvent](ev)
		if err != nil {
			break
		}
		if p.Error != "" {
			return "status  " + color.HiBlackString("N/A") + "  " + p.Error
		}
		return fmt.Sprintf("status  %s  %s",
			levelColor(jiofi.LevelOf(p.Snapshot)).Sprint(p.Snapshot.PercentageText),
			chargeStateText(p.Snapshot.ChargeState))
	case events.AlertFired:
		p, err := events.DecodeAs[events.AlertFiredEvent](ev)
		if err != nil {
			break
		}
		return fmt.Sprintf("alert   %s: %s", bold("%s", p.Title), p.Body)
	case events.RestartStarted:
		p, err := events.DecodeAs[events.RestartEvent](ev)
		if err != nil {
			break
		}
		return fmt.Sprintf("restart started (%s)", p.Trigger)
	case events.RestartFinished:
		p, err := events.DecodeAs[events.RestartEvent](ev)
		if err != nil {
			break
		}
		if !p.Success {
			return color.RedString("restart %s (%s)", restartFailure(p.Message), p.Trigger)
		}
		return fmt.Sprintf("restart %s (%s)", p.Message, p.Trigger)
	case events.RestartUpcoming:
		p, err := events.DecodeAs[events.RestartEvent](ev)
		if err != nil {
			break
		}
		return fmt.Sprintf("restart scheduled at %s", time.Unix(p.At, 0).Format(time.TimeOnly))
	}

	logrus.WithField("event", ev.Name).Debug("unrecognised event payload")
	return fmt.Sprintf("%s %s", ev.Name, string(ev.Data))
}
