package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewNotificationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notification",
		Aliases: []string{"notif"},
		GroupID: gAdvanced,
		Short:   "Show or reset the low/full battery alert state",
		Long: `Show or reset the low/full battery alert state.

An alert fires once when the battery enters the low or the full band and
re-arms when the battery is back in between. Resetting the state makes the
next reading in a band fire again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNotificationShow(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the alert state and policy",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runNotificationShow(cmd)
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the last fired alert",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				if err := apiClient.ResetNotification(); err != nil {
					return err
				}
				logrus.Info("notification state reset")
				return nil
			},
		},
	)

	return cmd
}

func runNotificationShow(cmd *cobra.Command) error {
	st, err := apiClient.GetNotification()
	if err != nil {
		return err
	}

	cmd.Println(bold("Notifications:"))
	cmd.Printf("  Last fired: %s\n", bold("%s", st.LastFired))
	cmd.Printf("  Low battery at or below: %s\n", bold("%d%%", st.LowMax))
	cmd.Printf("  Full battery at or above: %s\n", bold("%d%%", st.HighMin))
	cmd.Printf("  Quiet hours: %s\n", bold("%s", st.QuietHours))
	cmd.Printf("  Quiet now: %s\n", bool2Text(st.Quiet))
	cmd.Printf("  State backend: %s\n", st.Backend)
	cmd.Printf("  Alert sinks: %d\n", st.Notifiers)
	return nil
}
