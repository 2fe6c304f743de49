package main

import (
	"github.com/spf13/cobra"
)

func NewConfigCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "config",
		GroupID: gAdvanced,
		Short:   "Show the daemon configuration",
		Long:    `Show the configuration the daemon is running with. Passwords are not shown.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := apiClient.GetConfig()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), conf)
			}

			cmd.Println(bold("Router:"))
			cmd.Printf("  Host: %s\n", conf.Host)
			cmd.Printf("  Username: %s\n", conf.Username)
			cmd.Printf("  Refresh interval: %s\n", conf.RefreshInterval)
			cmd.Printf("  Status cache: %s\n", conf.CacheTTL)
			cmd.Println()
			cmd.Println(bold("Notifications:"))
			cmd.Printf("  Low battery at or below: %d%%\n", conf.LowBatteryMax)
			cmd.Printf("  Full battery at or above: %d%%\n", conf.HighBatteryMin)
			cmd.Printf("  Quiet hours: %s\n", conf.QuietHours)
			cmd.Printf("  State backend: %s\n", conf.StateBackend)
			cmd.Printf("  Email alerts: %s\n", bool2Text(conf.EmailAlerts))
			cmd.Printf("  NATS alerts: %s\n", bool2Text(conf.NATSAlerts))
			cmd.Println()
			cmd.Println(bold("Daemon:"))
			restart := conf.RestartCron
			if restart == "" {
				restart = "disabled"
			}
			cmd.Printf("  Scheduled restart: %s\n", restart)
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the configuration as JSON")

	return cmd
}
