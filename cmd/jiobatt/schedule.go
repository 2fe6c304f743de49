package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jiofi-tools/jiobatt/pkg/types"
)

func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule [cron-expression]",
		Aliases: []string{"sch", "sche", "sched"},
		Short:   "Manage scheduled router restarts",
		Long: `Manage scheduled router restarts.

The schedule command can be used in multiple ways:
  jiobatt schedule 'minute hour day month weekday' Set schedule with cron expression
  jiobatt schedule disable                         Disable the schedule
  jiobatt schedule postpone [duration]             Postpone next run
  jiobatt schedule skip                            Skip next run
  jiobatt schedule show                            Show current schedule

The daemon checks that the router is reachable before a scheduled restart and
skips the run if it is not.`,
		Example: `  jiobatt schedule '0 4 * * *' (At 04:00 every day)
  jiobatt schedule '30 3 * * 1' (At 03:30 on Monday)
  jiobatt schedule '0 4 */2 * *' (At 04:00 every other day)`,
		GroupID: gAdvanced,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no arguments, show the current schedule
			if len(args) == 0 {
				return runScheduleShow(cmd)
			}
			// Otherwise, treat as a cron expression to set
			return runScheduleSet(cmd, args[0])
		},
	}

	// Add subcommands
	cmd.AddCommand(
		newScheduleDisableCommand(),
		newSchedulePostponeCommand(),
		newScheduleSkipCommand(),
		newScheduleShowCommand(),
	)

	return cmd
}

func newScheduleDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable scheduled restarts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := apiClient.SetSchedule(""); err != nil {
				return err
			}
			cmd.Println("Restart schedule disabled.")
			return nil
		},
	}
}

func newSchedulePostponeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postpone [duration]",
		Short: "Postpone the next scheduled restart",
		Example: `  jiobatt schedule postpone      (Postpone by 1 hour)
  jiobatt schedule postpone 90m  (Postpone by 90 minutes)`,
		Long: `Postpone the next scheduled restart by a duration, in whole minutes.
If no duration is provided, defaults to 1 hour.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := time.Hour
			if len(args) > 0 {
				parsed, err := time.ParseDuration(args[0])
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", args[0], err)
				}
				d = parsed
			}
			if d < time.Minute {
				return fmt.Errorf("duration must be at least 1m")
			}

			st, err := apiClient.PostponeSchedule(d)
			if err != nil {
				return err
			}
			cmd.Printf("Next restart postponed by %s.\n", d.Truncate(time.Minute))
			printNextRuns(cmd, st)
			return nil
		},
	}
	return cmd
}

func newScheduleSkipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Skip the next scheduled restart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.SkipSchedule()
			if err != nil {
				return err
			}
			cmd.Println("Next scheduled restart skipped.")
			printNextRuns(cmd, st)
			return nil
		},
	}
}

func newScheduleShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the restart schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScheduleShow(cmd)
		},
	}
}

func runScheduleSet(cmd *cobra.Command, cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	st, err := apiClient.SetSchedule(cronExpr)
	if err != nil {
		return err
	}
	cmd.Printf("Restart scheduled (%s).\n", st.Cron)
	printNextRuns(cmd, st)
	return nil
}

func runScheduleShow(cmd *cobra.Command) error {
	st, err := apiClient.GetSchedule()
	if err != nil {
		return err
	}
	if st.Cron == "" {
		cmd.Println("Restart schedule is not set.")
		return nil
	}
	cmd.Printf("Schedule: %s\n", bold("%s", st.Cron))
	printNextRuns(cmd, st)
	return nil
}

func printNextRuns(cmd *cobra.Command, st *types.ScheduleStatus) {
	if len(st.NextRuns) == 0 {
		return
	}
	cmd.Printf("Next %d run(s):\n", len(st.NextRuns))
	for _, run := range st.NextRuns {
		cmd.Printf("  - %s\n", run.Local().Format(time.DateTime))
	}
}
