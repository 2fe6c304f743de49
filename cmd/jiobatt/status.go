package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
	"github.com/jiofi-tools/jiobatt/pkg/types"
)

// directMode makes commands talk to the router instead of the daemon.
var directMode = false

func fetchDirectStatus(ctx context.Context) types.StatusRecord {
	now := time.Now()
	s, err := newDirectClient().FetchStatus(ctx)
	rec := types.StatusRecord{
		Snapshot:  s,
		Level:     jiofi.LevelOf(s),
		UpdatedAt: now,
		Trigger:   "direct",
	}
	if err != nil {
		rec.Snapshot = jiofi.NotAvailableSnapshot()
		rec.Level = jiofi.LevelUnknown
		rec.Error = err.Error()
	}
	return rec
}

func printStatus(cmd *cobra.Command, rec *types.StatusRecord) {
	cmd.Println(bold("Router battery:"))

	c := levelColor(rec.Level)
	if rec.Error != "" {
		cmd.Printf("  Battery: %s\n", c.Sprint("N/A"))
		cmd.Printf("  State: %s\n", c.Sprint("Error"))
		cmd.Printf("  Error: %s\n", rec.Error)
	} else {
		cmd.Printf("  Battery: %s\n", c.Sprint(rec.Snapshot.PercentageText))
		cmd.Printf("  State: %s\n", bold("%s", chargeStateText(rec.Snapshot.ChargeState)))
	}
	cmd.Printf("  Last updated: %s\n", sinceText(rec.UpdatedAt, time.Now()))
	if rec.Action != "" && rec.Action != "none" {
		cmd.Printf("  Notification: %s\n", rec.Action)
	}
}

func NewStatusCommand() *cobra.Command {
	var (
		asJSON  bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Show the router battery",
		Long: `Show the router battery level and charging state.

By default the daemon's latest reading is shown. Use --refresh to make the
daemon read the router now, or --direct to read the router without the daemon.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rec *types.StatusRecord
			if directMode {
				r := fetchDirectStatus(cmd.Context())
				rec = &r
			} else {
				var err error
				rec, err = apiClient.GetStatus(refresh)
				if err != nil {
					return err
				}
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			printStatus(cmd, rec)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print the status as JSON")
	f.BoolVar(&refresh, "refresh", false, "make the daemon read the router instead of using its cache")
	f.BoolVar(&directMode, "direct", false, "read the router without the daemon")

	return cmd
}

func NewHistoryCommand() *cobra.Command {
	var (
		asJSON bool
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:     "history",
		GroupID: gAdvanced,
		Short:   "Show recent readings kept by the daemon",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := apiClient.GetHistory(since)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				cmd.Println("No readings yet.")
				return nil
			}
			for _, rec := range records {
				text := rec.Snapshot.PercentageText
				if rec.Error != "" {
					text = "N/A"
				}
				cmd.Printf("%s  %s  %-13s %s\n",
					rec.UpdatedAt.Local().Format(time.DateTime),
					levelColor(rec.Level).Sprintf("%4s", text),
					rec.Snapshot.ChargeState.String(),
					rec.Trigger,
				)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print the history as JSON")
	f.DurationVar(&since, "since", 0, "only show readings newer than this (e.g. 1h)")

	return cmd
}
