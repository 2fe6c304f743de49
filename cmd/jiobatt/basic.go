package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiofi-tools/jiobatt/pkg/client"
	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
	"github.com/jiofi-tools/jiobatt/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "refresh",
		GroupID: gBasic,
		Short:   "Read the router battery now",
		Long: `Make the daemon read the router battery now.

The reading goes through the notification policy like a periodic one, so it
may send a low or full battery alert.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := apiClient.Refresh()
			if err != nil {
				return fmt.Errorf("failed to refresh: %w", err)
			}
			printStatus(cmd, rec)
			return nil
		},
	}
}

func NewRestartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "restart",
		GroupID: gBasic,
		Short:   "Restart the router",
		Long: `Restart the router.

This logs into the router web UI and asks it to reboot. The router drops off
the network for a minute or two.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				res *jiofi.RestartResult
				err error
			)
			if directMode {
				res, err = restartDirect(cmd.Context())
			} else {
				res, err = apiClient.Restart(cmd.Context())
			}

			if err != nil {
				var apiErr *client.APIError
				var restartErr *jiofi.RestartError
				switch {
				case errors.Is(err, client.ErrConflict):
					return errors.New("a restart is already in progress")
				case errors.As(err, &apiErr):
					return errors.New(restartFailure(apiErr.Message))
				case errors.As(err, &restartErr):
					return errors.New(restartFailure(restartErr.Error()))
				}
				return err
			}

			if !res.Success {
				return errors.New(restartFailure(res.Message))
			}

			logrus.Info(res.Message)
			return nil
		},
	}

	cmd.Flags().BoolVar(&directMode, "direct", false, "restart the router without the daemon")

	return cmd
}

func restartDirect(ctx context.Context) (*jiofi.RestartResult, error) {
	res, err := newDirectClient().Restart(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
