package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiofi-tools/jiobatt/pkg/daemon"
	"github.com/jiofi-tools/jiobatt/pkg/version"
)

var (
	// alwaysAllowNonRootAccess indicates whether to always allow non-root users to access the jiobatt daemon.
	alwaysAllowNonRootAccess = false
	// noPersist keeps the notification state in memory.
	noPersist = false
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run jiobatt daemon in the foreground",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("jiobatt daemon starting")
			return daemon.Run(configPath, unixSocketPath, alwaysAllowNonRootAccess, noPersist)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")
	f.BoolVar(&noPersist, "no-persist", false,
		"Keep the notification state in memory instead of the configured state backend.")

	return cmd
}
