// Package commands holds the buildmonitor CLI's cobra command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/xsparkiex/buildmonitor/logger"
)

var (
	verbosity  int
	jsonOutput bool
	configPath string
)

// Root constructs the top-level buildmonitor command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "buildmonitor",
		Short:         "Distributed build-status monitor",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Initialize(jsonOutput, verbosity)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Cleanup()
		},
	}

	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit structured JSON logs")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	root.AddCommand(
		newServerCmd(),
		newClientCmd(),
		newVolunteerCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return root
}
