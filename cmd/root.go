// Package cmd implements the CLI commands for both the svcd daemon
// and svcctl client binaries.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"svcd/logging"
)

// svcd's global flags.
var (
	svcdConfig     string
	svcdLog        string
	svcdLogLevel   string
	svcdPIDFile    string
	svcdAutostart  int
	svcdDaemon     bool
	svcdForeground bool
	svcdTest       bool
	svcdShowVer    bool
)

// rootCmd is svcd, the supervising daemon binary.
var rootCmd = &cobra.Command{
	Use:   "svcd",
	Short: "Supervise long-running child programs",
	Long: `svcd is a small init-like process supervisor.

It reads a configuration file describing named programs, listens on a
local control socket for start/restart/reload/signal/stop/status
requests, and reaps and optionally auto-restarts the children it
spawns.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
	RunE: runServe,
}

// Execute runs the svcd command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&svcdConfig, "config", "c", defaultConfigPath, "configuration file path")
	rootCmd.PersistentFlags().StringVarP(&svcdLog, "log", "l", "", "log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVarP(&svcdLogLevel, "loglevel", "L", "info", "log level (debug, note, info, warn, error, critical, fatal)")
	rootCmd.PersistentFlags().StringVarP(&svcdPIDFile, "pid", "P", "", "write the daemon's pid to this file")
	rootCmd.PersistentFlags().IntVarP(&svcdAutostart, "autostart", "A", 1, "autostart group to sweep at startup")
	rootCmd.PersistentFlags().BoolVarP(&svcdDaemon, "daemon", "d", false, "detach to the background")
	rootCmd.PersistentFlags().BoolVarP(&svcdForeground, "foreground", "f", false, "stay in the foreground (overrides --daemon)")
	rootCmd.PersistentFlags().BoolVarP(&svcdTest, "test", "t", false, "validate configuration and exit, without binding the control socket")
	rootCmd.PersistentFlags().BoolVarP(&svcdShowVer, "version", "V", false, "print version information and exit")
}

func setupLogging() {
	out := os.Stderr
	if svcdLog != "" {
		f, err := os.OpenFile(svcdLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			out = f
		}
	}
	logger := logging.NewLogger(logging.Config{
		Level:  logging.ParseLevel(svcdLogLevel),
		Format: "text",
		Output: out,
	})
	logging.SetDefault(logger)
}
