package cmd

import (
	"github.com/spf13/cobra"

	"svcd/config"
	"svcd/daemon"
	"svcd/svcclient"
)

// svcctl's global flags.
var (
	ctlConfig  string
	ctlNull    bool
	ctlAll     bool
	ctlShowVer bool
	ctlStop    bool
	ctlReload  bool
)

// ctlRootCmd is svcctl, the control-socket client binary, with one
// subcommand per control verb. The --stop/--reload flag forms and
// bare positional program/action arguments are accepted at the root
// as shorthands for the stop, reload, and spawn subcommands.
var ctlRootCmd = &cobra.Command{
	Use:           "svcctl [<program> <action> [args...]]",
	Short:         "Control a running svcd daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case ctlShowVer:
			printVersion("svcctl")
			return nil
		case ctlStop:
			return runStop(cmd, nil)
		case ctlReload:
			return runReload(cmd, nil)
		case len(args) > 0:
			return runSpawn(cmd, args)
		}
		return cmd.Help()
	},
}

// ExecuteCtl runs the svcctl command.
func ExecuteCtl() error {
	return ctlRootCmd.Execute()
}

func init() {
	ctlRootCmd.PersistentFlags().StringVarP(&ctlConfig, "config", "c", defaultConfigPath, "configuration file path (used to locate the control socket)")
	ctlRootCmd.PersistentFlags().BoolVarP(&ctlNull, "null", "0", false, "use NUL-delimited output for list")
	ctlRootCmd.PersistentFlags().BoolVarP(&ctlAll, "all", "a", false, "apply to every configured program")
	ctlRootCmd.PersistentFlags().BoolVarP(&ctlShowVer, "version", "V", false, "print version information and exit")
	ctlRootCmd.Flags().BoolVarP(&ctlStop, "stop", "s", false, "signal the daemon to shut down")
	ctlRootCmd.Flags().BoolVarP(&ctlReload, "reload", "r", false, "signal the daemon to reload its configuration")
}

// resolveSocketPath mirrors daemon.New's own resolution order so the
// client finds the same socket the daemon bound.
func resolveSocketPath() string {
	store, err := config.Load(ctlConfig)
	if err != nil {
		return daemon.DefaultSocketPath
	}
	if v, ok := store.Global("socket-path"); ok && v != "" {
		return v
	}
	return daemon.DefaultSocketPath
}

// dialClient connects to the resolved control socket.
func dialClient() (*svcclient.Client, error) {
	return svcclient.Dial(resolveSocketPath())
}
