package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"svcd/svcclient"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Signal the daemon to reload its configuration",
	Args:  cobra.NoArgs,
	RunE:  runReload,
}

func init() {
	ctlRootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	c, err := dialClient()
	if err != nil {
		return err
	}
	defer c.Close()

	reply, err := c.Reload()
	if err != nil {
		return err
	}
	if reply.IsError() {
		svcclient.PrintError(os.Stderr, reply)
		return errUsage
	}
	return nil
}
