package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"svcd/svcclient"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal the daemon (if any running) to shut down",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	ctlRootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	c, err := dialClient()
	if err != nil {
		return err
	}
	defer c.Close()

	reply, err := c.Stop()
	if err != nil {
		return err
	}
	if reply.IsError() {
		svcclient.PrintError(os.Stderr, reply)
		return errUsage
	}
	return nil
}
