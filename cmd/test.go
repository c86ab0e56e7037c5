package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"svcd/svcclient"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Check whether the daemon is running (PING)",
	Args:  cobra.NoArgs,
	RunE:  runTest,
}

func init() {
	ctlRootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	c, err := dialClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "not running")
		return errUsage
	}
	defer c.Close()

	reply, err := c.Ping("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "not running")
		return errUsage
	}
	if reply.IsError() {
		svcclient.PrintError(os.Stderr, reply)
		return errUsage
	}

	fmt.Println("running")
	return nil
}
