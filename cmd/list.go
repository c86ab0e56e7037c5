package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"svcd/svcclient"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured programs and their state (LIST)",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	ctlRootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := dialClient()
	if err != nil {
		return err
	}
	defer c.Close()

	reply, err := c.List()
	if err != nil {
		return err
	}
	if reply.IsError() {
		svcclient.PrintError(os.Stderr, reply)
		return errUsage
	}

	null := ctlNull
	if !cmd.Flags().Changed("null") {
		null = svcclient.DefaultNull(os.Stdout)
	}
	svcclient.PrintListing(os.Stdout, reply, null)
	return nil
}
