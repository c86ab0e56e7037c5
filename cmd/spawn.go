package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"svcd/svcclient"
	"svcd/wire"
)

var spawnCmd = &cobra.Command{
	Use:   "spawn <program> <action> [args...]",
	Short: "Run an action against a program, or every program with --all (RUN)",
	Long: `Run an action against a named program.

With --all/-a, the first positional argument is the action instead,
and it is run against every program the daemon currently lists.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpawn,
}

func init() {
	ctlRootCmd.AddCommand(spawnCmd)
}

func runSpawn(cmd *cobra.Command, args []string) error {
	c, err := dialClient()
	if err != nil {
		return err
	}
	defer c.Close()

	if ctlAll {
		return spawnAll(c, args[0], args[1:])
	}

	if len(args) < 2 {
		return errUsage
	}
	reply, err := c.Spawn(args[0], args[1], args[2:]...)
	if err != nil {
		return err
	}
	return exitOnSpawnReply(reply)
}

// spawnAll runs action against every program the daemon's LIST reply
// names, stopping at the first failure.
func spawnAll(c *svcclient.Client, action string, extra []string) error {
	listing, err := c.List()
	if err != nil {
		return err
	}
	if listing.IsError() {
		svcclient.PrintError(os.Stderr, listing)
		return errUsage
	}

	fields := listing.Fields()
	for i := 1; i+1 < len(fields); i += 2 {
		program := string(fields[i])
		reply, err := c.Spawn(program, action, extra...)
		if err != nil {
			return err
		}
		if reply.IsError() {
			svcclient.PrintError(os.Stderr, reply)
			return errUsage
		}
		n, err := svcclient.ExitCode(reply)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return errUsage
		}
		if n != 0 {
			fmt.Fprintf(os.Stderr, "%s: exit %d\n", program, n)
		}
	}
	return nil
}

// exitOnSpawnReply translates a RUN reply into the process's own exit
// status: an error reply prints and maps to errUsage, otherwise the
// process exits with the daemon's clamped OK <n> directly.
func exitOnSpawnReply(reply wire.Reply) error {
	if reply.IsError() {
		svcclient.PrintError(os.Stderr, reply)
		return errUsage
	}
	n, err := svcclient.ExitCode(reply)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errUsage
	}
	os.Exit(n)
	return nil
}
