// Command svcctl sends one request to a running svcd daemon and
// prints its reply.
package main

import (
	"os"

	"svcd/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.ExecuteCtl()))
}
