// Command svcd supervises a set of named long-running child programs.
package main

import (
	"os"

	"svcd/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
