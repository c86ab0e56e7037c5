package cmd

import "errors"

// errUsage marks a command failure as invalid usage rather than a
// runtime error, so main.go can translate it to exit code 2 instead
// of 1.
var errUsage = errors.New("invalid usage")

// ExitCode maps a command's returned error to the process exit code:
// 0 success, 1 runtime error, 2 invalid usage.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}
