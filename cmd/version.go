package cmd

import "fmt"

// Version information, set at build time via -ldflags.
var (
	Version   = "0.1.0"
	ProtoVer  = "1.0"
	BuildTime = "unknown"
)

func printVersion(program string) {
	fmt.Printf("%s version %s\n", program, Version)
	fmt.Printf("protocol: %s\n", ProtoVer)
	if BuildTime != "unknown" {
		fmt.Printf("build: %s\n", BuildTime)
	}
}
