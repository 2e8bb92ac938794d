// Package main is the entry point for the omnivoice CLI.
//
// Usage:
//
//	omnivoice [flags] <command> [args]
//
// Commands:
//
//	run       - Run the always-on voice command pipeline
//	train     - Train a personalized wake-word profile from samples
//	commands  - Manage the user command catalogue (list, add, remove)
//	history   - Show recent command executions
//	devices   - List audio capture and playback devices
//	version   - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/charice-projects/omnivoice/cmd/omnivoice/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
