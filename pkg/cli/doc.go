// Package cli provides common utilities for the omnivoice command-line tools.
//
// This package includes:
//   - Output formatting (YAML, JSON, raw)
//   - Request file loading (YAML/JSON)
//   - Terminal UI frames for the live listening-state display
//   - Bounded log capture for embedding slog output in the TUI
//
// Example usage:
//
//	// Load a command definition from a file
//	var cmd CommandSpec
//	if err := cli.LoadRequest("send_message.yaml", &cmd); err != nil { ... }
//
//	// Output result
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
