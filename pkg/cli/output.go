package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	FormatYAML OutputFormat = "yaml" // default
	FormatJSON OutputFormat = "json"
	FormatRaw  OutputFormat = "raw"
)

// OutputOptions configures where and how Output writes.
type OutputOptions struct {
	Format OutputFormat

	// File receives the output instead of stdout when set.
	File string

	// Indent is the JSON indentation, two spaces when empty.
	Indent string

	// Writer overrides both File and stdout. Used in tests.
	Writer io.Writer
}

// Output renders result in the configured format. Unset format means
// YAML, the friendliest to read in a terminal.
func Output(result any, opts OutputOptions) error {
	w := io.Writer(os.Stdout)
	switch {
	case opts.Writer != nil:
		w = opts.Writer
	case opts.File != "":
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("cli: create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.Format {
	case FormatYAML, "":
		return writeYAML(w, result)
	case FormatJSON:
		indent := opts.Indent
		if indent == "" {
			indent = "  "
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", indent)
		return enc.Encode(result)
	case FormatRaw:
		switch v := result.(type) {
		case []byte:
			_, err := w.Write(v)
			return err
		case string:
			_, err := io.WriteString(w, v)
			return err
		default:
			return writeYAML(w, result)
		}
	default:
		return fmt.Errorf("cli: unknown output format %q", opts.Format)
	}
}

func writeYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("cli: encode output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// PrintSuccess prints a confirmation line with a checkmark.
func PrintSuccess(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}
