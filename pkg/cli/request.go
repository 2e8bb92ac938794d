package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// LoadRequest reads a YAML or JSON file into v, choosing the codec by
// file extension. Unknown extensions are tried as YAML, then JSON.
func LoadRequest(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cli: read request: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("cli: parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("cli: parse %s: %w", path, err)
		}
	default:
		if yerr := yaml.Unmarshal(data, v); yerr != nil {
			if json.Unmarshal(data, v) != nil {
				return fmt.Errorf("cli: parse %s: %w", path, yerr)
			}
		}
	}
	return nil
}
