// Package config loads option default values from a TOML file, the way
// internal/tqw in the teacher repo loads world-data files: read the bytes,
// hand them to BurntSushi/toml, return a plain Go value.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Defaults holds the default values optiquedemo feeds into WithDefault and
// into the default-value factories passed to Derive, keyed by the same
// field names the demo's Object uses.
type Defaults struct {
	Format    string            `toml:"format"`
	LogLevel  string            `toml:"log_level"`
	Count     int               `toml:"count"`
	Strings   map[string]string `toml:"strings"`
}

// Load reads and decodes a Defaults file. A missing file is not an error —
// Load returns the zero Defaults, which the demo then uses in place of its
// compiled-in ones — but a malformed one is.
func Load(path string) (Defaults, error) {
	var d Defaults

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), &d); err != nil {
		return d, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return d, nil
}
