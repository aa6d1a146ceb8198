// Package config loads the TOML startup configuration: the DefineText
// field specs, the custom-fields-remap section, and an optional
// FIELDS_MAX override.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level TOML document fieldcore reads at startup.
type Config struct {
	// FieldsMax overrides fieldcore.FieldsMax when > 0.
	FieldsMax int `toml:"fields_max"`

	// Fields is an array of DefineText-grammar field specs, one entry per
	// custom field to register before packet processing begins.
	Fields []string `toml:"fields"`

	// CustomFieldsRemap is the raw custom-fields-remap section: keys are
	// expressions, values are "match1=new1;match2=new2;..." rule strings.
	CustomFieldsRemap map[string]string `toml:"custom-fields-remap"`
}

// Load reads and parses the TOML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return &cfg, nil
}
