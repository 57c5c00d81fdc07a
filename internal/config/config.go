// Package config loads the session defaults that the original "Convert
// ichat Files" program hard-coded at compile time (local UTC offset, input
// size ceiling, client display name, RTF color table) and lets a deployment
// override them via an optional YAML file.
package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// RTFColor is one entry of the RTF color table (§4.8: black, gray, navy,
// green, orange, teal, maroon, in that order).
type RTFColor struct {
	Red   int `yaml:"red"`
	Green int `yaml:"green"`
	Blue  int `yaml:"blue"`
}

// SessionConfig holds the runtime-configurable values the original program
// fixed at compile time. See spec.md §9's "Fixed local-time offset" design
// note: the offset stays simple day/hour arithmetic, but it becomes a
// runtime option here instead of a compile-time constant.
type SessionConfig struct {
	LocalOffsetHours int        `yaml:"local_offset_hours"`
	MaxInputBytes    int64      `yaml:"max_input_bytes"`
	ClientName       string     `yaml:"client_name"`
	RTFFont          string     `yaml:"rtf_font"`
	RTFColors        []RTFColor `yaml:"rtf_colors"`
}

// Default returns the configuration equivalent to the original program's
// compiled-in constants: LOCAL_TIME_ZONE -5, a 5 MiB read ceiling, client
// name "iChat", and the 7-entry color table from WriteRTFHeader.
func Default() SessionConfig {
	return SessionConfig{
		LocalOffsetHours: -5,
		MaxInputBytes:    5 * 1024 * 1024,
		ClientName:       "iChat",
		RTFFont:          "Helvetica",
		RTFColors: []RTFColor{
			{0, 0, 0},       // black: message text
			{128, 128, 128}, // gray: timestamps
			{0, 0, 128},     // navy
			{0, 128, 0},     // green
			{255, 128, 0},   // orange
			{0, 128, 128},   // teal
			{128, 0, 0},     // maroon
		},
	}
}

// Load reads a YAML file at path and merges it onto Default(); a zero value
// for any field in the file leaves the default untouched. An empty path
// returns Default() directly.
func Load(path string) (SessionConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var override SessionConfig
	if err := yaml.Unmarshal(data, &override); err != nil {
		return cfg, err
	}
	if override.LocalOffsetHours != 0 {
		cfg.LocalOffsetHours = override.LocalOffsetHours
	}
	if override.MaxInputBytes != 0 {
		cfg.MaxInputBytes = override.MaxInputBytes
	}
	if override.ClientName != "" {
		cfg.ClientName = override.ClientName
	}
	if override.RTFFont != "" {
		cfg.RTFFont = override.RTFFont
	}
	if len(override.RTFColors) > 0 {
		cfg.RTFColors = override.RTFColors
	}
	return cfg, nil
}
