// Package config provides configuration management for the reffix CLI.
//
// It layers the settings that control a run (which mapping file to load, where
// logs go, how output is rendered) on top of the mapping file itself, which is
// loaded by internal/config.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/reffix/internal/cli/output"
)

// ErrNoConfigFile is returned when no mapping file was given and none was found.
var ErrNoConfigFile = errors.New("no configuration file found")

// Config holds all CLI configuration options.
type Config struct {
	ConfigFile   string `koanf:"config"`
	LogDir       string `koanf:"log_dir"`
	Verbose      bool   `koanf:"verbose"`
	DryRun       bool   `koanf:"dry_run"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultLogDir = "."
	DefaultOutput = "auto" // Auto-detect: TTY=text, non-TTY=plain
	EnvPrefix     = "REFFIX_"
)

// Positional describes a positional argument of the run commands.
type Positional struct {
	Name        string
	Key         string
	Description string
}

// Positionals are the positional arguments in order.
var Positionals = []Positional{
	{Name: "config-file", Key: "config", Description: "Mapping file. Defaults to the first *.json file of the working directory"},
	{Name: "log-dir", Key: "log_dir", Description: "Directory for reffix.log and ChangeLog.txt. Ignored unless it exists"},
}

// FlagKey returns the config key a flag is loaded into.
func FlagKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// EnvVar returns the environment variable that sets key.
func EnvVar(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ConfigFile == "" {
		return ErrNoConfigFile
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return fmt.Errorf("invalid output format: %w", err)
	}
	return nil
}

// Mode returns the configured output mode, falling back to auto.
func (c *Config) Mode() output.OutputMode {
	mode, err := output.ParseMode(c.OutputFormat)
	if err != nil {
		return output.ModeAuto
	}
	return mode
}
