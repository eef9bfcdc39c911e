// Package config loads patchsync settings with the override chain
// defaults -> config file -> environment variables -> CLI flags.
package config

import "time"

// Default values used when neither the config file nor the environment sets
// an option.
const (
	defaultApplyTool     = "git"
	defaultApplyTimeout  = "30s"
	defaultApplyWorkers  = 4
	defaultContextLines  = 3
	defaultFormatTimeout = "10s"
	defaultServerAddr    = "127.0.0.1:5000"
	defaultLogLevel      = "warn"
)

// Config is the decoded config file.
type Config struct {
	Apply  ApplyConfig  `toml:"apply" yaml:"apply"`
	Format FormatConfig `toml:"format" yaml:"format"`
	Server ServerConfig `toml:"server" yaml:"server"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// ApplyConfig controls how patches are applied to target roots.
type ApplyConfig struct {
	Tool         string `toml:"tool" yaml:"tool"`
	Timeout      string `toml:"timeout" yaml:"timeout"`
	Workers      int    `toml:"workers" yaml:"workers"`
	ContextLines int    `toml:"context_lines" yaml:"context_lines"`
}

// FormatConfig maps file extensions to external formatter commands. An
// argument containing {file} receives a temporary file with the content;
// otherwise the content is piped on stdin.
type FormatConfig struct {
	Commands map[string][]string `toml:"commands" yaml:"commands"`
	Timeout  string              `toml:"timeout" yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level       string `toml:"level" yaml:"level"`
	Development bool   `toml:"development" yaml:"development"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Apply: ApplyConfig{
			Tool:         defaultApplyTool,
			Timeout:      defaultApplyTimeout,
			Workers:      defaultApplyWorkers,
			ContextLines: defaultContextLines,
		},
		Format: FormatConfig{
			Commands: map[string][]string{},
			Timeout:  defaultFormatTimeout,
		},
		Server: ServerConfig{Addr: defaultServerAddr},
		Log:    LogConfig{Level: defaultLogLevel},
	}
}

// ApplyTimeout is the parsed apply.timeout. Call it on a validated Config.
func (c *Config) ApplyTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Apply.Timeout)
	return d
}

// FormatTimeout is the parsed format.timeout. Call it on a validated Config.
func (c *Config) FormatTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Format.Timeout)
	return d
}
