package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variable names for overrides.
const (
	EnvConfig     = "PATCHSYNC_CONFIG"
	EnvLogLevel   = "PATCHSYNC_LOG_LEVEL"
	EnvApplyTool  = "PATCHSYNC_APPLY_TOOL"
	EnvServerAddr = "PATCHSYNC_SERVER_ADDR"
)

const appName = "patchsync"

// DefaultConfigPath returns $XDG_CONFIG_HOME/patchsync/config.toml, falling
// back to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// Load reads a TOML or YAML config file (chosen by extension), validates it
// and returns the result. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise returns defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Overrides are values set on the command line. Empty fields do not
// override anything.
type Overrides struct {
	ConfigPath string
	LogLevel   string
	ApplyTool  string
	ServerAddr string
	Workers    int
}

// Resolve applies defaults -> config file -> environment -> cli and
// validates the merged result.
func Resolve(cli Overrides) (*Config, error) {
	path := DefaultConfigPath()
	if env := os.Getenv(EnvConfig); env != "" {
		path = env
	}
	if cli.ConfigPath != "" {
		path = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	setIf(&cfg.Log.Level, os.Getenv(EnvLogLevel))
	setIf(&cfg.Apply.Tool, os.Getenv(EnvApplyTool))
	setIf(&cfg.Server.Addr, os.Getenv(EnvServerAddr))

	setIf(&cfg.Log.Level, cli.LogLevel)
	setIf(&cfg.Apply.Tool, cli.ApplyTool)
	setIf(&cfg.Server.Addr, cli.ServerAddr)
	if cli.Workers > 0 {
		cfg.Apply.Workers = cli.Workers
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setIf(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
