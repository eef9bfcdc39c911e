// Package cli defines the patchsync command tree.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sokinpui/patchsync/internal/config"
	"github.com/sokinpui/patchsync/internal/logging"
	"github.com/sokinpui/patchsync/patchsync"
)

// version is set at build time via ldflags.
var version = "dev"

// ErrTargetsFailed is returned by sync when at least one target did not
// receive the change.
var ErrTargetsFailed = errors.New("one or more targets were not synced")

// Config holds the global command-line flag values.
type Config struct {
	ConfigPath  string
	LogLevel    string
	Development bool
	ApplyTool   string
	// Workers is bound by the sync command only.
	Workers int
}

// Flags binds the global flags to fs.
func (c *Config) Flags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigPath, "config", "", "config file path (TOML or YAML)")
	fs.StringVar(&c.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.BoolVar(&c.Development, "dev", false, "human-readable development logging")
	fs.StringVar(&c.ApplyTool, "apply-tool", "", "git binary used to apply patches")
}

// runtime is the state shared by subcommands once the root pre-run has
// resolved the configuration.
type runtime struct {
	flags  Config
	cfg    *config.Config
	logger *zap.Logger
	app    *patchsync.App
}

// NewRootCmd builds the root command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:     "patchsync",
		Short:   "Propagate a file's change from a git commit to many directories",
		Long:    "patchsync applies the change one commit made to one file onto several independent copies of a project, escalating from a normal patch to zero-context and reject-tolerant applies, and optionally to a forced overwrite.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return rt.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}
	rt.flags.Flags(cmd.PersistentFlags())

	cmd.AddCommand(newSyncCmd(rt))
	cmd.AddCommand(newFilesCmd(rt))
	cmd.AddCommand(newShowCmd(rt))
	cmd.AddCommand(newNormalizeCmd())
	cmd.AddCommand(newServeCmd(rt))
	return cmd
}

func (rt *runtime) load() error {
	cfg, err := config.Resolve(config.Overrides{
		ConfigPath: rt.flags.ConfigPath,
		LogLevel:   rt.flags.LogLevel,
		ApplyTool:  rt.flags.ApplyTool,
		Workers:    rt.flags.Workers,
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if rt.flags.Development {
		cfg.Log.Development = true
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	app, err := patchsync.New(cfg, logger)
	if err != nil {
		return err
	}

	rt.cfg, rt.logger, rt.app = cfg, logger, app
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
