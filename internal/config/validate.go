package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Validate checks every option and reports all problems at once.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Apply.Tool) == "" {
		errs = append(errs, errors.New("apply.tool: must not be empty"))
	}
	if cfg.Apply.Workers < 1 {
		errs = append(errs, fmt.Errorf("apply.workers: must be at least 1, got %d", cfg.Apply.Workers))
	}
	if cfg.Apply.ContextLines < 1 {
		errs = append(errs, fmt.Errorf("apply.context_lines: must be at least 1, got %d", cfg.Apply.ContextLines))
	}
	errs = append(errs, validateDuration("apply.timeout", cfg.Apply.Timeout))
	errs = append(errs, validateDuration("format.timeout", cfg.Format.Timeout))

	for ext, argv := range cfg.Format.Commands {
		if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
			errs = append(errs, fmt.Errorf("format.commands.%s: command must not be empty", ext))
		}
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr: must not be empty"))
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

func validateDuration(key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", key, value)
	}
	return nil
}
