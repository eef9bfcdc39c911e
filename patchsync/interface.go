package patchsync

import (
	"context"
	"fmt"

	"github.com/sokinpui/patchsync/internal/config"
	"github.com/sokinpui/patchsync/model"
)

// Options for using patchsync as a library without a config file.
type Options struct {
	// Workers bounds concurrent apply attempts per round. Zero uses the default.
	Workers int
	// ApplyTool is the git binary to run. Empty uses "git".
	ApplyTool string
}

// Sync runs a single sync with default settings adjusted by opts.
func Sync(ctx context.Context, req model.SyncRequest, opts Options) (*model.SyncReport, error) {
	cfg := config.DefaultConfig()
	if opts.Workers > 0 {
		cfg.Apply.Workers = opts.Workers
	}
	if opts.ApplyTool != "" {
		cfg.Apply.Tool = opts.ApplyTool
	}

	app, err := New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize patchsync: %w", err)
	}
	return app.Sync(ctx, req)
}
