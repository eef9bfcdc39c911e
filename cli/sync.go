package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sokinpui/patchsync/internal/nvim"
	"github.com/sokinpui/patchsync/internal/report"
	"github.com/sokinpui/patchsync/internal/source"
	"github.com/sokinpui/patchsync/internal/tui"
	"github.com/sokinpui/patchsync/internal/ui"
	"github.com/sokinpui/patchsync/model"
)

type syncOptions struct {
	repo    string
	commit  string
	file    string
	targets []string
	force   bool
	json    bool
	copy    bool
	nvim    bool
	noTUI   bool
}

func newSyncCmd(rt *runtime) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync [target-root...]",
		Short: "Apply a commit's change to one file onto several target roots",
		Long: `Apply the change COMMIT made to FILE onto every target root.

Target roots come from arguments and --target. When neither is given they are
read one per line from stdin (if piped) or from the clipboard.`,
		Example: "  patchsync sync --commit HEAD --file src/app.js ../site-a ../site-b\n  ls -d ../site-* | patchsync sync -c HEAD -f src/app.js --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.targets = append(opts.targets, args...)
			return runSync(cmd, rt, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.repo, "repo", "r", ".", "repository containing the commit")
	fs.StringVarP(&opts.commit, "commit", "c", "", "commit id or revision (required)")
	fs.StringVarP(&opts.file, "file", "f", "", "repository-relative path of the file to sync (required)")
	fs.StringSliceVarP(&opts.targets, "target", "t", nil, "target root (repeatable)")
	fs.BoolVar(&opts.force, "force", false, "overwrite targets where every patch strategy failed")
	fs.IntVarP(&rt.flags.Workers, "workers", "w", 0, "concurrent apply attempts per round")
	fs.BoolVar(&opts.json, "json", false, "print the report as JSON")
	fs.BoolVar(&opts.copy, "copy", false, "copy the Markdown report to the clipboard")
	fs.BoolVar(&opts.nvim, "nvim", false, "reload changed files in the running Neovim")
	fs.BoolVar(&opts.noTUI, "no-tui", false, "print a plain summary instead of the interactive view")
	_ = cmd.MarkFlagRequired("commit")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSync(cmd *cobra.Command, rt *runtime, opts *syncOptions) error {
	sp := source.New()
	if len(opts.targets) == 0 {
		targets, err := sp.GetTargets()
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return errors.New("no target roots given")
		}
		opts.targets = targets
	}

	req := model.SyncRequest{
		RepoPath:       opts.repo,
		CommitID:       opts.commit,
		FilePath:       opts.file,
		TargetRoots:    opts.targets,
		ForceOverwrite: opts.force,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var rep *model.SyncReport
	out := cmd.OutOrStdout()
	switch {
	case opts.json:
		var err error
		if rep, err = rt.app.Sync(ctx, req); err != nil {
			return err
		}
		if err := writeJSON(out, rep); err != nil {
			return err
		}
	case isTerminal(out) && !opts.noTUI:
		var err error
		if rep, err = runTUI(ctx, rt, req); err != nil {
			return err
		}
	default:
		var err error
		if rep, err = rt.app.Sync(ctx, req); err != nil {
			return err
		}
		ui.PrintSyncSummary(rep)
	}

	if opts.copy {
		if err := sp.Copy(report.Markdown(req, rep)); err != nil {
			ui.Warning("%v", err)
		} else if !opts.json {
			ui.Info("Report copied to clipboard.")
		}
	}
	if opts.nvim {
		refreshNvim(rt.logger, rep.Touched())
	}

	counts := rep.Counts()
	if counts[model.StatusFailed] > 0 || counts[model.StatusTargetMissing] > 0 {
		return ErrTargetsFailed
	}
	return nil
}

func runTUI(ctx context.Context, rt *runtime, req model.SyncRequest) (*model.SyncReport, error) {
	task := func() (*model.SyncReport, string, error) {
		rep, err := rt.app.Sync(ctx, req)
		if err != nil {
			return nil, "", err
		}
		return rep, report.Markdown(req, rep), nil
	}

	final, err := tea.NewProgram(tui.New(fmt.Sprintf("Syncing %s...", req.FilePath), task)).Run()
	if err != nil {
		return nil, fmt.Errorf("error running program: %w", err)
	}
	m := final.(tui.Model)
	if m.Err() != nil {
		return nil, m.Err()
	}
	if m.Report() == nil {
		return nil, errors.New("sync cancelled")
	}
	return m.Report(), nil
}

func refreshNvim(logger *zap.Logger, paths []string) {
	if len(paths) == 0 {
		return
	}
	manager, err := nvim.New()
	if err != nil {
		ui.Warning("Neovim refresh skipped: %v", err)
		return
	}
	defer manager.Close()

	reloaded, failed := manager.Refresh(paths)
	logger.Debug("neovim refresh", zap.Strings("reloaded", reloaded), zap.Strings("failed", failed))
	if len(failed) > 0 {
		ui.Warning("Failed to reload %d buffer(s) in Neovim.", len(failed))
	}
}
