// Package patchsync propagates a file's changes from one git commit onto
// several independent directories and reports the outcome per directory.
package patchsync

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sokinpui/patchsync/internal/config"
	"github.com/sokinpui/patchsync/internal/engine"
	"github.com/sokinpui/patchsync/internal/format"
	"github.com/sokinpui/patchsync/internal/fs"
	"github.com/sokinpui/patchsync/internal/normalize"
	"github.com/sokinpui/patchsync/internal/patcher"
	"github.com/sokinpui/patchsync/internal/runner"
	"github.com/sokinpui/patchsync/internal/vcs"
	"github.com/sokinpui/patchsync/model"
)

// Errors callers can match with errors.Is.
var (
	ErrNoChanges     = engine.ErrNoChanges
	ErrFileNotInDiff = vcs.ErrFileNotInDiff
	ErrInvalidInput  = errors.New("invalid input")
)

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// App orchestrates the sync engine, the repository reader and the
// formatters.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	engine    *engine.Engine
	formatter *format.Registry
	open      func(path string) (*vcs.Repository, error)
}

// New creates an App from a validated configuration. A nil cfg uses the
// defaults; a nil logger discards logs.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	applier := patcher.New(runner.NewExecRunner(cfg.ApplyTimeout()), cfg.Apply.Tool)
	eng := engine.New(engine.OpenRepository, applier, engine.Options{
		Workers:      cfg.Apply.Workers,
		ContextLines: cfg.Apply.ContextLines,
		Logger:       logger.Named("engine"),
	})

	formatter := format.NewRegistry(logger.Named("format"))
	formatter.RegisterCommands(runner.NewExecRunner(cfg.FormatTimeout()), cfg.Format.Commands)

	return &App{
		cfg:       cfg,
		logger:    logger,
		engine:    eng,
		formatter: formatter,
		open:      vcs.Open,
	}, nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the App's logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// recoverPanic turns a panic into a *DetailedError assigned to *err.
func recoverPanic(err *error) {
	if r := recover(); r != nil {
		*err = &DetailedError{
			Err:   fmt.Errorf("internal panic: %v", r),
			Stack: debug.Stack(),
		}
	}
}

// Sync applies the change req.FilePath received in req.CommitID to every
// target root. Per-target problems are reported in the SyncReport; the
// returned error is reserved for operation-level failures, which can be
// classified with engine.KindOf.
func (a *App) Sync(ctx context.Context, req model.SyncRequest) (report *model.SyncReport, err error) {
	defer recoverPanic(&err)
	return a.engine.Sync(ctx, req)
}

// ChangedFiles lists the files changed by commitID, skipping static assets
// such as images, fonts and archives.
func (a *App) ChangedFiles(ctx context.Context, repoPath, commitID string) (files []model.ChangedFile, err error) {
	defer recoverPanic(&err)

	if repoPath == "" || commitID == "" {
		return nil, fmt.Errorf("%w: missing repo_path or commit_id", ErrInvalidInput)
	}
	repo, err := a.open(repoPath)
	if err != nil {
		return nil, err
	}
	all, err := repo.ChangedFiles(ctx, commitID)
	if err != nil {
		return nil, err
	}

	files = make([]model.ChangedFile, 0, len(all))
	for _, f := range all {
		if format.IsStatic(f.Path) {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// FileContent returns both versions of filePath in commitID, formatted for
// display. Content that is not valid UTF-8 is replaced by a placeholder.
func (a *App) FileContent(ctx context.Context, repoPath, commitID, filePath string) (content *model.FileContent, err error) {
	defer recoverPanic(&err)

	if repoPath == "" || commitID == "" || filePath == "" {
		return nil, fmt.Errorf("%w: missing parameters", ErrInvalidInput)
	}
	clean, err := fs.CleanRepoPath(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	repo, err := a.open(repoPath)
	if err != nil {
		return nil, err
	}
	before, after, err := repo.FileVersions(ctx, commitID, clean)
	if err != nil {
		return nil, err
	}

	return &model.FileContent{
		OldContent: a.formatter.Format(ctx, clean, displayText(before)),
		NewContent: a.formatter.Format(ctx, clean, displayText(after)),
		FilePath:   clean,
		Language:   format.Language(clean),
	}, nil
}

func displayText(data []byte) string {
	if !utf8.Valid(data) {
		return format.BinaryPlaceholder
	}
	return string(data)
}

// Normalize tightens the whitespace inside template-literal interpolation
// markers (${ ... }).
func Normalize(text string) string {
	return normalize.Normalize(text)
}
