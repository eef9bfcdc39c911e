// Package engine propagates one file's changes from a commit onto several
// independent target roots.
//
// A sync escalates through up to four rounds. Each round only attempts the
// targets the previous round left failed:
//
//  1. standard-context: the commit's patch at the default context width.
//  2. zero-context: the patch regenerated without context lines.
//  3. zero-context-with-reject: the same patch, keeping hunks that do not
//     apply in a .rej sidecar instead of aborting.
//  4. force-overwrite (opt-in): the post-change file written verbatim.
//
// Missing target roots are reported once and never attempted.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/patchsync/internal/fs"
	"github.com/sokinpui/patchsync/internal/patcher"
	"github.com/sokinpui/patchsync/internal/vcs"
	"github.com/sokinpui/patchsync/model"
)

const defaultWorkers = 4

// Accessor materializes diffs and blobs from a repository.
type Accessor interface {
	Diff(ctx context.Context, commitID, path string, contextLines int) ([]byte, error)
	Blob(ctx context.Context, commitID, path string) ([]byte, error)
}

// Opener opens the repository at repoPath.
type Opener func(repoPath string) (Accessor, error)

// Applier applies a patch file inside a target root.
type Applier interface {
	Apply(ctx context.Context, at patcher.Attempt) patcher.Outcome
}

// Options tunes an Engine.
type Options struct {
	// Workers bounds concurrent attempts within a round.
	Workers int
	// ContextLines is the context width of the first round's patch.
	ContextLines int
	// TempDir holds the per-round patch file; empty means os.TempDir.
	TempDir string
	Logger  *zap.Logger
}

// Engine runs sync operations. It holds no per-operation state and is safe
// for concurrent use.
type Engine struct {
	open         Opener
	applier      Applier
	workers      int
	contextLines int
	tempDir      string
	logger       *zap.Logger
}

// New creates an Engine.
func New(open Opener, applier Applier, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.ContextLines <= 0 {
		opts.ContextLines = vcs.DefaultContextLines
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		open:         open,
		applier:      applier,
		workers:      opts.Workers,
		contextLines: opts.ContextLines,
		tempDir:      opts.TempDir,
		logger:       opts.Logger,
	}
}

// OpenRepository adapts vcs.Open to an Opener.
func OpenRepository(repoPath string) (Accessor, error) {
	return vcs.Open(repoPath)
}

// operation is the state of one Sync call.
type operation struct {
	id        string
	req       model.SyncRequest
	filePath  string
	accessor  Accessor
	standard  []byte
	zero      []byte
	zeroErr   error
	zeroReady bool
	agg       *aggregator
	logger    *zap.Logger
}

// Sync runs every escalation round for req. It returns either a report with
// exactly one result per distinct target root, in the caller's order, or an
// *OperationError; never both.
func (e *Engine) Sync(ctx context.Context, req model.SyncRequest) (*model.SyncReport, error) {
	op, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	op.logger.Info("sync started",
		zap.String("repo", req.RepoPath),
		zap.String("commit", req.CommitID),
		zap.String("file", op.filePath),
		zap.Int("targets", len(op.agg.order)),
		zap.Bool("force_overwrite", req.ForceOverwrite),
	)

	for _, target := range op.agg.order {
		if !fs.IsDir(target) {
			op.agg.record(model.TargetResult{
				Target:  target,
				Status:  model.StatusTargetMissing,
				Message: "target directory does not exist",
			})
		}
	}

	e.runRound(ctx, op, model.StrategyStandardContext, func() ([]byte, error) { return op.standard, nil })
	e.runRound(ctx, op, model.StrategyZeroContext, op.zeroContextPatch(ctx))
	e.runRound(ctx, op, model.StrategyZeroContextWithReject, op.zeroContextPatch(ctx))
	if req.ForceOverwrite {
		e.forceOverwrite(ctx, op)
	}
	annotateFailures(op)

	report := op.agg.report()
	counts := report.Counts()
	op.logger.Info("sync finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int("succeeded", counts[model.StatusSuccess]),
		zap.Int("partial", counts[model.StatusPartial]),
		zap.Int("failed", counts[model.StatusFailed]),
		zap.Int("missing", counts[model.StatusTargetMissing]),
	)
	return report, nil
}

// prepare validates req and fetches the first-round patch. Every error it
// returns is an *OperationError.
func (e *Engine) prepare(ctx context.Context, req model.SyncRequest) (*operation, error) {
	switch {
	case req.RepoPath == "":
		return nil, invalidRequest("missing repository location")
	case req.CommitID == "":
		return nil, invalidRequest("missing commit id")
	case req.FilePath == "":
		return nil, invalidRequest("missing file path")
	}
	filePath, err := fs.CleanRepoPath(req.FilePath)
	if err != nil {
		return nil, &OperationError{Kind: KindInvalidRequest, Err: err}
	}
	targets := fs.NormalizeTargets(req.TargetRoots)
	if len(targets) == 0 {
		return nil, invalidRequest("no target roots given")
	}

	accessor, err := e.open(req.RepoPath)
	if err != nil {
		return nil, &OperationError{Kind: KindVCS, Err: err}
	}
	patch, err := accessor.Diff(ctx, req.CommitID, filePath, e.contextLines)
	if err != nil {
		return nil, &OperationError{Kind: KindVCS, Err: err}
	}
	if len(bytes.TrimSpace(patch)) == 0 {
		return nil, &OperationError{Kind: KindNoChanges, Err: fmt.Errorf("%w for %s in %s", ErrNoChanges, filePath, req.CommitID)}
	}
	if got := patcher.ExtractPathFromDiff(string(patch)); got != "" && got != filePath {
		return nil, &OperationError{Kind: KindVCS, Err: fmt.Errorf("patch is for %s, not %s", got, filePath)}
	}

	id := uuid.NewString()
	return &operation{
		id:       id,
		req:      req,
		filePath: filePath,
		accessor: accessor,
		standard: patch,
		agg:      newAggregator(targets),
		logger:   e.logger.With(zap.String("operation", id)),
	}, nil
}

// zeroContextPatch returns a loader that generates the zero-context patch on
// first use and reuses it afterwards. Rounds run sequentially, so the cache
// needs no locking.
func (op *operation) zeroContextPatch(ctx context.Context) func() ([]byte, error) {
	return func() ([]byte, error) {
		if !op.zeroReady {
			op.zero, op.zeroErr = op.accessor.Diff(ctx, op.req.CommitID, op.filePath, 0)
			if op.zeroErr == nil && len(bytes.TrimSpace(op.zero)) == 0 {
				op.zeroErr = ErrNoChanges
			}
			op.zeroReady = true
		}
		return op.zero, op.zeroErr
	}
}

// runRound attempts strategy on every pending target. The patch is written
// to one temporary file that lives exactly as long as the round.
func (e *Engine) runRound(ctx context.Context, op *operation, strategy model.Strategy, load func() ([]byte, error)) {
	pending := op.agg.pending()
	if len(pending) == 0 {
		return
	}
	logger := op.logger.With(zap.String("strategy", string(strategy)))
	logger.Debug("round started", zap.Int("targets", len(pending)))

	patch, err := load()
	if err != nil {
		op.agg.recordAll(failAll(op, pending, strategy, fmt.Sprintf("generating patch: %v", err)))
		return
	}

	patchFile, err := e.writePatch(patch)
	if err != nil {
		op.agg.recordAll(failAll(op, pending, strategy, err.Error()))
		return
	}
	defer func() {
		if err := os.Remove(patchFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("removing patch file failed", zap.String("path", patchFile), zap.Error(err))
		}
		logger.Debug("patch file removed", zap.String("path", patchFile))
	}()

	results := e.fanOut(ctx, pending, func(ctx context.Context, target string) model.TargetResult {
		started := time.Now()
		out := e.applier.Apply(ctx, patcher.Attempt{
			Root:      target,
			PatchFile: patchFile,
			FilePath:  op.filePath,
			Strategy:  strategy,
		})
		logger.Info("attempt finished",
			zap.String("target", target),
			zap.String("status", string(out.Status)),
			zap.Duration("duration", time.Since(started)),
		)
		return model.TargetResult{
			Target:   target,
			Status:   out.Status,
			Message:  out.Message,
			Strategy: strategy,
			Path:     targetPath(target, op.filePath),
		}
	})
	op.agg.recordAll(results)
}

// forceOverwrite writes the post-change blob into every still-failed target.
func (e *Engine) forceOverwrite(ctx context.Context, op *operation) {
	pending := op.agg.pending()
	if len(pending) == 0 {
		return
	}
	strategy := model.StrategyForceOverwrite
	logger := op.logger.With(zap.String("strategy", string(strategy)))
	logger.Debug("round started", zap.Int("targets", len(pending)))

	blob, err := op.accessor.Blob(ctx, op.req.CommitID, op.filePath)
	if err != nil {
		op.agg.recordAll(failAll(op, pending, strategy, err.Error()))
		return
	}
	want := fs.SHA256(blob)

	results := e.fanOut(ctx, pending, func(_ context.Context, target string) model.TargetResult {
		res := model.TargetResult{Target: target, Strategy: strategy, Path: targetPath(target, op.filePath)}

		previous, readErr := os.ReadFile(res.Path)
		if err := fs.WriteFileAtomic(res.Path, blob); err != nil {
			res.Status = model.StatusFailed
			res.Message = err.Error()
			logger.Warn("overwrite failed", zap.String("target", target), zap.Error(err))
			return res
		}
		if got, err := fs.GetFileSHA256(res.Path); err != nil || got != want {
			res.Status = model.StatusFailed
			res.Message = "content mismatch after overwrite"
			return res
		}

		res.Status = model.StatusSuccess
		res.Message = model.ForcedOverwriteMessage
		if readErr == nil {
			res.Detail = lineStats(previous, blob)
		} else {
			res.Detail = "created"
		}
		logger.Info("overwrite finished", zap.String("target", target))
		return res
	})
	op.agg.recordAll(results)
}

// fanOut runs fn for each target on at most e.workers goroutines and returns
// the results in target order.
func (e *Engine) fanOut(ctx context.Context, targets []string, fn func(context.Context, string) model.TargetResult) []model.TargetResult {
	results := make([]model.TargetResult, len(targets))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, target := range targets {
		g.Go(func() error {
			results[i] = fn(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) writePatch(patch []byte) (string, error) {
	f, err := os.CreateTemp(e.tempDir, "patchsync-*.diff")
	if err != nil {
		return "", fmt.Errorf("creating patch file: %w", err)
	}
	name, err := filepath.Abs(f.Name())
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("resolving patch file: %w", err)
	}
	if _, err := f.Write(patch); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("writing patch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("closing patch file: %w", err)
	}
	return name, nil
}

func failAll(op *operation, targets []string, strategy model.Strategy, msg string) []model.TargetResult {
	results := make([]model.TargetResult, len(targets))
	for i, target := range targets {
		results[i] = model.TargetResult{
			Target:   target,
			Status:   model.StatusFailed,
			Message:  msg,
			Strategy: strategy,
			Path:     targetPath(target, op.filePath),
		}
	}
	op.logger.Warn("round failed for all targets",
		zap.String("strategy", string(strategy)),
		zap.Int("targets", len(targets)),
		zap.String("error", msg),
	)
	return results
}

// targetPath joins an already validated repository path under target.
func targetPath(target, filePath string) string {
	p, err := fs.Join(target, filePath)
	if err != nil {
		return ""
	}
	return p
}
