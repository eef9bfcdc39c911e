package patcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sokinpui/patchsync/internal/runner"
	"github.com/sokinpui/patchsync/model"
)

// DefaultTool is the executable that applies patches.
const DefaultTool = "git"

// rejectMarkerRegex matches the diagnostics git apply prints when it keeps
// rejected hunks in a sidecar file.
var rejectMarkerRegex = regexp.MustCompile(`(?i)rejected hunk|with \d+ rejects?`)

// Attempt is one patch application against one target root.
type Attempt struct {
	Root      string
	PatchFile string
	FilePath  string
	Strategy  model.Strategy
}

// Outcome is the classified result of an Attempt.
type Outcome struct {
	Status  model.Status
	Message string
}

// Applier invokes the external apply tool and classifies what it reports.
type Applier struct {
	runner runner.Runner
	tool   string
}

// New creates an Applier. An empty tool selects DefaultTool.
func New(r runner.Runner, tool string) *Applier {
	if tool == "" {
		tool = DefaultTool
	}
	return &Applier{runner: r, tool: tool}
}

// Args builds the apply tool's arguments for a strategy.
func Args(strategy model.Strategy, patchFile string) []string {
	args := []string{"apply", "--verbose", "--ignore-whitespace"}
	switch strategy {
	case model.StrategyZeroContext:
		args = append(args, "--unidiff-zero")
	case model.StrategyZeroContextWithReject:
		args = append(args, "--unidiff-zero", "--reject")
	}
	return append(args, patchFile)
}

// Apply runs the tool inside a.Root. Errors starting the tool are reported
// as a failed outcome; Apply never returns an error.
func (a *Applier) Apply(ctx context.Context, at Attempt) Outcome {
	cmd := runner.Command{
		Name: a.tool,
		Args: Args(at.Strategy, at.PatchFile),
		Dir:  at.Root,
		// Stop repository discovery at the root so a root nested inside
		// another checkout is patched relative to itself.
		Env: []string{"GIT_CEILING_DIRECTORIES=" + filepath.Dir(filepath.Clean(at.Root))},
	}

	res, err := a.runner.Run(ctx, cmd)
	if err != nil {
		return Outcome{Status: model.StatusFailed, Message: err.Error()}
	}

	out := Classify(at.Strategy, res)
	if out.Status == model.StatusPartial && at.FilePath != "" {
		out.Message = describeRejects(at.Root, at.FilePath, out.Message)
	}
	return out
}

// Classify maps an apply tool result to an outcome. Only the reject-tolerant
// strategy can produce a partial outcome, and only when the diagnostics carry
// the rejection marker.
func Classify(strategy model.Strategy, res runner.Result) Outcome {
	if res.TimedOut {
		return Outcome{Status: model.StatusFailed, Message: fmt.Sprintf("timed out after %s", res.Timeout)}
	}

	diag := strings.TrimRight(res.Output(), " \t\r\n")
	if res.ExitCode == 0 {
		return Outcome{Status: model.StatusSuccess, Message: diag}
	}

	if strategy == model.StrategyZeroContextWithReject && rejectMarkerRegex.MatchString(diag) {
		return Outcome{Status: model.StatusPartial, Message: diag}
	}

	if diag == "" {
		diag = fmt.Sprintf("apply tool exited with status %d", res.ExitCode)
	}
	return Outcome{Status: model.StatusFailed, Message: diag}
}

// describeRejects prefixes the diagnostics with where the sidecar lives and
// how many hunks it holds.
func describeRejects(root, filePath, diag string) string {
	rejPath := filepath.Join(root, filepath.FromSlash(filePath)) + ".rej"
	data, err := os.ReadFile(rejPath)
	if err != nil {
		return "some hunks were rejected\n" + diag
	}
	n := CountHunks(string(data))
	return fmt.Sprintf("%d hunk(s) rejected, see %s\n%s", n, rejPath, diag)
}
