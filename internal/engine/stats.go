package engine

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sokinpui/patchsync/internal/patcher"
	"github.com/sokinpui/patchsync/model"
)

// lineStats summarizes how an overwrite changed a file, e.g. "+3 -1 lines".
func lineStats(before, after []byte) string {
	if !utf8.Valid(before) || !utf8.Valid(after) {
		return "binary content replaced"
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	added, removed := 0, 0
	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	if added == 0 && removed == 0 {
		return "content unchanged"
	}
	return fmt.Sprintf("+%d -%d lines", added, removed)
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// annotateFailures records, for targets that end up failed after a patch
// round, how many hunks of the standard patch cannot be located in the
// target's copy of the file.
func annotateFailures(op *operation) {
	for _, target := range op.agg.order {
		res, ok := op.agg.results[target]
		if !ok || res.Status != model.StatusFailed || res.Strategy == model.StrategyForceOverwrite || res.Path == "" {
			continue
		}
		content, err := os.ReadFile(res.Path)
		if err != nil {
			res.Detail = "file does not exist in target"
			op.agg.results[target] = res
			continue
		}
		starts := patcher.Locate(string(op.standard), string(content))
		missing := 0
		for _, start := range starts {
			if start < 0 {
				missing++
			}
		}
		res.Detail = fmt.Sprintf("%d of %d hunk(s) not locatable in target", missing, len(starts))
		op.agg.results[target] = res
	}
}
