package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sokinpui/patchsync/model"
)

// Out receives all plain-terminal output.
var Out io.Writer = os.Stderr

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	FaintColor   = color.New(color.Faint)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Out, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Out, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Out, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Out, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Out, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Out, "  "+format+"\n", a...)
}

// --- Summaries ---

func statusColor(s model.Status) *color.Color {
	switch s {
	case model.StatusSuccess:
		return SuccessColor
	case model.StatusPartial, model.StatusTargetMissing:
		return WarningColor
	default:
		return ErrorColor
	}
}

// PrintSyncSummary prints one line per target followed by the indented
// diagnostics of targets that did not sync cleanly.
func PrintSyncSummary(report *model.SyncReport) {
	Header("\n--- Sync Summary ---")

	if len(report.Results) == 0 {
		Info("No targets were processed.")
		return
	}

	for _, res := range report.Results {
		line := fmt.Sprintf("%-14s %s", res.Status, res.Target)
		if res.Strategy != "" {
			line += fmt.Sprintf(" (%s)", res.Strategy)
		}
		statusColor(res.Status).Fprintln(Out, line)

		if res.Status == model.StatusSuccess && res.Message != model.ForcedOverwriteMessage {
			continue
		}
		if res.Message != "" {
			for _, l := range strings.Split(strings.TrimRight(res.Message, "\n"), "\n") {
				fmt.Fprintf(Out, "    %s\n", l)
			}
		}
		if res.Detail != "" {
			FaintColor.Fprintf(Out, "    %s\n", res.Detail)
		}
	}

	counts := report.Counts()
	fmt.Fprintf(Out, "\n%d succeeded, %d partial, %d failed, %d missing\n",
		counts[model.StatusSuccess], counts[model.StatusPartial],
		counts[model.StatusFailed], counts[model.StatusTargetMissing])
}

// PrintChangedFiles lists the files a commit touched, one per line with its
// change type, on w.
func PrintChangedFiles(w io.Writer, files []model.ChangedFile) {
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\n", f.ChangeType, f.Path)
	}
}
