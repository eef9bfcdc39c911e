// Package report renders sync reports as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/sokinpui/patchsync/model"
)

// Markdown renders report for req as a Markdown document: a header, one
// table row per target and the full diagnostics of every target that did
// not succeed cleanly.
func Markdown(req model.SyncRequest, report *model.SyncReport) string {
	var b strings.Builder

	b.WriteString("# Sync report\n\n")
	fmt.Fprintf(&b, "`%s` at `%s` from `%s`\n\n", req.FilePath, req.CommitID, req.RepoPath)

	b.WriteString("| Target | Status | Strategy | Message |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, res := range report.Results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(res.Target), res.Status, res.Strategy, cell(firstLine(res.Message)))
	}

	counts := report.Counts()
	fmt.Fprintf(&b, "\n**%d succeeded, %d partial, %d failed, %d missing**\n",
		counts[model.StatusSuccess], counts[model.StatusPartial],
		counts[model.StatusFailed], counts[model.StatusTargetMissing])

	var details []model.TargetResult
	for _, res := range report.Results {
		if res.Status == model.StatusFailed || res.Status == model.StatusPartial || res.Detail != "" {
			details = append(details, res)
		}
	}
	if len(details) == 0 {
		return b.String()
	}

	b.WriteString("\n## Details\n")
	for _, res := range details {
		fmt.Fprintf(&b, "\n### %s\n\n", res.Target)
		if res.Detail != "" {
			fmt.Fprintf(&b, "%s\n\n", res.Detail)
		}
		if res.Message != "" && res.Status != model.StatusSuccess {
			fence := "```"
			for strings.Contains(res.Message, fence) {
				fence += "`"
			}
			fmt.Fprintf(&b, "%s\n%s\n%s\n", fence, strings.TrimRight(res.Message, "\n"), fence)
		}
	}
	return b.String()
}

// HTML converts a Markdown document to HTML with GitHub table support.
func HTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}
	return buf.String(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
