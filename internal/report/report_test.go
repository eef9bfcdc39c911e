package report

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/patchsync/model"
)

var (
	testRequest = model.SyncRequest{RepoPath: "/repo", CommitID: "abc123", FilePath: "src/app.js"}
	testReport  = &model.SyncReport{Results: []model.TargetResult{
		{Target: "/a", Status: model.StatusSuccess, Strategy: model.StrategyStandardContext},
		{Target: "/missing", Status: model.StatusTargetMissing, Message: "target directory does not exist"},
		{Target: "/b", Status: model.StatusFailed, Strategy: model.StrategyZeroContextWithReject, Message: "error: patch failed\nerror: src/app.js: patch does not apply", Detail: "1 of 1 hunk(s) not locatable in target"},
	}}
)

func TestMarkdown(t *testing.T) {
	want := "# Sync report\n\n" +
		"`src/app.js` at `abc123` from `/repo`\n\n" +
		"| Target | Status | Strategy | Message |\n" +
		"|---|---|---|---|\n" +
		"| /a | success | standard-context |  |\n" +
		"| /missing | target-missing |  | target directory does not exist |\n" +
		"| /b | failed | zero-context-with-reject | error: patch failed ... |\n" +
		"\n**1 succeeded, 0 partial, 1 failed, 1 missing**\n" +
		"\n## Details\n" +
		"\n### /b\n\n" +
		"1 of 1 hunk(s) not locatable in target\n\n" +
		"```\nerror: patch failed\nerror: src/app.js: patch does not apply\n```\n"

	if diff := cmp.Diff(want, Markdown(testRequest, testReport)); diff != "" {
		t.Errorf("Markdown mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkdownEscapes(t *testing.T) {
	rep := &model.SyncReport{Results: []model.TargetResult{
		{Target: "/x|y", Status: model.StatusPartial, Message: "has ``` fence"},
	}}
	md := Markdown(testRequest, rep)
	assert.Contains(t, md, `| /x\|y | partial |`)
	assert.Contains(t, md, "````\nhas ``` fence\n````")
	assert.NotContains(t, md, "## Details\n\n### /a")
}

func TestHTML(t *testing.T) {
	html, err := HTML(Markdown(testRequest, testReport))
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Sync report</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>/missing</td>")
	assert.True(t, strings.Contains(html, "<pre><code>error: patch failed"))
}
