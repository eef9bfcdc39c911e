package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing/object"

	"github.com/sokinpui/patchsync/internal/config"
	"github.com/sokinpui/patchsync/model"
)

// isolate keeps the user's config file and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{config.EnvConfig, config.EnvLogLevel, config.EnvApplyTool, config.EnvServerAddr} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func commitRepo(t *testing.T) (dir, hash string) {
	t.Helper()
	dir = t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for i, content := range []string{"a\n", "b\n"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(content), 0o644))
		_, err = wt.Add("main.go")
		require.NoError(t, err)
		h, err := wt.Commit("edit", &git.CommitOptions{
			Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(int64(1700000000+i), 0)},
		})
		require.NoError(t, err)
		hash = h.String()
	}
	return dir, hash
}

func TestNormalizeStdin(t *testing.T) {
	isolate(t)
	out, err := execute(t, "const s = `${ a }`;", "normalize")
	require.NoError(t, err)
	assert.Equal(t, "const s = `${a}`;", out)
}

func TestNormalizeFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "x.js")
	require.NoError(t, os.WriteFile(path, []byte("`${  b  }`"), 0o644))
	out, err := execute(t, "", "normalize", path)
	require.NoError(t, err)
	assert.Equal(t, "`${b}`", out)
}

func TestFiles(t *testing.T) {
	isolate(t)
	dir, hash := commitRepo(t)

	out, err := execute(t, "", "files", "--repo", dir, "--commit", hash)
	require.NoError(t, err)
	assert.Equal(t, "M\tmain.go\n", out)

	out, err = execute(t, "", "files", "--repo", dir, "--commit", hash, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":[{"path":"main.go","change_type":"M"}]}`, out)
}

func TestShowJSON(t *testing.T) {
	isolate(t)
	dir, hash := commitRepo(t)

	out, err := execute(t, "", "show", "--repo", dir, "--commit", hash, "--file", "main.go", "--json")
	require.NoError(t, err)
	var content model.FileContent
	require.NoError(t, json.Unmarshal([]byte(out), &content))
	assert.Equal(t, "main.go", content.FilePath)
	assert.Equal(t, "plaintext", content.Language)
	assert.Equal(t, "b\n", content.NewContent)
}

func TestSyncMissingTargets(t *testing.T) {
	isolate(t)
	dir, hash := commitRepo(t)
	missing := filepath.Join(t.TempDir(), "gone")

	out, err := execute(t, "", "sync", "--json", "--repo", dir, "--commit", hash, "--file", "main.go", missing)
	require.ErrorIs(t, err, ErrTargetsFailed)

	var rep model.SyncReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Results, 1)
	assert.Equal(t, missing, rep.Results[0].Target)
	assert.Equal(t, model.StatusTargetMissing, rep.Results[0].Status)
}

func TestSyncRequiresFlags(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "sync", "/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestBadConfig(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "patchsync.toml")
	require.NoError(t, os.WriteFile(path, []byte("[apply]\nworkers = 0\n"), 0o644))

	_, err := execute(t, "", "--config", path, "normalize")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}
