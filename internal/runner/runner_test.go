package runner

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(5 * time.Second)
	ctx := context.Background()

	t.Run("captures streams and exit code", func(t *testing.T) {
		res, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2; exit 3"}})
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "out\n", string(res.Stdout))
		assert.Equal(t, "err\n", string(res.Stderr))
		assert.False(t, res.TimedOut)
	})

	t.Run("runs in the given directory", func(t *testing.T) {
		dir := t.TempDir()
		res, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "pwd -P"}, Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.NotEmpty(t, res.Stdout)
	})

	t.Run("stdin is closed", func(t *testing.T) {
		res, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "cat; echo done"}})
		require.NoError(t, err)
		assert.Equal(t, "done\n", string(res.Stdout))
	})

	t.Run("stdin is fed when set", func(t *testing.T) {
		res, err := r.Run(ctx, Command{Name: "cat", Stdin: []byte("hello")})
		require.NoError(t, err)
		assert.Equal(t, "hello", string(res.Stdout))
	})

	t.Run("extra env", func(t *testing.T) {
		res, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "printf %s \"$PATCHSYNC_TEST\""}, Env: []string{"PATCHSYNC_TEST=yes"}})
		require.NoError(t, err)
		assert.Equal(t, "yes", string(res.Stdout))
	})

	t.Run("missing executable is an error", func(t *testing.T) {
		_, err := r.Run(ctx, Command{Name: "patchsync-no-such-binary"})
		require.Error(t, err)
	})
}

func TestExecRunnerTimeout(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(100 * time.Millisecond)

	start := time.Now()
	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "sleep 5"}})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, 100*time.Millisecond, res.Timeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestResultOutput(t *testing.T) {
	assert.Equal(t, "a", Result{Stdout: []byte("a")}.Output())
	assert.Equal(t, "b", Result{Stderr: []byte("b")}.Output())
	assert.Equal(t, "b\na", Result{Stdout: []byte("a"), Stderr: []byte("b")}.Output())
}
