package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTargets(t *testing.T) {
	got := NormalizeTargets([]string{"  /a ", "", "   ", "/b", "/a", "\t/c\n"})
	assert.Equal(t, []string{"/a", "/b", "/c"}, got)
	assert.Empty(t, NormalizeTargets(nil))
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.True(t, IsDir(dir))
	assert.False(t, IsDir(file))
	assert.False(t, IsDir(filepath.Join(dir, "missing")))
}

func TestCleanRepoPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		invalid bool
	}{
		{in: "src/app.js", want: "src/app.js"},
		{in: "./src//app.js", want: "src/app.js"},
		{in: "src/../app.js", want: "app.js"},
		{in: " README.md ", want: "README.md"},
		{in: "", invalid: true},
		{in: "/etc/passwd", invalid: true},
		{in: "../outside.txt", invalid: true},
		{in: "src/../../outside.txt", invalid: true},
		{in: ".", invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanRepoPath(tt.in)
			if tt.invalid {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsafePath))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoin(t *testing.T) {
	got, err := Join("/root/project", "src/app.js")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/root/project", "src", "app.js"), got)

	_, err = Join("/root/project", "../x")
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()

	t.Run("creates parents", func(t *testing.T) {
		path := filepath.Join(dir, "a", "b", "c.bin")
		data := []byte{0x00, 0xff, 0x10, '\n'}
		require.NoError(t, WriteFileAtomic(path, data))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, data, got)

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp file must not be left behind")
	})

	t.Run("keeps mode of existing file", func(t *testing.T) {
		path := filepath.Join(dir, "script.sh")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o755))
		require.NoError(t, WriteFileAtomic(path, []byte("new")))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	})

	t.Run("refuses directories", func(t *testing.T) {
		path := filepath.Join(dir, "adir")
		require.NoError(t, os.Mkdir(path, 0o755))
		assert.Error(t, WriteFileAtomic(path, []byte("x")))
	})
}

func TestSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	data := []byte("hello\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	fromFile, err := GetFileSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, SHA256(data), fromFile)
	assert.Equal(t, "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03", fromFile)
}
