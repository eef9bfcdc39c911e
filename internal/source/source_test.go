package source

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(piped bool, stdin, clip string) (*SourceProvider, *string) {
	var copied string
	return &SourceProvider{
		stdin:     strings.NewReader(stdin),
		isPiped:   func() bool { return piped },
		readClip:  func() (string, error) { return clip, nil },
		writeClip: func(s string) error { copied = s; return nil },
	}, &copied
}

func TestParseTargetList(t *testing.T) {
	got := ParseTargetList("/srv/a\n\n  /srv/b  \r\n# comment\n/srv/c")
	assert.Equal(t, []string{"/srv/a", "/srv/b", "/srv/c"}, got)
	assert.Empty(t, ParseTargetList("\n  \n"))
}

func TestGetTargetsPrefersStdin(t *testing.T) {
	sp, _ := newTestProvider(true, "/from/stdin\n", "/from/clipboard")
	targets, err := sp.GetTargets()
	require.NoError(t, err)
	assert.Equal(t, []string{"/from/stdin"}, targets)
}

func TestGetTargetsFromClipboard(t *testing.T) {
	sp, _ := newTestProvider(false, "/from/stdin\n", "/x\n/y\n")
	targets, err := sp.GetTargets()
	require.NoError(t, err)
	assert.Equal(t, []string{"/x", "/y"}, targets)
}

func TestClipboardErrors(t *testing.T) {
	sp, _ := newTestProvider(false, "", "")
	sp.readClip = func() (string, error) { return "", errors.New("no clipboard utility") }
	_, err := sp.GetContent()
	assert.ErrorContains(t, err, "failed to read from clipboard")

	sp.writeClip = func(string) error { return errors.New("no clipboard utility") }
	assert.ErrorContains(t, sp.Copy("x"), "failed to write to clipboard")
}

func TestCopy(t *testing.T) {
	sp, copied := newTestProvider(false, "", "")
	require.NoError(t, sp.Copy("# Sync report"))
	assert.Equal(t, "# Sync report", *copied)
}
